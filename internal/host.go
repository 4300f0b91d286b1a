package internal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal/monitor"
)

// Host event names.
const (
	EventCompleted = "completed" // a request finished; fetch its chain
	EventRemoved   = "removed"   // a tab was closed
	EventMessage   = "message"   // a command from the presentation layer
)

// maxEventSize bounds one input line.
const maxEventSize = 1 << 20

// HostEvent is one JSON line read from the host.
type HostEvent struct {
	Event     string           `json:"event"`
	TabID     int              `json:"tabId"`
	RequestID string           `json:"requestId,omitempty"`
	TimeStamp float64          `json:"timeStamp,omitempty"` // milliseconds since the Unix epoch
	ID        string           `json:"id,omitempty"`        // correlates a message with its response
	Request   *monitor.Request `json:"request,omitempty"`
}

// Observation converts a completed event. A missing timestamp is left zero
// so the monitor uses the time of processing.
func (e HostEvent) Observation() monitor.Observation {
	obs := monitor.Observation{TabID: e.TabID, RequestID: e.RequestID}
	if e.TimeStamp > 0 {
		sec, frac := math.Modf(e.TimeStamp / 1000)
		obs.Timestamp = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return obs
}

type indicatorLine struct {
	Kind  string         `json:"kind"`
	TabID int            `json:"tabId"`
	Icon  certwatch.Icon `json:"icon"`
	Badge string         `json:"badge"`
}

type responseLine struct {
	Kind     string `json:"kind"`
	ID       string `json:"id,omitempty"`
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HostWriter writes JSON lines to the host. It is the monitor's Indicator
// and carries command responses; writes from concurrent observations are
// serialized.
type HostWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewHostWriter creates a HostWriter on w.
func NewHostWriter(w io.Writer) *HostWriter {
	return &HostWriter{enc: json.NewEncoder(w)}
}

// SetState implements monitor.Indicator.
func (h *HostWriter) SetState(tabID int, state certwatch.TabState) {
	h.write(indicatorLine{Kind: "indicator", TabID: tabID, Icon: state.Icon, Badge: state.Badge})
}

func (h *HostWriter) respond(id string, resp any) {
	h.write(responseLine{Kind: "response", ID: id, Response: resp})
}

func (h *HostWriter) fail(id string, err error) {
	h.write(responseLine{Kind: "error", ID: id, Error: err.Error()})
}

func (h *HostWriter) write(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.enc.Encode(v); err != nil {
		slog.Warn("writing to host", "error", err)
	}
}

// RunHost reads host events from r until EOF and drives m, writing
// responses to out. Observations run concurrently so a slow inspection does
// not hold up commands or tab closes; RunHost waits for them before
// returning. Malformed lines are logged and skipped. Unsupported commands
// produce no output.
func RunHost(ctx context.Context, r io.Reader, out *HostWriter, m *monitor.Monitor) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev HostEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			slog.Warn("skipping malformed host event", "error", err)
			continue
		}

		switch ev.Event {
		case EventCompleted:
			obs := ev.Observation()
			// Registered before the next event is read so a following
			// close for the tab discards it.
			pending := m.Begin(obs)
			wg.Go(func() {
				if err := pending.Complete(ctx); err != nil {
					slog.Debug("observation not applied", "tab", obs.TabID, "request", obs.RequestID, "error", err)
				}
			})
		case EventRemoved:
			m.TabClosed(ev.TabID)
		case EventMessage:
			handleMessage(ctx, ev, out, m)
		default:
			slog.Warn("skipping unknown host event", "event", ev.Event)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading host events: %w", err)
	}
	return nil
}

func handleMessage(ctx context.Context, ev HostEvent, out *HostWriter, m *monitor.Monitor) {
	if ev.Request == nil {
		slog.Warn("skipping message without request", "id", ev.ID)
		return
	}
	if !monitor.Supported(ev.Request.Type) {
		slog.Debug("ignoring unsupported request", "id", ev.ID, "type", ev.Request.Type)
		return
	}
	resp, err := m.Dispatch(ctx, *ev.Request)
	if err != nil {
		slog.Warn("command failed", "type", ev.Request.Type, "tab", ev.Request.TabID, "error", err)
		out.fail(ev.ID, err)
		return
	}
	out.respond(ev.ID, resp)
}
