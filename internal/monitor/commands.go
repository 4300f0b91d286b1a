package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal/certstore"
)

// RequestType names a command sent by the presentation layer.
type RequestType string

const (
	GetCerts         RequestType = "getCerts"
	RemoveCerts      RequestType = "removeCerts"
	HideCommonName   RequestType = "hideCommonName"
	UnhideCommonName RequestType = "unhideCommonName"
	GetState         RequestType = "getState"

	// Request names used by older popups.
	pushHiddenCommonNames RequestType = "pushHiddenCommonNames"
	popHiddenCommonName   RequestType = "popHiddenCommonName"
)

// ErrUnsupported is returned by Dispatch for request types it does not know.
// Callers must produce no response for such requests.
var ErrUnsupported = errors.New("unsupported request type")

// Request is a command from the presentation layer.
type Request struct {
	Type             RequestType `json:"type"`
	TabID            int         `json:"tabId"`
	HiddenCommonName string      `json:"hiddenCommonName,omitempty"`
}

// CertsResponse answers GetCerts. Certs is empty, never nil, for a tab with
// no data.
type CertsResponse struct {
	Certs             certwatch.TabCertificateSet `json:"certs"`
	HiddenCommonNames []string                    `json:"hiddenCommonNames"`
}

// StateResponse answers GetState. Observed is false for a tab with no data,
// in which case State and Summary are zero values.
type StateResponse struct {
	Observed bool                 `json:"observed"`
	State    certwatch.TabState   `json:"state"`
	Summary  certstore.TabSummary `json:"summary"`
}

// handler runs one command against the monitor's state and returns the
// response. It is called with the monitor lock held.
type handler func(ctx context.Context, m *Monitor, req Request) (any, error)

var handlers = map[RequestType]handler{
	GetCerts:              handleGetCerts,
	RemoveCerts:           handleRemoveCerts,
	HideCommonName:        handleHide,
	UnhideCommonName:      handleUnhide,
	GetState:              handleGetState,
	pushHiddenCommonNames: handleHide,
	popHiddenCommonName:   handleUnhide,
}

// Supported reports whether Dispatch knows the request type.
func Supported(t RequestType) bool {
	_, ok := handlers[t]
	return ok
}

// Dispatch runs req and returns its response. Unknown request types return
// ErrUnsupported and change nothing.
func (m *Monitor) Dispatch(ctx context.Context, req Request) (any, error) {
	h, ok := handlers[req.Type]
	if !ok {
		slog.Debug("ignoring unsupported request", "type", req.Type, "tab", req.TabID)
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, req.Type)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return h(ctx, m, req)
}

func handleGetCerts(_ context.Context, m *Monitor, req Request) (any, error) {
	set, _ := m.tabs.Get(req.TabID)
	return CertsResponse{
		Certs:             set,
		HiddenCommonNames: m.hidden.Names(),
	}, nil
}

// handleRemoveCerts clears the tab and shows the cleared marker, whether or
// not the tab had data.
func handleRemoveCerts(_ context.Context, m *Monitor, req Request) (any, error) {
	existed := m.tabs.Clear(req.TabID)
	slog.Debug("removed tab certificates", "tab", req.TabID, "had_data", existed)
	m.setIndicator(req.TabID, certwatch.Cleared)
	return true, nil
}

func handleHide(ctx context.Context, m *Monitor, req Request) (any, error) {
	changed, err := m.hidden.Add(ctx, req.HiddenCommonName)
	if err != nil {
		return nil, err
	}
	if changed {
		slog.Info("hiding common name", "cn", req.HiddenCommonName)
		m.refresh(req.TabID)
	}
	return true, nil
}

func handleUnhide(ctx context.Context, m *Monitor, req Request) (any, error) {
	changed, err := m.hidden.Remove(ctx, req.HiddenCommonName)
	if err != nil {
		return nil, err
	}
	if changed {
		slog.Info("unhiding common name", "cn", req.HiddenCommonName)
		m.refresh(req.TabID)
	}
	return true, nil
}

func handleGetState(_ context.Context, m *Monitor, req Request) (any, error) {
	state, ok := m.state(req.TabID)
	return StateResponse{Observed: ok, State: state, Summary: m.tabs.Summary(req.TabID, m.hidden)}, nil
}
