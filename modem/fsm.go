package modem

import "github.com/looplab/fsm"

// Session states. BearerOpen and HTTPOpen imply Initialized: the only
// paths to them run through the initialize transition.
const (
	stateUninitialized = "uninitialized"
	stateInitialized   = "initialized"
	stateBearerOpen    = "bearer_open"
	stateHTTPOpen      = "http_open"
)

// Session events. Self-transitions are allowed where the operation is
// idempotent (re-initializing, reconnecting an open bearer).
const (
	eventInitialize       = "initialize"
	eventConnectBearer    = "connect_bearer"
	eventDisconnectBearer = "disconnect_bearer"
	eventOpenHTTP         = "open_http"
	eventCloseHTTP        = "close_http"
)

func newSessionFSM() *fsm.FSM {
	return fsm.NewFSM(
		stateUninitialized,
		fsm.Events{
			{Name: eventInitialize, Src: []string{stateUninitialized, stateInitialized}, Dst: stateInitialized},
			{Name: eventConnectBearer, Src: []string{stateInitialized, stateBearerOpen}, Dst: stateBearerOpen},
			{Name: eventDisconnectBearer, Src: []string{stateBearerOpen, stateInitialized}, Dst: stateInitialized},
			{Name: eventOpenHTTP, Src: []string{stateBearerOpen, stateHTTPOpen}, Dst: stateHTTPOpen},
			{Name: eventCloseHTTP, Src: []string{stateHTTPOpen}, Dst: stateBearerOpen},
		},
		fsm.Callbacks{},
	)
}

// transition fires an event, treating a no-op transition (already in
// the destination state) as success. State only ever moves after the
// corresponding device operation succeeded.
func (m *Modem) transition(event string) error {
	err := m.fsm.Event(event)
	if err == nil {
		return nil
	}
	if _, ok := err.(fsm.NoTransitionError); ok {
		return nil
	}
	return err
}
