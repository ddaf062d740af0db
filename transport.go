package revdom

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// MessageType enumerates the §6 outbound envelope types.
type MessageType string

const (
	MsgMount      MessageType = "mount"
	MsgPatch      MessageType = "patch"
	MsgHTMLUpdate MessageType = "html_update"
	MsgError      MessageType = "error"
)

// Envelope is the §6 wire record sent to the client. Only the fields
// relevant to Type are populated; the rest are zero/omitted.
type Envelope struct {
	Type            MessageType `json:"type"`
	HTML            string      `json:"html,omitempty"`
	Version         uint64      `json:"version,omitempty"`
	Patches         []Patch     `json:"patches,omitempty"`
	ResetOnFallback bool        `json:"reset_on_fallback,omitempty"`
	Message         string      `json:"message,omitempty"`
	Recoverable     bool        `json:"recoverable,omitempty"`
}

// MountEnvelope wraps a Mount result for the wire.
func MountEnvelope(m Mount) Envelope {
	return Envelope{Type: MsgMount, HTML: m.HTML, Version: m.Version}
}

// PatchEnvelope wraps a Render result. A Render with zero patches is still
// sent, carrying only the new version (§4.5 "no-op message"). Callers that
// may receive a Fresh Render (anything coming out of RenderWithDiff) should
// use RenderEnvelope instead, which picks the right wire shape for either
// case.
func PatchEnvelope(r Render) Envelope {
	return Envelope{Type: MsgPatch, Patches: r.Patches, Version: r.Version}
}

// RenderEnvelope wraps a RenderWithDiff result, choosing html_update over
// patch when r.Fresh is set (§7: a DiffFailure "resets the session and
// emits fresh HTML"). Sending a Fresh Render as a patch envelope would tell
// the client "nothing changed" when in fact its whole baseline was just
// rebuilt out from under it.
func RenderEnvelope(r Render) Envelope {
	if r.Fresh {
		return Envelope{Type: MsgHTMLUpdate, HTML: r.HTML, Version: r.Version, ResetOnFallback: true}
	}
	return PatchEnvelope(r)
}

// HTMLUpdateEnvelope wraps a Reset result; ResetOnFallback tells the client
// this payload is authoritative and should replace its DOM outright.
func HTMLUpdateEnvelope(r Reset) Envelope {
	return Envelope{Type: MsgHTMLUpdate, HTML: r.HTML, Version: r.Version, ResetOnFallback: true}
}

// ErrorEnvelope builds the client-facing error payload for err. In debug
// mode the underlying message is passed through verbatim; otherwise a
// fixed generic message is substituted and the detail is left to
// server-side logs only (§7 "User-visible failure behavior").
func ErrorEnvelope(err error, debug bool) Envelope {
	recoverable := KindOf(err).Recoverable()
	msg := "an internal error occurred"
	if debug {
		msg = err.Error()
	}
	return Envelope{Type: MsgError, Message: msg, Recoverable: recoverable}
}

// Transport is the §6 `send`/`receive` external collaborator: a
// bidirectional message channel the core treats as an opaque dependency.
// WSTransport is the reference implementation over gorilla/websocket.
type Transport interface {
	Send(conn *Connection, env Envelope) error
}

// WSTransport sends envelopes as JSON text frames over a gorilla/websocket
// connection.
type WSTransport struct{}

// Send JSON-encodes env and writes it as a text frame on conn.
func (WSTransport) Send(conn *Connection, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return newErr(KindEvaluationError, "marshaling envelope", err)
	}
	return conn.Send(websocket.TextMessage, data)
}

// Event is one inbound item from `receive(session) → event_batch` (§6):
// the dispatch/validation of its payload is the surrounding system's
// responsibility (§1 Non-goals), but the core needs a minimal shape to
// serialize arrival order per session.
type Event struct {
	Kind    string
	Payload map[string]any
}

// SessionQueue serializes events for a single session onto one goroutine,
// satisfying §5's requirement that "the render controller must serialize
// concurrent events arriving for the same session". Handle is called
// once per Event, strictly in arrival order; a panic inside Handle is
// recovered and logged rather than taking the queue goroutine down, since
// a wedged per-session worker would otherwise silently stop delivering
// updates for that session for the rest of the process lifetime.
type SessionQueue struct {
	events chan Event
	done   chan struct{}
	logger Logger
}

// NewSessionQueue starts a worker goroutine draining events through
// handle. bufferSize bounds how many in-flight events may queue before
// Submit blocks.
func NewSessionQueue(bufferSize int, logger Logger, handle func(Event)) *SessionQueue {
	if logger == nil {
		logger = DefaultLogger()
	}
	q := &SessionQueue{
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go q.run(handle)
	return q
}

func (q *SessionQueue) run(handle func(Event)) {
	defer close(q.done)
	for ev := range q.events {
		q.dispatch(ev, handle)
	}
}

func (q *SessionQueue) dispatch(ev Event, handle func(Event)) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Printf("session queue: recovered from panic handling event %q: %v", ev.Kind, r)
		}
	}()
	handle(ev)
}

// Submit enqueues ev for processing, blocking if the queue is full.
func (q *SessionQueue) Submit(ev Event) { q.events <- ev }

// Close stops accepting new events and waits for the worker to drain.
func (q *SessionQueue) Close() {
	close(q.events)
	<-q.done
}
