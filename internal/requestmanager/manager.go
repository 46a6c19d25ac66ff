// Package requestmanager overlays synchronous request/response
// semantics on the event bus (C3): correlate requests with responses,
// enforce timeouts, and support mass cancellation. Grounded on the
// teacher's internal/router.Decision record-keeping idiom (a struct
// capturing the inputs and eventual outcome of an async decision) and
// its consistent context.Context + timer based bounded waits
// (internal/scheduler.Scheduler).
package requestmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kairei-run/kairei/internal/eventbus"
)

// DefaultTimeout is used when an event carries no parameters["timeout"]
// override (or the override is <= 1s, per spec.md §4.3).
const DefaultTimeout = 30 * time.Second

// Timeout is returned when no matching Response arrives before the
// request's timeout.
type Timeout struct{ RequestID string }

func (e Timeout) Error() string { return fmt.Sprintf("request %s timed out", e.RequestID) }

// InvalidRequest is returned for malformed inputs to request/handle_event.
type InvalidRequest struct{ Message string }

func (e InvalidRequest) Error() string { return "invalid request: " + e.Message }

// ChannelClosed is returned when the pending request's channel closes
// without a matching response. CancelWaitingRequests does not close
// channels; it delivers a ResponseFailure instead.
type ChannelClosed struct{}

func (ChannelClosed) Error() string { return "response channel closed" }

type pending struct {
	responseCh chan eventbus.Event
	reqType    string
	once       sync.Once
}

func (p *pending) deliver(e eventbus.Event) {
	p.once.Do(func() { p.responseCh <- e })
}

// Manager correlates requests with responses over the bus.
type Manager struct {
	bus            *eventbus.Bus
	defaultTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*pending
}

// New creates a Manager publishing requests on bus. defaultTimeout, if
// zero, uses DefaultTimeout.
func New(bus *eventbus.Bus, defaultTimeout time.Duration) *Manager {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Manager{bus: bus, defaultTimeout: defaultTimeout, pending: make(map[string]*pending)}
}

// Request publishes a Request event and awaits its matching Response
// (any Success/Failure carrying the same request_id), or a timeout.
// Only events satisfying IsResponseTo(request_id) resolve the pending
// request; other events observed by handle_event are ignored, per
// spec.md §4.3's precise matching rule.
func (m *Manager) Request(ctx context.Context, req eventbus.Event) (eventbus.Event, error) {
	if !req.IsRequest() {
		return eventbus.Event{}, InvalidRequest{Message: "event is not a Request variant"}
	}
	requestID, ok := req.RequestID()
	if !ok || requestID == "" {
		return eventbus.Event{}, InvalidRequest{Message: "missing request_id"}
	}
	reqType, _ := req.ParamString("request_type")

	timeout := m.defaultTimeout
	if tv, ok := req.Param("timeout"); ok {
		if d, isDur := tv.AsDuration(); isDur && d > time.Second {
			timeout = d
		}
	}

	p := &pending{responseCh: make(chan eventbus.Event, 1), reqType: reqType}

	m.mu.Lock()
	m.pending[requestID] = p
	m.mu.Unlock()

	// Drop must unregister: if this call returns for any reason (match,
	// timeout, or ctx cancellation/future-drop), the pending entry is
	// removed so no leaked entry remains.
	defer func() {
		m.mu.Lock()
		if cur, ok := m.pending[requestID]; ok && cur == p {
			delete(m.pending, requestID)
		}
		m.mu.Unlock()
	}()

	if err := m.bus.Publish(req); err != nil {
		return eventbus.Event{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-p.responseCh:
		if !ok {
			return eventbus.Event{}, ChannelClosed{}
		}
		return resp, nil
	case <-timer.C:
		return eventbus.Event{}, Timeout{RequestID: requestID}
	case <-ctx.Done():
		return eventbus.Event{}, ctx.Err()
	}
}

// HandleEvent delivers a Response event to its pending request, if one
// exists, and removes the pending entry. Non-response events return
// InvalidRequest, matching spec.md §4.3.
func (m *Manager) HandleEvent(e eventbus.Event) error {
	if !e.IsResponse() {
		return InvalidRequest{Message: "Invalid event type"}
	}
	requestID, ok := e.RequestID()
	if !ok {
		return InvalidRequest{Message: "missing request_id"}
	}

	m.mu.Lock()
	p, ok := m.pending[requestID]
	if ok {
		delete(m.pending, requestID)
	}
	m.mu.Unlock()

	if !ok {
		// Late duplicate or unmatched response: not an error, just ignored.
		return nil
	}
	p.deliver(e)
	return nil
}

// CancelWaitingRequests synthesizes a ResponseFailure (carrying
// "request_cancelled: <msg>" in parameters["error"]) for every pending
// request, delivers it, and clears the table. Returns the synthesized
// responses.
func (m *Manager) CancelWaitingRequests(message string) []eventbus.Event {
	m.mu.Lock()
	all := m.pending
	m.pending = make(map[string]*pending)
	m.mu.Unlock()

	responses := make([]eventbus.Event, 0, len(all))
	for requestID, p := range all {
		fakeReq := eventbus.NewEvent(eventbus.RequestType(p.reqType), map[string]eventbus.Value{
			"request_type": eventbus.String(p.reqType),
			"request_id":   eventbus.String(requestID),
		})
		resp := eventbus.NewResponseFailure(fakeReq, "request_cancelled: "+message)
		responses = append(responses, resp)
		p.deliver(resp)
	}
	return responses
}

// PendingCount returns the number of outstanding requests (for tests
// and diagnostics).
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
