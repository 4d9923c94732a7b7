// internal/gateway/gateway.go
package gateway

import (
	"context"
	"sync"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/common/metrics"
)

// State is the tri-state lifecycle of one outbound operation.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

// Operation is the outbound call being wrapped: a backend request, a code
// delivery, an upload. Operations are not idempotent; invoking one twice
// performs it twice.
type Operation func(ctx context.Context) (interface{}, error)

// Gateway wraps one outbound operation with Idle/Pending/Success/Failed.
// Failed -> Pending is allowed (manual retry); Success is terminal for that
// invocation but Reset returns the gateway to Idle for reuse.
//
// No timeout is imposed here: an operation that never returns leaves the
// gateway Pending indefinitely; deadlines, if any, ride in on the caller's
// context.
type Gateway struct {
	mu         sync.Mutex
	name       string
	state      State
	errMessage string
	result     interface{}
	generation uint64
	log        logger.Logger
}

func New(name string, log logger.Logger) *Gateway {
	return &Gateway{
		name:  name,
		state: StateIdle,
		log:   log.WithFields(map[string]interface{}{"gateway": name}),
	}
}

// Invoke runs op and records the outcome. A second Invoke while Pending is
// not blocked; it issues a second operation (the original behavior; the
// trigger control is what gets disabled, not the gateway). Each Invoke
// supersedes earlier in-flight ones: a stale completion, or one that lands
// after Reset, is dropped without touching state.
func (g *Gateway) Invoke(ctx context.Context, op Operation) (interface{}, error) {
	g.mu.Lock()
	g.state = StatePending
	g.errMessage = ""
	g.generation++
	gen := g.generation
	g.mu.Unlock()

	metrics.GatewayInvocations.WithLabelValues(g.name, string(StatePending)).Inc()

	value, err := op(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	if gen != g.generation {
		// Reset or a newer invocation happened while this one was in
		// flight; the response is silently dropped.
		g.log.Debug("stale gateway response dropped", nil)
		return value, err
	}

	if err != nil {
		stdErr := errors.AsStandard(err)
		g.state = StateFailed
		g.errMessage = stdErr.Message
		metrics.GatewayInvocations.WithLabelValues(g.name, string(StateFailed)).Inc()
		g.log.Warn("operation failed", map[string]interface{}{"errorCode": string(stdErr.Code)})
		return nil, stdErr
	}

	g.state = StateSuccess
	g.result = value
	metrics.GatewayInvocations.WithLabelValues(g.name, string(StateSuccess)).Inc()
	return value, nil
}

// State returns the current lifecycle state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ErrorMessage returns the surfaced message of the last failure, "" otherwise.
func (g *Gateway) ErrorMessage() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errMessage
}

// Result returns the value of the last successful invocation.
func (g *Gateway) Result() interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

// Reset returns the gateway to Idle for a new operation. Any invocation
// still in flight becomes stale and its response will be discarded. This is the
// close-the-modal-mid-request path.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateIdle
	g.errMessage = ""
	g.result = nil
	g.generation++
}
