// internal/flows/manager.go
package flows

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/gateway"
	"oikos-server/internal/wizard"
	"oikos-server/pkg/registry"
)

// Manager orchestrates wizard sessions: it resolves flow definitions from
// the registry, persists sessions through the Redis store, and routes every
// mutation through a freshly hydrated controller so the engine semantics are
// identical no matter which server instance handles the request.
//
// Capture sessions are the one piece of per-session state that cannot live
// in Redis: a device stream is a live handle bound to this process, so they
// stay in an in-memory map keyed by session id.
type Manager struct {
	registry   *registry.FlowRegistry
	sessions   *wizard.SessionStore
	submitters map[string]wizard.SubmitFunc
	hooks      map[string]map[string]wizard.EnterFunc
	provider   gateway.StreamProvider
	log        logger.Logger

	mu       sync.Mutex
	captures map[string]*gateway.CaptureSession
}

func NewManager(
	reg *registry.FlowRegistry,
	sessions *wizard.SessionStore,
	submitters map[string]wizard.SubmitFunc,
	hooks map[string]map[string]wizard.EnterFunc,
	provider gateway.StreamProvider,
	log logger.Logger,
) *Manager {
	return &Manager{
		registry:   reg,
		sessions:   sessions,
		submitters: submitters,
		hooks:      hooks,
		provider:   provider,
		log:        log,
		captures:   make(map[string]*gateway.CaptureSession),
	}
}

// Open creates a fresh session for a flow.
func (m *Manager) Open(ctx context.Context, flowName, userID string) (*wizard.Session, error) {
	def := m.registry.Get(flowName)
	if def == nil {
		return nil, errors.NewFlowNotFoundError(flowName)
	}

	sess := wizard.NewSession(uuid.New().String(), def, userID)
	if err := m.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	m.log.Info("wizard session opened", map[string]interface{}{
		"flow":      flowName,
		"sessionId": sess.ID,
	})
	return sess, nil
}

// Get loads a session.
func (m *Manager) Get(ctx context.Context, id string) (*wizard.Session, error) {
	return m.sessions.Load(ctx, id)
}

// SetFields applies field edits and persists the session. Setting a field
// clears its error; nothing is validated until Next.
func (m *Manager) SetFields(ctx context.Context, id string, fields map[string]wizard.FieldValue) (*wizard.Session, error) {
	return m.mutate(ctx, id, func(ctrl *wizard.Controller) error {
		for name, value := range fields {
			ctrl.Store().SetField(name, value)
		}
		return nil
	})
}

// ToggleField flips one item of a multi-select field.
func (m *Manager) ToggleField(ctx context.Context, id, name, item string) (*wizard.Session, error) {
	return m.mutate(ctx, id, func(ctrl *wizard.Controller) error {
		ctrl.Store().ToggleArrayField(name, item)
		return nil
	})
}

// Next advances the session or surfaces validation/submit errors. The
// session is persisted either way: blocked input and error maps survive the
// round trip.
func (m *Manager) Next(ctx context.Context, id string) (*wizard.Session, error) {
	sess, err := m.mutate(ctx, id, func(ctrl *wizard.Controller) error {
		return ctrl.Next(ctx)
	})
	if sess != nil && sess.Completed {
		m.releaseCapture(id)
	}
	return sess, err
}

// Prev moves back one step.
func (m *Manager) Prev(ctx context.Context, id string) (*wizard.Session, error) {
	return m.mutate(ctx, id, func(ctrl *wizard.Controller) error {
		ctrl.Prev()
		return nil
	})
}

// Jump navigates to an earlier step.
func (m *Manager) Jump(ctx context.Context, id string, step int) (*wizard.Session, error) {
	return m.mutate(ctx, id, func(ctrl *wizard.Controller) error {
		return ctrl.JumpTo(step)
	})
}

// DismissBanner clears the submit-failure banner.
func (m *Manager) DismissBanner(ctx context.Context, id string) (*wizard.Session, error) {
	return m.mutate(ctx, id, func(ctrl *wizard.Controller) error {
		ctrl.DismissBanner()
		return nil
	})
}

// Close discards the session and releases any capture stream it held. This
// is the modal-close path: the next open starts from scratch.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.releaseCapture(id)
	return m.sessions.Delete(ctx, id)
}

// AcquireCapture attaches the device stream for the session's selfie step.
func (m *Manager) AcquireCapture(ctx context.Context, id string) error {
	if _, err := m.sessions.Load(ctx, id); err != nil {
		return err
	}
	if m.provider == nil {
		return errors.NewCaptureDeniedError("no capture device configured")
	}
	return m.capture(id).Acquire(ctx)
}

// CaptureFrame grabs a still from the live stream and records its reference
// on the session's selfie field.
func (m *Manager) CaptureFrame(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	cs := m.captures[id]
	m.mu.Unlock()
	if cs == nil {
		return nil, errors.NewCaptureNotAcquiredError()
	}

	frame, err := cs.Capture()
	if err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("capture://%s", id)
	if _, err := m.SetFields(ctx, id, map[string]wizard.FieldValue{
		"selfieImage": wizard.FileRefValue(ref),
	}); err != nil {
		return nil, err
	}
	return frame, nil
}

// ReleaseCapture closes the session's stream. Step exit must call this; a
// stream left attached survives until session close.
func (m *Manager) ReleaseCapture(id string) error {
	m.mu.Lock()
	cs := m.captures[id]
	m.mu.Unlock()
	if cs == nil {
		return nil
	}
	return cs.Release()
}

func (m *Manager) capture(id string) *gateway.CaptureSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs := m.captures[id]
	if cs == nil {
		cs = gateway.NewCaptureSession(m.provider, m.log)
		m.captures[id] = cs
	}
	return cs
}

func (m *Manager) releaseCapture(id string) {
	m.mu.Lock()
	cs := m.captures[id]
	delete(m.captures, id)
	m.mu.Unlock()
	if cs != nil {
		if err := cs.Release(); err != nil {
			m.log.WithError(err).Warn("capture stream release failed", nil)
		}
	}
}

// mutate loads the session, runs fn through a hydrated controller, and
// persists the result. The session is saved even when fn errors so
// validation state survives; only load/save failures preempt that.
func (m *Manager) mutate(ctx context.Context, id string, fn func(*wizard.Controller) error) (*wizard.Session, error) {
	sess, err := m.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	def := m.registry.Get(sess.Flow)
	if def == nil {
		return nil, errors.NewFlowNotFoundError(sess.Flow)
	}

	ctrl := wizard.NewController(def, sess, m.submitters[sess.Flow], m.log)
	ctrl.SetEnterHooks(m.hooks[sess.Flow])
	fnErr := fn(ctrl)

	updated := ctrl.Session()
	if err := m.sessions.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, fnErr
}
