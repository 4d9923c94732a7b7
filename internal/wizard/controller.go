// internal/wizard/controller.go
package wizard

import (
	"context"
	"time"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/common/metrics"
)

// Status mirrors the submission lifecycle of a wizard session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// FlowDefinition is the configuration for one wizard flow: ordered steps,
// their validation rules, and declared initial field values. One generic
// controller parameterized this way replaces per-flow copies.
type FlowDefinition struct {
	Name    string                `json:"name"`
	Title   string                `json:"title"`
	Steps   []StepDefinition      `json:"steps"`
	Initial map[string]FieldValue `json:"initial,omitempty"`
}

// TotalSteps returns N for a Step_1..Step_N flow.
func (d *FlowDefinition) TotalSteps() int {
	return len(d.Steps)
}

// Session is the serializable state of one in-progress wizard. It is created
// when a flow opens, mutated by field and navigation events, and discarded on
// close or TTL expiry. There is no persistence beyond the session; a refresh
// mid-flow loses the input.
type Session struct {
	ID          string                `json:"id"`
	Flow        string                `json:"flow"`
	UserID      string                `json:"userId,omitempty"`
	CurrentStep int                   `json:"currentStep"` // 1-indexed
	Fields      map[string]FieldValue `json:"fields"`
	Errors      map[string]string     `json:"errors,omitempty"`
	Status      Status                `json:"status"`
	// Banner carries the dismissible gateway error shown at the top of the
	// current step after a failed submit.
	Banner    string    `json:"banner,omitempty"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubmitFunc performs the flow's terminal operation (create the listing,
// verify the account, file the identity record). It is not idempotent:
// invoking it twice creates duplicates, so callers gate the trigger while a
// submission is in flight.
type SubmitFunc func(ctx context.Context, sess *Session) error

// EnterFunc runs when forward navigation lands on a step. It reads identity
// from the session and edits fields through the store; writes directly to
// sess.Fields are lost when the store syncs back. Hooks must tolerate being
// run again after a Prev and Next over the same boundary.
type EnterFunc func(ctx context.Context, sess *Session, store *FieldStore) error

// Controller sequences one wizard session through its flow definition.
type Controller struct {
	def    *FlowDefinition
	store  *FieldStore
	sess   *Session
	submit SubmitFunc
	enter  map[string]EnterFunc
	log    logger.Logger
}

// NewSession opens a fresh session for a flow.
func NewSession(id string, def *FlowDefinition, userID string) *Session {
	now := time.Now().UTC()
	fields := make(map[string]FieldValue, len(def.Initial))
	for k, v := range def.Initial {
		fields[k] = v
	}
	return &Session{
		ID:          id,
		Flow:        def.Name,
		UserID:      userID,
		CurrentStep: 1,
		Fields:      fields,
		Errors:      map[string]string{},
		Status:      StatusIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewController hydrates a controller over an existing session. CurrentStep
// is clamped into the definition's range: sessions outlive deploys in Redis,
// and a definition that lost steps must not index past the new end.
func NewController(def *FlowDefinition, sess *Session, submit SubmitFunc, log logger.Logger) *Controller {
	if sess.CurrentStep < 1 {
		sess.CurrentStep = 1
	}
	if total := def.TotalSteps(); sess.CurrentStep > total {
		sess.CurrentStep = total
	}

	store := NewFieldStore(def.Initial)
	for k, v := range sess.Fields {
		store.fields[k] = v
	}
	if sess.Errors != nil {
		store.errors = sess.Errors
	}
	return &Controller{
		def:    def,
		store:  store,
		sess:   sess,
		submit: submit,
		log:    log.WithFields(map[string]interface{}{"flow": def.Name, "sessionId": sess.ID}),
	}
}

// SetEnterHooks installs per-step entry hooks keyed by step name.
func (c *Controller) SetEnterHooks(hooks map[string]EnterFunc) {
	c.enter = hooks
}

// Store exposes the field store for edits.
func (c *Controller) Store() *FieldStore {
	return c.store
}

// Session syncs the store back into the session and returns it.
func (c *Controller) Session() *Session {
	c.sess.Fields = c.store.Fields()
	c.sess.Errors = c.store.Errors()
	c.sess.UpdatedAt = time.Now().UTC()
	return c.sess
}

// CurrentStep returns the active 1-indexed step.
func (c *Controller) CurrentStep() int {
	return c.sess.CurrentStep
}

// Next validates the active step and either advances or surfaces the error
// map. At the final step it runs the flow's submit instead and transitions to
// Completed only on success; a failed submit leaves the user on the same step
// with a dismissible banner and no automatic retry.
func (c *Controller) Next(ctx context.Context) error {
	if c.sess.Completed {
		return nil
	}

	step := c.def.Steps[c.sess.CurrentStep-1]
	// Never trust stale validation state: re-run the validator even if this
	// step passed before a Prev().
	errs := ValidateStep(step, c.store)
	if len(errs) > 0 {
		c.store.SetErrors(errs)
		metrics.WizardValidationFailures.WithLabelValues(c.def.Name, step.Name).Inc()
		c.log.Debug("step blocked by validation", map[string]interface{}{
			"step":   c.sess.CurrentStep,
			"fields": len(errs),
		})
		return errors.NewFieldValidationError(errs)
	}
	c.store.ClearErrors()

	if c.sess.CurrentStep < c.def.TotalSteps() {
		c.sess.CurrentStep++
		c.sess.Banner = ""
		metrics.WizardTransitions.WithLabelValues(c.def.Name, "next").Inc()
		return c.runEnterHook(ctx)
	}

	return c.complete(ctx)
}

// runEnterHook fires the entered step's hook. The user stays on the new
// step either way; a failed hook only raises the banner so the side effect
// (a code delivery, a draft prefill) can be retried from there.
func (c *Controller) runEnterHook(ctx context.Context) error {
	step := c.def.Steps[c.sess.CurrentStep-1]
	hook := c.enter[step.Name]
	if hook == nil {
		return nil
	}

	if err := hook(ctx, c.Session(), c.store); err != nil {
		stdErr := errors.AsStandard(err)
		c.sess.Banner = stdErr.Message
		c.log.Warn("step entry hook failed", map[string]interface{}{
			"step":      c.sess.CurrentStep,
			"errorCode": string(stdErr.Code),
		})
		return stdErr
	}
	return nil
}

func (c *Controller) complete(ctx context.Context) error {
	c.sess.Status = StatusSubmitting
	if c.submit != nil {
		if err := c.submit(ctx, c.Session()); err != nil {
			stdErr := errors.AsStandard(err)
			c.sess.Status = StatusFailed
			c.sess.Banner = stdErr.Message
			c.log.Warn("submit failed", map[string]interface{}{
				"step":      c.sess.CurrentStep,
				"errorCode": string(stdErr.Code),
			})
			metrics.WizardTransitions.WithLabelValues(c.def.Name, "submit_failed").Inc()
			return stdErr
		}
	}

	c.sess.Status = StatusSuccess
	c.sess.Completed = true
	c.sess.Banner = ""
	c.store.ClearErrors()
	metrics.WizardTransitions.WithLabelValues(c.def.Name, "completed").Inc()
	return nil
}

// Prev moves back one step, clamped at 1. The step being left is not
// re-validated; backward navigation is always unconditional.
func (c *Controller) Prev() {
	if c.sess.CurrentStep > 1 {
		c.sess.CurrentStep--
		metrics.WizardTransitions.WithLabelValues(c.def.Name, "prev").Inc()
	}
}

// JumpTo navigates directly to an earlier (or the current) step. Forward
// jumps are rejected: a step can only be reached by passing every validator
// before it.
func (c *Controller) JumpTo(step int) error {
	if step < 1 || step > c.def.TotalSteps() || step > c.sess.CurrentStep {
		return errors.NewStepOutOfRangeError(step, c.def.TotalSteps())
	}
	c.sess.CurrentStep = step
	metrics.WizardTransitions.WithLabelValues(c.def.Name, "jump").Inc()
	return nil
}

// DismissBanner clears the submit-failure banner without touching fields.
func (c *Controller) DismissBanner() {
	c.sess.Banner = ""
	if c.sess.Status == StatusFailed {
		c.sess.Status = StatusIdle
	}
}

// Reset returns the session to its just-opened state: step 1, declared
// defaults, no errors, Idle. This is the close/cancel path.
func (c *Controller) Reset() {
	c.store.Reset()
	c.sess.CurrentStep = 1
	c.sess.Status = StatusIdle
	c.sess.Banner = ""
	c.sess.Completed = false
	metrics.WizardTransitions.WithLabelValues(c.def.Name, "reset").Inc()
}
