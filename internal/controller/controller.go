// internal/controller/controller.go
//
// Medcost – Submission Controller.
//
// Context
//   One Controller owns the state of one form: the held Snapshot, the last
//   Diagnostics, the busy flag, and the Outcome.  It gates every submit on
//   the Validation Engine and lets at most one prediction request be in
//   flight.  The busy flag is the only mutual-exclusion mechanism; a submit
//   that arrives while busy is ignored, not queued.
//
// Cycle
//   Idle → validate → (rejected → Idle)
//                   | (submitting → settled(estimate | failure) → Idle)
//
//   •  Rejected cycles store Diagnostics and leave busy and Outcome alone.
//   •  Accepted cycles clear Diagnostics, set busy, and set Outcome to
//      Pending before the request leaves.
//   •  Requests run on a context detached from the caller, so they always
//      settle and their result is always applied, even if the held values
//      have changed since.  No sequencing token is attached.
//
// Rendering layers either poll State or register with Subscribe.  Every
// transition bumps State.Version; subscribers see versions in increasing
// order, and a copy that loses the race to a newer one is never delivered.
//
//------------------------------------------------------------------------------

package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/medcost/internal/form"
	"github.com/yanizio/medcost/internal/metrics"
	"github.com/yanizio/medcost/internal/predict"
)

var (
	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("submission already in progress")

	// ErrInvalid is returned when validation suppressed the request.  The
	// error also wraps a *form.ValidationError.
	ErrInvalid = errors.New("submission rejected by validation")

	// ErrUnknownField is returned by SetField for names the form lacks.
	ErrUnknownField = errors.New("unknown field")
)

// Predictor issues one prediction request.  *predict.Client satisfies it.
type Predictor interface {
	Predict(ctx context.Context, req predict.Request) (float64, error)
}

// State is a copy of everything a renderer needs.
type State struct {
	Values  form.Snapshot    `json:"values"`
	Errors  form.Diagnostics `json:"errors"`
	Busy    bool             `json:"busy"`
	Outcome Outcome          `json:"outcome"`
	Version uint64           `json:"version"`
}

// Controller is safe for concurrent use.
type Controller struct {
	def    *form.FormDef
	client Predictor
	log    *zap.SugaredLogger

	mu      sync.Mutex
	values  form.Snapshot
	errors  form.Diagnostics
	busy    bool
	outcome Outcome
	version uint64

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int

	// deliverMu orders callbacks; delivered is the newest version sent.
	deliverMu sync.Mutex
	delivered uint64
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger attaches a logger.  The global zap logger is used otherwise.
func WithLogger(l *zap.SugaredLogger) Option { return func(c *Controller) { c.log = l } }

// New returns an idle Controller holding def's default values.
func New(def *form.FormDef, client Predictor, opts ...Option) *Controller {
	c := &Controller{
		def:    def,
		client: client,
		values: def.Defaults(),
		errors: form.Diagnostics{},
		subs:   make(map[int]func(State)),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.S()
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Values:  c.values.Clone(),
		Errors:  c.errors.Clone(),
		Busy:    c.busy,
		Outcome: c.outcome,
		Version: c.version,
	}
}

// transitionLocked records a change and returns the copy to publish.
func (c *Controller) transitionLocked() State {
	c.version++
	return c.stateLocked()
}

// SetField updates one held value, the keystroke analogue.  Diagnostics are
// only recomputed on submit.
func (c *Controller) SetField(name, value string) error {
	if _, ok := c.def.Field(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	c.mu.Lock()
	c.values[name] = value
	st := c.transitionLocked()
	c.mu.Unlock()

	c.notify(st)
	return nil
}

// -----------------------------------------------------------------------------
// Submission
// -----------------------------------------------------------------------------

// Ticket tracks one accepted submission.
type Ticket struct {
	done    chan struct{}
	outcome Outcome
}

// Done is closed once the request settles.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Outcome is the settled result.  Only meaningful after Done is closed.
func (t *Ticket) Outcome() Outcome { return t.outcome }

// Begin runs the gate and, when it passes, sends the request in the
// background.  snap replaces the held values.  It returns ErrBusy while a
// request is in flight and an error wrapping ErrInvalid when validation
// fails; in both cases no request is issued.
func (c *Controller) Begin(ctx context.Context, snap form.Snapshot) (*Ticket, error) {
	c.mu.Lock()
	for _, f := range c.def.Fields {
		if v, ok := snap[f.Name]; ok {
			c.values[f.Name] = v
		}
	}

	if c.busy {
		st := c.transitionLocked()
		c.mu.Unlock()
		metrics.BusyRejections.Inc()
		c.log.Debugw("submit ignored while busy", "form", c.def.ID)
		c.notify(st)
		return nil, ErrBusy
	}

	req, err := form.Coerce(c.def, c.values)
	if err != nil {
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			c.errors = ve.Fields.Clone()
		}
		st := c.transitionLocked()
		c.mu.Unlock()
		metrics.ValidationRejections.Inc()
		c.log.Infow("submit rejected", "form", c.def.ID, "fields", st.Errors.Fields())
		c.notify(st)
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	c.errors = form.Diagnostics{}
	c.busy = true
	c.outcome = Outcome{Kind: Pending}
	st := c.transitionLocked()
	c.mu.Unlock()
	c.notify(st)

	t := &Ticket{done: make(chan struct{})}
	go c.run(context.WithoutCancel(ctx), req, t)
	return t, nil
}

// Submit is Begin followed by waiting for the request to settle.  It
// returns the settled Outcome; estimate and failure both return a nil error.
func (c *Controller) Submit(ctx context.Context, snap form.Snapshot) (Outcome, error) {
	t, err := c.Begin(ctx, snap)
	if err != nil {
		return Outcome{}, err
	}
	<-t.Done()
	return t.Outcome(), nil
}

// run performs the single outbound request and applies its result.
func (c *Controller) run(ctx context.Context, req predict.Request, t *Ticket) {
	defer close(t.done)

	c.log.Infow("prediction requested", "form", c.def.ID,
		"age", req.Age, "sex", req.Sex, "bmi", req.BMI,
		"children", req.Children, "smoker", req.Smoker, "region", req.Region)

	value, err := c.client.Predict(ctx, req)

	var out Outcome
	if err != nil {
		out = FailureOf(predict.Message(err))
		metrics.Submissions.WithLabelValues(metrics.ResultFailure).Inc()
		c.log.Warnw("prediction failed", "form", c.def.ID, "err", err)
	} else {
		out = EstimateOf(value)
		metrics.Submissions.WithLabelValues(metrics.ResultEstimate).Inc()
		c.log.Infow("prediction settled", "form", c.def.ID, "value", value)
	}
	t.outcome = out

	c.mu.Lock()
	c.busy = false
	c.outcome = out
	st := c.transitionLocked()
	c.mu.Unlock()

	c.notify(st)
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// Subscribe registers fn to receive a State copy after transitions, in
// Version order.  A copy overtaken by a newer one before delivery is
// skipped.  Callbacks run synchronously on the goroutine that caused the
// change and must not call SetField, Begin, or Submit; State is fine.  The
// returned func unregisters.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Controller) notify(st State) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if st.Version <= c.delivered {
		return
	}
	c.delivered = st.Version

	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
