package lifecycle

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// Errors returned by the tracker.
var (
	// ErrUnknownTab indicates the tab is not watched
	ErrUnknownTab = errors.New("tab not watched")
	// ErrBadTransition indicates the requested state change is illegal
	ErrBadTransition = errors.New("illegal lifecycle transition")
)

// Suspend reasons carried on events and metrics.
const (
	ReasonInactivity = "inactivity"
	ReasonHostBlur   = "host_blur"
	ReasonRestore    = "restore"
	ReasonCrash      = "renderer_crash"
)

// legal maps each state to the states it may enter.
var legal = map[types.LifecycleState]map[types.LifecycleState]bool{
	types.StateActive:     {types.StateIdle: true, types.StateSuspended: true},
	types.StateIdle:       {types.StateActive: true, types.StateSuspended: true},
	types.StateSuspended:  {types.StateActive: true, types.StateHibernated: true},
	types.StateHibernated: {types.StateActive: true},
}

// SuspendFunc performs the suspend side effects for a tab, then reports
// the final state back through MarkSuspended.
type SuspendFunc func(id, reason string)

// Config tunes the activity clocks.
type Config struct {
	IdleThreshold    time.Duration
	SuspendAfterIdle time.Duration
	BlurSuspendDelay time.Duration
}

type entry struct {
	state     types.LifecycleState
	lastInput time.Time
}

// Tracker drives each tab through active, idle, suspended, and
// hibernated as input arrives and clocks expire. It owns the state
// machine only; suspend side effects run through the registered
// SuspendFunc.
type Tracker struct {
	mu          sync.Mutex
	entries     map[string]*entry // Protected by mu
	hostFocused bool              // Protected by mu
	sched       *scheduler
	cfg         Config
	suspendFn   SuspendFunc
	exemptFn    func(id string) bool
	bus         *events.Bus
	log         *logging.Logger
	metrics     *monitoring.Metrics
	now         func() time.Time
}

// New creates a tracker.
func New(cfg Config, bus *events.Bus, log *logging.Logger) *Tracker {
	return &Tracker{
		entries:     make(map[string]*entry),
		hostFocused: true,
		sched:       newScheduler(),
		cfg:         cfg,
		bus:         bus,
		log:         log,
		now:         time.Now,
	}
}

// WithMetrics adds metrics tracking to the tracker
func (t *Tracker) WithMetrics(metrics *monitoring.Metrics) *Tracker {
	t.metrics = metrics
	return t
}

// WithSuspender routes suspend work through fn instead of flipping
// state directly.
func (t *Tracker) WithSuspender(fn SuspendFunc) *Tracker {
	t.suspendFn = fn
	return t
}

// WithExemption installs the check consulted before a timer suspend.
// Exempt tabs stay idle and their clock re-arms.
func (t *Tracker) WithExemption(fn func(id string) bool) *Tracker {
	t.exemptFn = fn
	return t
}

// Watch starts tracking a tab. Foreground tabs begin active with the
// idle clock running; background tabs begin idle with the suspend clock
// already running.
func (t *Tracker) Watch(id string, foreground bool) {
	t.mu.Lock()
	e := &entry{state: types.StateActive, lastInput: t.now()}
	if !foreground {
		e.state = types.StateIdle
	}
	t.entries[id] = e
	t.mu.Unlock()

	if foreground {
		t.sched.schedule(id, timerIdle, t.cfg.IdleThreshold, func() { t.idleExpired(id) })
	} else {
		t.sched.schedule(id, timerSuspend, t.cfg.SuspendAfterIdle, func() { t.suspendExpired(id) })
	}
}

// Touch records user input. The tab returns to active and its idle
// clock restarts.
func (t *Tracker) Touch(id string) error {
	return t.wake(id)
}

// Resume brings a tab back to active and returns the state it left.
func (t *Tracker) Resume(id string) (types.LifecycleState, error) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return "", ErrUnknownTab
	}
	from := e.state
	t.mu.Unlock()

	if err := t.wake(id); err != nil {
		return "", err
	}
	return from, nil
}

func (t *Tracker) wake(id string) error {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return ErrUnknownTab
	}
	from := e.state
	e.state = types.StateActive
	e.lastInput = t.now()
	t.mu.Unlock()

	t.sched.cancelAll(id)
	t.sched.schedule(id, timerIdle, t.cfg.IdleThreshold, func() { t.idleExpired(id) })

	if from != types.StateActive {
		t.recordTransition(from, types.StateActive)
	}
	if from == types.StateSuspended || from == types.StateHibernated {
		t.publish(events.Event{
			Kind:  events.KindTabResumed,
			TabID: id,
			From:  string(from),
			To:    string(types.StateActive),
		})
	}
	return nil
}

// MarkSuspended records that a tab's suspend side effects completed.
func (t *Tracker) MarkSuspended(id, reason string) error {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return ErrUnknownTab
	}
	from := e.state
	if !legal[from][types.StateSuspended] {
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.RecordIllegalTransition()
		}
		return ErrBadTransition
	}
	e.state = types.StateSuspended
	t.mu.Unlock()

	t.sched.cancelAll(id)
	t.recordTransition(from, types.StateSuspended)
	t.publish(events.Event{
		Kind:   events.KindTabSuspended,
		TabID:  id,
		From:   string(from),
		To:     string(types.StateSuspended),
		Reason: reason,
	})
	return nil
}

// Hibernate records that a suspended tab's surface was discarded and
// only its snapshot remains.
func (t *Tracker) Hibernate(id string) error {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return ErrUnknownTab
	}
	from := e.state
	if !legal[from][types.StateHibernated] {
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.RecordIllegalTransition()
		}
		return ErrBadTransition
	}
	e.state = types.StateHibernated
	t.mu.Unlock()

	t.sched.cancelAll(id)
	t.recordTransition(from, types.StateHibernated)
	t.publish(events.Event{
		Kind:  events.KindTabHibernated,
		TabID: id,
		From:  string(from),
		To:    string(types.StateHibernated),
	})
	return nil
}

// HostBlur arms the short blur clock on every live tab, the active one
// included.
func (t *Tracker) HostBlur() {
	t.mu.Lock()
	t.hostFocused = false
	var ids []string
	for id, e := range t.entries {
		if e.state.Live() {
			ids = append(ids, id)
		}
	}
	t.mu.Unlock()

	for _, id := range ids {
		id := id
		t.sched.schedule(id, timerBlur, t.cfg.BlurSuspendDelay, func() { t.blurExpired(id) })
	}
}

// HostFocus cancels pending blur clocks and restarts the regular ones.
func (t *Tracker) HostFocus() {
	t.sched.cancelKind(timerBlur)

	t.mu.Lock()
	t.hostFocused = true
	type item struct {
		id    string
		state types.LifecycleState
	}
	var live []item
	for id, e := range t.entries {
		if e.state.Live() {
			live = append(live, item{id, e.state})
		}
	}
	t.mu.Unlock()

	for _, it := range live {
		id := it.id
		if it.state == types.StateActive {
			t.sched.schedule(id, timerIdle, t.cfg.IdleThreshold, func() { t.idleExpired(id) })
		} else {
			t.sched.schedule(id, timerSuspend, t.cfg.SuspendAfterIdle, func() { t.suspendExpired(id) })
		}
	}
}

// HostFocused reports whether the host window has focus.
func (t *Tracker) HostFocused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hostFocused
}

// State returns the tab's lifecycle state.
func (t *Tracker) State(id string) (types.LifecycleState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return "", false
	}
	return e.state, true
}

// States returns every watched tab's state.
func (t *Tracker) States() map[string]types.LifecycleState {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]types.LifecycleState, len(t.entries))
	for id, e := range t.entries {
		out[id] = e.state
	}
	return out
}

// Counts returns how many tabs sit in each state.
func (t *Tracker) Counts() map[types.LifecycleState]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[types.LifecycleState]int, 4)
	for _, e := range t.entries {
		out[e.state]++
	}
	return out
}

// LastInput returns when the tab last saw user input.
func (t *Tracker) LastInput(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return e.lastInput, true
}

// Forget stops tracking a closed tab.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
	t.sched.cancelAll(id)
}

// Close stops every clock.
func (t *Tracker) Close() {
	t.sched.stop()
}

// idleExpired moves an untouched active tab to idle and starts the
// suspend leg.
func (t *Tracker) idleExpired(id string) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok || e.state != types.StateActive {
		t.mu.Unlock()
		return
	}
	e.state = types.StateIdle
	t.mu.Unlock()

	t.recordTransition(types.StateActive, types.StateIdle)
	t.publish(events.Event{
		Kind:  events.KindTabIdle,
		TabID: id,
		From:  string(types.StateActive),
		To:    string(types.StateIdle),
	})
	t.sched.schedule(id, timerSuspend, t.cfg.SuspendAfterIdle, func() { t.suspendExpired(id) })
}

// suspendExpired fires the timer suspend for a tab still idle. Exempt
// tabs stay idle and the clock re-arms.
func (t *Tracker) suspendExpired(id string) {
	if t.exemptFn != nil && t.exemptFn(id) {
		t.mu.Lock()
		_, ok := t.entries[id]
		t.mu.Unlock()
		if ok {
			t.sched.schedule(id, timerSuspend, t.cfg.SuspendAfterIdle, func() { t.suspendExpired(id) })
		}
		return
	}

	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok || e.state != types.StateIdle {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	if t.suspendFn != nil {
		t.suspendFn(id, ReasonInactivity)
		return
	}
	if err := t.MarkSuspended(id, ReasonInactivity); err != nil {
		t.log.Warn("timer suspend failed", zap.String("tab_id", id), zap.Error(err))
	}
}

// blurExpired fires the blur suspend. No exemptions apply here; pinned
// and active tabs suspend too once the host loses focus.
func (t *Tracker) blurExpired(id string) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok || !e.state.Live() {
		t.mu.Unlock()
		return
	}
	if t.hostFocused {
		// Focus came back between firing and handling
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	if t.suspendFn != nil {
		t.suspendFn(id, ReasonHostBlur)
		return
	}
	if err := t.MarkSuspended(id, ReasonHostBlur); err != nil {
		t.log.Warn("blur suspend failed", zap.String("tab_id", id), zap.Error(err))
	}
}

func (t *Tracker) recordTransition(from, to types.LifecycleState) {
	if t.metrics != nil {
		t.metrics.RecordTransition(string(from), string(to))
	}
}

func (t *Tracker) publish(evt events.Event) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(evt)
}
