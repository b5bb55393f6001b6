// Package detector turns a stream of loudness levels into attack, active,
// sustain and respite states, e.g. to start and stop a recorder.
package detector

import (
	"strconv"
	"time"

	"github.com/pifon/rmsmeter/internal/conf"
)

// State is a detector state.
type State int

const (
	StateIdle State = iota
	StateAttack
	StateActive
	StateSustain
	StateRespite
)

var stateNames = [...]string{"idle", "attack", "active", "sustain", "respite"}

// String returns the state name used in output lines.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

// EventKind tells which fields of an Event are set.
type EventKind int

const (
	EventLevel EventKind = iota
	EventState
	EventActive
)

// Event is one detector output.
type Event struct {
	Kind     EventKind
	State    State         // EventState
	Active   bool          // EventActive
	Max      int           // EventLevel: peak since the last idle
	Cur      int           // EventLevel: peak of the last update period
	Duration time.Duration // EventLevel: time since the attack began
}

// AppendText appends the event as an output line without newline:
// "state <name>", "active <bool>" or "level <max> <cur> <seconds>".
func (e Event) AppendText(dst []byte) []byte {
	switch e.Kind {
	case EventState:
		dst = append(dst, "state "...)
		return append(dst, e.State.String()...)
	case EventActive:
		dst = append(dst, "active "...)
		return strconv.AppendBool(dst, e.Active)
	default:
		dst = append(dst, "level "...)
		dst = strconv.AppendInt(dst, int64(e.Max), 10)
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(e.Cur), 10)
		dst = append(dst, ' ')
		return strconv.AppendInt(dst, int64(e.Duration/time.Second), 10)
	}
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return string(e.AppendText(nil))
}

// Detector tracks levels and evaluates the state machine once per update
// period. It is not safe for concurrent use.
type Detector struct {
	opts conf.DetectorSettings

	state  State
	active bool

	curLevel int
	maxLevel int

	lastUpdate   time.Time
	attackBegin  time.Time
	sustainBegin time.Time
	respiteBegin time.Time
	attacked     bool
}

// New creates a Detector in the idle state.
func New(opts conf.DetectorSettings) *Detector {
	return &Detector{opts: opts}
}

// State returns the current state.
func (d *Detector) State() State { return d.state }

// Active reports whether the detector is between attack and respite.
func (d *Detector) Active() bool { return d.active }

// HandleLevel feeds one level observed at now. Levels are folded into the
// current and maximum peak; once per update period the peaks are evaluated
// and the resulting events returned. Between evaluations it returns nil.
func (d *Detector) HandleLevel(now time.Time, level int) []Event {
	d.curLevel = max(d.curLevel, level)
	d.maxLevel = max(d.maxLevel, level)

	if !d.lastUpdate.IsZero() && now.Sub(d.lastUpdate) < d.opts.Update {
		return nil
	}

	events := d.processLevels(now)
	d.lastUpdate = now
	d.curLevel = 0
	return events
}

func (d *Detector) processLevels(now time.Time) []Event {
	var events []Event

	if d.opts.Trace || d.state != StateIdle {
		var duration time.Duration
		if d.attacked {
			duration = now.Sub(d.attackBegin)
		}
		events = append(events, Event{
			Kind:     EventLevel,
			Max:      d.maxLevel,
			Cur:      d.curLevel,
			Duration: duration,
		})
	}

	return d.update(now, d.curLevel, events)
}

// update advances the state machine with the peak of the last period
func (d *Detector) update(now time.Time, peak int, events []Event) []Event {
	oldState, oldActive := d.state, d.active

	switch d.state {
	case StateIdle:
		if peak >= d.opts.ALevel {
			d.attackBegin = now
			d.attacked = true
			d.state = StateAttack
		}

	case StateAttack:
		switch {
		case peak < d.opts.ALevel:
			d.state = StateIdle
		case now.Sub(d.attackBegin) >= d.opts.Attack:
			d.state = StateActive
			d.active = true
		}

	case StateActive:
		if peak < d.opts.SLevel {
			d.sustainBegin = now
			d.state = StateSustain
		}

	case StateSustain:
		switch {
		case peak >= d.opts.SLevel:
			d.state = StateActive
		case now.Sub(d.sustainBegin) >= d.opts.Sustain:
			d.state = StateRespite
			d.active = false
			d.respiteBegin = now
		}

	case StateRespite:
		if now.Sub(d.respiteBegin) >= d.opts.Respite {
			d.state = StateIdle
			d.maxLevel = 0
		}
	}

	if d.state != oldState {
		events = append(events, Event{Kind: EventState, State: d.state})
	}
	if d.active != oldActive {
		events = append(events, Event{Kind: EventActive, Active: d.active})
	}
	return events
}
