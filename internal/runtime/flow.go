package runtime

import (
	"github.com/aretw0/rowflow/pkg/domain"
)

// flowState is the accumulator threaded through the scan.
type flowState struct {
	skipTarget string // variable being jumped to ("" = not skipping)
	skipOrigin string // variable whose skip rule is active

	passedCurrent bool // a required empty variable became current
	hasOmission   bool // an answer was found after the current variable

	answered     int
	freeAnswered int
	problems     int

	prevLinked string // last non-disabled, non-filter variable
}

// scan is one evaluation of a row. It is discarded after the result is built.
type scan struct {
	flowState

	engine *Engine
	schema *domain.Schema
	row    domain.Row
	view   domain.Row // copy handed to callbacks
	cb     *callbacks
	opts   domain.Options

	order    []string
	feedback map[string]*domain.Feedback

	current      string
	firstEmpty   string
	firstFailure string
	autoFilled   map[string]any
}

func newScan(e *Engine, schema *domain.Schema, row domain.Row, cb *callbacks, opts domain.Options) *scan {
	return &scan{
		engine:     e,
		schema:     schema,
		row:        row,
		view:       cloneRow(row),
		cb:         cb,
		opts:       opts,
		order:      schema.Names(),
		feedback:   make(map[string]*domain.Feedback, schema.Len()),
		autoFilled: make(map[string]any),
	}
}

// visit classifies one variable. The cases are tested in priority order and
// exactly one of them decides the state.
func (s *scan) visit(name string, v *domain.Variable) error {
	value := s.row.Value(name)
	empty := domain.IsEmpty(value)

	fb := &domain.Feedback{HasValue: !empty, Pending: domain.False}
	s.feedback[name] = fb

	switch {
	case v.Computed:
		fb.Disabled = true
		fb.State = domain.StateComputed

	case s.hasOmission:
		s.fail(name, fb, domain.StateOmissionOutOfFlow)

	case s.insideSkip(name, v):
		fb.Disabled = true
		if empty || v.FreeEntry {
			fb.State = domain.StateSkipped
		} else {
			s.fail(name, fb, domain.StateSkipOutOfFlow)
		}

	case s.passedCurrent:
		if empty || v.FreeEntry {
			fb.State = domain.StateNotYet
			fb.Pending = domain.Unknown
		} else {
			s.hasOmission = true
			if s.firstFailure == "" {
				s.firstFailure = s.current
			}
			s.fail(name, fb, domain.StateOmissionOutOfFlow)
		}

	case s.notEnabled(name, v):
		fb.Disabled = true
		fb.NotEnabled = true
		if empty || v.FreeEntry {
			fb.State = domain.StateSkipped
		} else {
			// A subordinate field answered while its parent does not ask for it
			// is reported as a skip violation.
			s.fail(name, fb, domain.StateSkipOutOfFlow)
		}

	default:
		if err := s.inFlow(name, v, value, fb); err != nil {
			return err
		}
	}

	if fb.State == "" {
		return &domain.VariableError{Variable: name, Err: domain.ErrUnclassified}
	}

	s.link(name, v, fb)
	return nil
}

// insideSkip reports whether the variable lies between an active skip and its target.
func (s *scan) insideSkip(name string, v *domain.Variable) bool {
	return s.skipTarget != "" && name != s.skipTarget && !s.exempt(v)
}

// exempt reports whether a subordinate field is asked by the very answer that opened the skip.
func (s *scan) exempt(v *domain.Variable) bool {
	return v.IsSubordinate() &&
		v.DependentOn == s.skipOrigin &&
		looseEqual(s.row.Value(v.DependentOn), v.DependentValue)
}

// notEnabled reports whether a dependency or the enabling function turns the variable off.
// Filters evaluate their enabling function in the normal flow instead.
func (s *scan) notEnabled(name string, v *domain.Variable) bool {
	if v.IsSubordinate() && !looseEqual(s.row.Value(v.DependentOn), v.DependentValue) {
		return true
	}
	return v.Type != domain.TypeFilter && !s.enabled(name)
}

func (s *scan) enabled(name string) bool {
	fn, ok := s.cb.enabling[name]
	if !ok {
		return true
	}
	return fn(s.view)
}

// inFlow handles a variable reached by the normal flow.
func (s *scan) inFlow(name string, v *domain.Variable, value any, fb *domain.Feedback) error {
	if !(s.skipTarget != "" && name != s.skipTarget && s.exempt(v)) {
		s.skipTarget, s.skipOrigin = "", ""
	}

	if domain.IsEmpty(value) {
		s.unanswered(name, v, fb)
		return nil
	}

	s.answered++
	if v.FreeEntry {
		s.freeAnswered++
	}

	activated := false
	switch {
	case s.isNoAnswer(value):
		fb.State = domain.StateValid
		activated = s.activate(v.NoAnswerSkip, name)

	case v.Type == domain.TypeOptions:
		if v.Options == nil {
			return &domain.VariableError{Variable: name, Err: domain.ErrMissingOptions}
		}
		opt, ok := v.Options[optionKey(value)]
		if !ok {
			s.fail(name, fb, domain.StateInvalid)
			break
		}
		fb.State = domain.StateValid
		activated = s.activate(opt.Skip, name)

	case v.Type == domain.TypeNumeric:
		// A value that is not a number cannot break a bound.
		n, ok := toNumber(value)
		switch {
		case !ok:
			fb.State = domain.StateValid
		case v.Max != nil && n > *v.Max, v.Min != nil && n < *v.Min:
			s.fail(name, fb, domain.StateOutOfRange)
		default:
			fb.State = domain.StateValid
		}

	default:
		fb.State = domain.StateValid
	}

	if !activated {
		s.activate(v.UnconditionalSkip, name)
	}
	return nil
}

// unanswered handles an empty variable reached by the normal flow.
func (s *scan) unanswered(name string, v *domain.Variable, fb *domain.Feedback) {
	if v.Type == domain.TypeFilter {
		if s.enabled(name) {
			fb.State = domain.StateValid
			return
		}
		fb.State = domain.StateSkipped
		s.activate(v.UnconditionalSkip, name)
		return
	}

	if s.firstEmpty == "" {
		s.firstEmpty = name
	}
	if s.opts.AutoFill {
		s.autoFill(name)
	}

	if !v.Optional {
		fb.State = domain.StateActual
		fb.Pending = domain.True
		s.current = name
		s.passedCurrent = true
		return
	}

	fb.State = domain.StateOptionalUnanswered
	fb.Pending = domain.Unknown
	s.activate(v.UnconditionalSkip, name)
}

// activate starts a skip towards target. It reports whether a skip was started.
func (s *scan) activate(target, origin string) bool {
	if target == "" {
		return false
	}
	s.skipTarget = target
	s.skipOrigin = origin
	return true
}

func (s *scan) fail(name string, fb *domain.Feedback, state domain.State) {
	fb.State = state
	s.problems++
	if s.firstFailure == "" {
		s.firstFailure = name
	}
}

func (s *scan) isNoAnswer(value any) bool {
	for _, sentinel := range s.engine.noAnswer {
		if looseEqual(value, sentinel) {
			return true
		}
	}
	return false
}

// finish closes the next-pointer chain and relabels the tail after an omission.
func (s *scan) finish() {
	if s.prevLinked != "" {
		if last := s.feedback[s.prevLinked]; last.NextVariable == "" {
			last.NextVariable = s.schema.EndMarker
		}
	}

	if s.hasOmission {
		for _, name := range s.order {
			fb := s.feedback[name]
			switch fb.State {
			case domain.StateActual:
				fb.State = domain.StateOmitted
			case domain.StateNotYet:
				fb.State = domain.StateOmissionOutOfFlow
			}
		}
	}

	for _, fb := range s.feedback {
		fb.HasProblem = fb.State.IsProblem()
	}
}
