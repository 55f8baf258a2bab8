package runtime

import (
	"github.com/aretw0/rowflow/pkg/domain"
)

// result projects the scan into the requested output shape.
func (s *scan) result(mode domain.OutputMode) *domain.Result {
	res := &domain.Result{
		Summary:      s.summary(),
		Current:      s.current,
		FirstEmpty:   s.firstEmpty,
		FirstFailure: s.firstFailure,
		Order:        s.order,
	}

	if s.opts.AutoFill {
		res.AutoFilled = s.autoFilled
	}

	if mode != domain.OutputLegacy {
		res.Feedback = make(map[string]domain.Feedback, len(s.order))
		for _, name := range s.order {
			res.Feedback[name] = *s.feedback[name]
		}
		res.FeedbackSummary = s.fold()
	}

	if mode != domain.OutputDetailed {
		res.LegacyStates = make(map[string]domain.State, len(s.order))
		res.LegacyNext = make(map[string]string, len(s.order))
		for _, name := range s.order {
			fb := s.feedback[name]
			res.LegacyStates[name] = fb.State
			res.LegacyNext[name] = fb.NextVariable
		}
	}

	return res
}

func (s *scan) summary() domain.Summary {
	switch {
	case s.problems > 0:
		return domain.SummaryProblems
	case s.current != "" && s.answered > s.freeAnswered:
		return domain.SummaryIncomplete
	case s.current != "":
		return domain.SummaryEmpty
	default:
		return domain.SummaryOK
	}
}

// fold reduces the feedback of every variable in flow order.
// The state follows each variable until the first problem, then stays there.
func (s *scan) fold() *domain.FeedbackSummary {
	sum := &domain.FeedbackSummary{Pending: domain.False}
	for _, name := range s.order {
		fb := s.feedback[name]
		if !sum.HasProblem {
			sum.State = fb.State
		}
		sum.HasValue = sum.HasValue || fb.HasValue
		sum.HasProblem = sum.HasProblem || fb.HasProblem
		sum.Pending = orPending(sum.Pending, fb.Pending)
	}
	return sum
}

// orPending is a three-valued OR: True wins, then Unknown, then False.
func orPending(a, b domain.Tristate) domain.Tristate {
	switch {
	case a == domain.True || b == domain.True:
		return domain.True
	case a == domain.Unknown || b == domain.Unknown:
		return domain.Unknown
	default:
		return domain.False
	}
}
