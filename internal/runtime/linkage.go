package runtime

import (
	"github.com/aretw0/rowflow/pkg/domain"
)

// link maintains the next-variable chain.
// A variable points at the active skip target when its own processing ends.
// Otherwise the next linked variable back-patches it.
// Only the normal flow ends a skip; a computed or disabled target leaves it active.
func (s *scan) link(name string, v *domain.Variable, fb *domain.Feedback) {
	if v.Computed {
		fb.NextVariable = ""
		return
	}

	if !fb.Disabled && v.Type != domain.TypeFilter {
		if s.prevLinked != "" {
			if prev := s.feedback[s.prevLinked]; prev.NextVariable == "" {
				prev.NextVariable = name
			}
		}
		s.prevLinked = name
	}

	if s.skipTarget != name {
		fb.NextVariable = s.skipTarget
	}
}
