package runtime

import (
	"github.com/aretw0/rowflow/pkg/domain"
)

// autoFill records the derived default of an empty variable.
// It never changes the classification nor the row.
func (s *scan) autoFill(name string) {
	fn, ok := s.cb.values[name]
	if !ok {
		return
	}
	if value := fn(s.view); !domain.IsEmpty(value) {
		s.autoFilled[name] = value
	}
}
