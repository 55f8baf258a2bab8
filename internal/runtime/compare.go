package runtime

import (
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/spf13/cast"
)

// looseEqual compares row values the way data-entry forms do:
// numbers match their string spelling ("3" == 3) and empty only matches empty.
func looseEqual(a, b any) bool {
	if domain.IsEmpty(a) || domain.IsEmpty(b) {
		return domain.IsEmpty(a) && domain.IsEmpty(b)
	}
	if fa, ok := toNumber(a); ok {
		if fb, ok := toNumber(b); ok {
			return fa == fb
		}
	}
	sa, errA := cast.ToStringE(a)
	sb, errB := cast.ToStringE(b)
	return errA == nil && errB == nil && sa == sb
}

// toNumber converts a recorded value to a float. Blank strings are not numbers.
func toNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok && s == "" {
		return 0, false
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// optionKey is the string form of a value used to look up an option.
func optionKey(v any) string {
	return cast.ToString(v)
}
