package domain

// Row holds the recorded values of a record, keyed by variable name.
// Values are strings, numbers, booleans or nil. A missing key and a nil
// value are both empty.
type Row map[string]any

// Value returns the recorded value of a variable (nil when absent).
func (r Row) Value(name string) any {
	if r == nil {
		return nil
	}
	return r[name]
}

// IsEmpty reports whether a value counts as "not answered".
func IsEmpty(v any) bool {
	return v == nil
}
