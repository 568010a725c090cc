package model

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Sub returns a-b, or nil when either side is nil.
func Sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return Float(*a - *b)
}

// Div returns a/b, or nil when either side is nil or b is zero.
func Div(a, b *float64) *float64 {
	if a == nil || b == nil || *b == 0 {
		return nil
	}
	return Float(*a / *b)
}

// Value dereferences p, reporting whether it was set.
func Value(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
