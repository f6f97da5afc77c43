package leveling

// Points maps the time a user stayed away to a point delta. The elapsed
// seconds are divided by scale (seconds per scoring unit), truncated
// toward zero, and squared. Negative elapsed times can occur when events
// arrive out of order; they are clamped to zero so the delta is never
// negative.
func Points(elapsed int64, scale int64) int64 {
	if elapsed < 0 {
		elapsed = 0
	}
	if scale < 1 {
		scale = 1
	}
	units := elapsed / scale
	return units * units
}
