package common

import (
	"fmt"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// Approximate renders a duration as its largest whole unit, "3 hours"
// style. Negative durations render as "0 seconds".
func Approximate(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	units := []struct {
		d    time.Duration
		name string
	}{
		{week, "week"},
		{day, "day"},
		{time.Hour, "hour"},
		{time.Minute, "minute"},
	}
	for _, unit := range units {
		if d >= unit.d {
			return plural(int64(d/unit.d), unit.name)
		}
	}
	return plural(int64(d/time.Second), "second")
}

func plural(n int64, name string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", name)
	}
	return fmt.Sprintf("%d %ss", n, name)
}
