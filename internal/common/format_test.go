package common

import (
	"testing"
	"time"
)

func TestApproximate(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{45 * time.Second, "45 seconds"},
		{90 * time.Second, "1 minute"},
		{30 * time.Minute, "30 minutes"},
		{time.Hour, "1 hour"},
		{26 * time.Hour, "1 day"},
		{3 * day, "3 days"},
		{10 * day, "1 week"},
		{3 * week, "3 weeks"},
		{-5 * time.Second, "0 seconds"},
	}
	for _, tc := range cases {
		if got := Approximate(tc.d); got != tc.want {
			t.Errorf("Approximate(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
