package common

import (
	"testing"
	"time"
)

func TestStopwatchNeverStartedIsStopped(t *testing.T) {
	sw := NewStopwatch(time.Hour)
	if stopped, _ := sw.Stopped(); !stopped {
		t.Fatal("a stopwatch that was never started must count as stopped")
	}
}

func TestStopwatchRunning(t *testing.T) {
	sw := NewStopwatch(time.Hour)
	sw.Start()
	if stopped, _ := sw.Stopped(); stopped {
		t.Fatal("stopwatch stopped long before its timeout")
	}
}

func TestStopwatchReachesTimeout(t *testing.T) {
	sw := NewStopwatch(time.Millisecond)
	sw.Start()
	time.Sleep(5 * time.Millisecond)
	if stopped, over := sw.Stopped(); !stopped || over <= 0 {
		t.Fatalf("stopwatch should have stopped, over = %s", over)
	}
}
