package reconnect

import (
	"testing"
	"time"
)

func TestScheduleGrowsAndCaps(t *testing.T) {
	s := NewSchedule(10 * time.Millisecond)

	var prev time.Duration
	for i := 0; i < 20; i++ {
		d := s.Next()
		if d <= 0 {
			t.Fatalf("Next() returned non-positive delay %v on iteration %d", d, i)
		}
		if d > 10*time.Millisecond*maxIntervalOf*2 {
			// generous slack for jitter on top of the cap
			t.Fatalf("Next() = %v exceeds the capped interval by more than jitter allows", d)
		}
		if i > 0 && i < 4 && d <= prev {
			// below the cap each step doubles, which outruns ±20% jitter
			t.Fatalf("Next() = %v did not grow past previous %v on iteration %d", d, prev, i)
		}
		prev = d
	}
	_ = prev
}

func TestScheduleResetRestartsFromBase(t *testing.T) {
	s := NewSchedule(5 * time.Millisecond)
	for i := 0; i < 10; i++ {
		s.Next()
	}
	s.Reset()
	d := s.Next()
	if d > 20*time.Millisecond {
		t.Fatalf("Next() after Reset = %v, expected close to the base interval", d)
	}
}

func TestNewScheduleDefaultsNonPositiveBase(t *testing.T) {
	s := NewSchedule(0)
	d := s.Next()
	if d <= 0 {
		t.Fatalf("Next() returned non-positive delay %v for a zero base", d)
	}
}
