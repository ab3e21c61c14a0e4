package timeutil

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	if got := LoadLocation(""); got != time.UTC {
		t.Fatalf("empty name: got %v, want UTC", got)
	}
	if got := LoadLocation("Not/AZone"); got != time.UTC {
		t.Fatalf("unknown name: got %v, want UTC", got)
	}
}

func TestClock(t *testing.T) {
	loc := time.FixedZone("EDT", -4*60*60)
	now := Clock(loc)()
	if now.Location() != loc {
		t.Fatalf("clock location = %v, want %v", now.Location(), loc)
	}
	if d := time.Since(now); d < 0 || d > time.Minute {
		t.Fatalf("clock drift %v", d)
	}
}
