package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itsloashh/yards-app/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestReportedDeviceUsesFreshCache(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	dev := NewReportedDevice(clock.Now)
	dev.Report(here)

	clock.Advance(4 * time.Minute)
	got, err := dev.CurrentPosition(context.Background(), DefaultOptions)
	if err != nil || got != here {
		t.Fatalf("CurrentPosition = %v, %v", got, err)
	}
}

func TestReportedDeviceWaitsWhenCacheStale(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	dev := NewReportedDevice(clock.Now)
	dev.Report(here)
	clock.Advance(6 * time.Minute)

	next := models.Coordinate{Lat: 10, Lng: 20}
	done := make(chan models.Coordinate, 1)
	go func() {
		c, err := dev.CurrentPosition(context.Background(), DefaultOptions)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- c
	}()

	deadline := time.After(time.Second)
	for !dev.Pending() {
		select {
		case <-deadline:
			t.Fatal("request never became pending")
		case <-time.After(time.Millisecond):
		}
	}
	dev.Report(next)

	select {
	case got := <-done:
		if got != next {
			t.Fatalf("got %v, want %v", got, next)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
}

func TestReportedDeviceErrors(t *testing.T) {
	dev := NewReportedDevice(nil)
	errCh := make(chan error, 1)
	go func() {
		_, err := dev.CurrentPosition(context.Background(), DefaultOptions)
		errCh <- err
	}()
	for !dev.Pending() {
		time.Sleep(time.Millisecond)
	}
	dev.ReportError(ErrPermissionDenied)
	if err := <-errCh; !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}

	dev.ReportError(ErrUnsupported)
	if _, err := dev.CurrentPosition(context.Background(), DefaultOptions); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unsupported not sticky: %v", err)
	}

	dev.Report(here)
	if got, err := dev.CurrentPosition(context.Background(), DefaultOptions); err != nil || got != here {
		t.Fatalf("after report: %v, %v", got, err)
	}
}

func TestReportedDeviceTimeoutAndCancel(t *testing.T) {
	dev := NewReportedDevice(nil)
	opts := DefaultOptions
	opts.Timeout = 10 * time.Millisecond
	if _, err := dev.CurrentPosition(context.Background(), opts); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
	if dev.Pending() {
		t.Fatal("timed-out waiter left behind")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := dev.CurrentPosition(ctx, DefaultOptions); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
