package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/itsloashh/yards-app/internal/models"
)

var (
	ErrUnsupported      = errors.New("location: geolocation not supported")
	ErrPermissionDenied = errors.New("location: permission denied")
	ErrTimeout          = errors.New("location: request timed out")
	ErrUnavailable      = errors.New("location: position unavailable")
)

// Options mirror the device geolocation request options.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultOptions prefers a fix up to five minutes old over waiting.
var DefaultOptions = Options{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   5 * time.Minute,
}

// Device acquires the current position of the host.
type Device interface {
	CurrentPosition(ctx context.Context, opts Options) (models.Coordinate, error)
}

// StaticDevice always answers with Coord, or Err when set.
type StaticDevice struct {
	Coord models.Coordinate
	Err   error
}

func (d StaticDevice) CurrentPosition(ctx context.Context, _ Options) (models.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinate{}, err
	}
	if d.Err != nil {
		return models.Coordinate{}, d.Err
	}
	return d.Coord, nil
}

type report struct {
	coord models.Coordinate
	err   error
}

// ReportedDevice is fed by the client: the page reads the browser position
// and posts either a fix or an error. Pending requests wait for the next
// report until their timeout.
type ReportedDevice struct {
	mu          sync.Mutex
	now         func() time.Time
	unsupported bool
	hasFix      bool
	fix         models.Coordinate
	fixAt       time.Time
	waiters     map[chan report]struct{}
}

// NewReportedDevice constructs a device with no known fix.
func NewReportedDevice(now func() time.Time) *ReportedDevice {
	if now == nil {
		now = time.Now
	}
	return &ReportedDevice{now: now, waiters: make(map[chan report]struct{})}
}

// Report records a fix and releases every pending request.
func (d *ReportedDevice) Report(c models.Coordinate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unsupported = false
	d.hasFix = true
	d.fix = c
	d.fixAt = d.now()
	d.release(report{coord: c})
}

// ReportError fails every pending request with err. ErrUnsupported also
// sticks for later requests until a fix is reported.
func (d *ReportedDevice) ReportError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if errors.Is(err, ErrUnsupported) {
		d.unsupported = true
	}
	d.release(report{err: err})
}

func (d *ReportedDevice) release(r report) {
	for ch := range d.waiters {
		ch <- r
		delete(d.waiters, ch)
	}
}

// Pending reports whether a request is waiting for the client.
func (d *ReportedDevice) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiters) > 0
}

// CurrentPosition returns a cached fix no older than opts.MaximumAge or waits
// for the next report.
func (d *ReportedDevice) CurrentPosition(ctx context.Context, opts Options) (models.Coordinate, error) {
	d.mu.Lock()
	if d.unsupported {
		d.mu.Unlock()
		return models.Coordinate{}, ErrUnsupported
	}
	if d.hasFix && d.now().Sub(d.fixAt) <= opts.MaximumAge {
		c := d.fix
		d.mu.Unlock()
		return c, nil
	}
	ch := make(chan report, 1)
	d.waiters[ch] = struct{}{}
	d.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions.Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.coord, r.err
	case <-timer.C:
		d.drop(ch)
		return models.Coordinate{}, ErrTimeout
	case <-ctx.Done():
		d.drop(ch)
		return models.Coordinate{}, ctx.Err()
	}
}

func (d *ReportedDevice) drop(ch chan report) {
	d.mu.Lock()
	delete(d.waiters, ch)
	d.mu.Unlock()
}
