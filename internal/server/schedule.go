package server

import (
	"context"
	"sync"
	"time"
)

const (
	ScanOff  = 0
	ScanFast = 2 * time.Second
	ScanSlow = 8 * time.Second
)

// ScanSchedule triggers scans at a regular interval.
type ScanSchedule struct {
	callback func(context.Context)

	mu       sync.Mutex
	interval time.Duration
	scanNow  bool
	wake     chan struct{}
}

// NewScanSchedule creates a new ScanSchedule. It does nothing until Run is
// called.
func NewScanSchedule(interval time.Duration, callback func(context.Context)) *ScanSchedule {
	return &ScanSchedule{
		callback: callback,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Interval returns the current scan interval, ScanOff when disabled.
func (s *ScanSchedule) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Toggle enables or disables the scan schedule.
func (s *ScanSchedule) Toggle() bool {
	if s.Interval() == ScanOff {
		// It's off, turn it on
		s.SetSchedule(ScanFast)
		return true
	}
	s.SetSchedule(ScanOff)
	return false
}

// SetSchedule sets the scan interval. Turning the schedule on scans
// immediately.
func (s *ScanSchedule) SetSchedule(interval time.Duration) {
	if interval < 0 {
		interval = ScanOff
	}
	s.mu.Lock()
	isStarting := s.interval == ScanOff && interval != ScanOff
	s.interval = interval
	if isStarting {
		s.scanNow = true
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the schedule until ctx is done. Scans run on the calling
// goroutine, so a slow scan delays the next tick rather than overlapping it.
func (s *ScanSchedule) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		interval, now := s.interval, s.scanNow
		s.scanNow = false
		s.mu.Unlock()

		if now {
			s.callback(ctx)
		}

		var (
			tick  <-chan time.Time
			timer *time.Timer
		)
		if interval != ScanOff {
			timer = time.NewTimer(interval)
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-tick:
			s.callback(ctx)
		}
	}
}
