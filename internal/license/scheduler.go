package license

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler reruns the cached validation on an interval and logs expiry
// alerts so an expiring license is noticed before the POS stops working.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	onResult func(Status)
	onAlert  func(kind string, daysLeft int, expiry string)

	mu         sync.Mutex
	lastAlerts map[string]time.Time // alert kind -> last emission, max 1/day
}

func NewScheduler(e *Engine, interval time.Duration, onResult func(Status)) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		engine:     e,
		interval:   interval,
		onResult:   onResult,
		lastAlerts: make(map[string]time.Time),
	}
}

// OnAlert registers a hook invoked for each emitted expiry alert, at most
// once per kind per day. Must be called before Start.
func (s *Scheduler) OnAlert(fn func(kind string, daysLeft int, expiry string)) {
	s.onAlert = fn
}

// Start checks immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.Check(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Check(ctx)
			}
		}
	}()
}

func (s *Scheduler) Check(ctx context.Context) {
	st, err := s.engine.ValidateCachedLicense(ctx)
	if err != nil {
		log.Printf("License Scheduler: recheck error: %v", err)
		return
	}
	if s.onResult != nil {
		s.onResult(st)
	}
	if st.OK {
		s.alertOnExpiry(st.Payload)
	}
}

func (s *Scheduler) alertOnExpiry(p *LicensePayload) {
	expiry, err := ParseISOUTC(p.ExpiryDate)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	days := int(expiry.Sub(now).Hours() / 24)

	var alertType string
	switch {
	case days <= 7:
		alertType = "7d"
	case days <= 30:
		alertType = "30d"
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if last, seen := s.lastAlerts[alertType]; seen && isSameDay(last, now) {
		return
	}
	log.Printf("LICENSE ALERT [%s]: expires in %d days (%s)", alertType, days, p.ExpiryDate)
	s.lastAlerts[alertType] = now
	if s.onAlert != nil {
		s.onAlert(alertType, days, p.ExpiryDate)
	}
}

func isSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
