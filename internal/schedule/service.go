// Package schedule re-runs extraction on a cron schedule (watch mode).
// Extraction stays a batch pass; this only decides when the next pass
// starts.
package schedule

import (
	"fmt"
	"log"
	"sync"

	rcron "github.com/robfig/cron/v3"
)

// RefreshFunc runs one extraction pass and returns a short report line.
type RefreshFunc func() (string, error)

// Notify receives the report line (or the error text) after each run.
// Optional.
type Notify func(text string)

type Service struct {
	spec    string
	refresh RefreshFunc
	notify  Notify

	mu   sync.Mutex
	cron *rcron.Cron
}

func New(spec string, refresh RefreshFunc, notify Notify) *Service {
	return &Service{spec: spec, refresh: refresh, notify: notify}
}

// Start validates the schedule and begins firing. Returns an error for a
// bad cron expression; runtime refresh failures are logged and reported,
// never fatal.
func (s *Service) Start() error {
	c := rcron.New()
	if _, err := c.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", s.spec, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	log.Printf("[watch] scheduled refresh: %s", s.spec)
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Service) runOnce() {
	report, err := s.refresh()
	if err != nil {
		log.Printf("[watch] refresh failed: %v", err)
		report = fmt.Sprintf("refresh failed: %v", err)
	} else {
		log.Printf("[watch] %s", report)
	}
	if s.notify != nil {
		s.notify(report)
	}
}
