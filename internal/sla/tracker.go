// Package sla classifies non-terminal requests by elapsed-time risk. The
// tracker only reads request state; it never advances approvals.
package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// Classification buckets a request by its remaining SLA window
type Classification string

const (
	OnTrack     Classification = "ON_TRACK"
	Approaching Classification = "APPROACHING"
	Overdue     Classification = "OVERDUE"
)

// Config holds the per-priority deadline windows and the fraction of the
// window below which a request counts as approaching its deadline.
type Config struct {
	Deadlines           map[request.Priority]time.Duration
	ApproachingFraction float64
}

// DefaultConfig returns the standard SLA windows
func DefaultConfig() Config {
	return Config{
		Deadlines: map[request.Priority]time.Duration{
			request.PriorityUrgent: 4 * time.Hour,
			request.PriorityHigh:   24 * time.Hour,
			request.PriorityNormal: 48 * time.Hour,
			request.PriorityLow:    72 * time.Hour,
		},
		ApproachingFraction: 0.25,
	}
}

// RequestLister is the read-only slice of the repository the tracker needs
type RequestLister interface {
	ListActive(ctx context.Context) ([]*request.WorkRequest, error)
}

// Report is the outcome of one sweep
type Report struct {
	Overdue     []string `json:"overdue"`
	Approaching []string `json:"approaching"`
}

// Tracker computes deadlines and classifies requests
type Tracker struct {
	cfg      Config
	requests RequestLister
}

// NewTracker creates a Tracker over the given repository
func NewTracker(cfg Config, requests RequestLister) *Tracker {
	if cfg.ApproachingFraction <= 0 || cfg.ApproachingFraction >= 1 {
		cfg.ApproachingFraction = 0.25
	}
	return &Tracker{cfg: cfg, requests: requests}
}

// Window returns the SLA window for a priority
func (t *Tracker) Window(priority request.Priority) time.Duration {
	if d, ok := t.cfg.Deadlines[priority]; ok {
		return d
	}
	return t.cfg.Deadlines[request.PriorityNormal]
}

// Deadline returns the absolute deadline for a request
func (t *Tracker) Deadline(req *request.WorkRequest) time.Time {
	return req.CreatedAt.Add(t.Window(req.Priority))
}

// Classify buckets a single request at the given observation time.
// Terminal requests are always ON_TRACK: a request that finished late is a
// history question, not an open alert.
func (t *Tracker) Classify(req *request.WorkRequest, now time.Time) Classification {
	if req.Status.IsTerminal() {
		return OnTrack
	}

	window := t.Window(req.Priority)
	deadline := req.CreatedAt.Add(window)
	if now.After(deadline) {
		return Overdue
	}

	remaining := deadline.Sub(now)
	if float64(remaining) < t.cfg.ApproachingFraction*float64(window) {
		return Approaching
	}
	return OnTrack
}

// Sweep classifies every non-terminal request and returns the ids that need
// attention. Read-only: request state is never mutated.
func (t *Tracker) Sweep(ctx context.Context, now time.Time) (*Report, error) {
	active, err := t.requests.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active requests: %w", err)
	}

	report := &Report{
		Overdue:     []string{},
		Approaching: []string{},
	}
	for _, req := range active {
		switch t.Classify(req, now) {
		case Overdue:
			report.Overdue = append(report.Overdue, req.ID)
		case Approaching:
			report.Approaching = append(report.Approaching, req.ID)
		}
	}
	return report, nil
}
