// Package routing resolves an abstract role+scope requirement to a concrete
// approver and keeps workload balanced across equally eligible candidates.
package routing

import (
	"context"
	"fmt"
	"sync"

	"github.com/campusfound/custody-workflow/internal/application/port"
	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Engine selects approvers with a least-loaded policy and owns the
// per-approver active-assignment counters.
type Engine struct {
	directory port.Directory
	logger    Logger

	mu     sync.Mutex
	active map[string]int
}

// NewEngine creates a routing engine backed by the given directory
func NewEngine(directory port.Directory, logger Logger) *Engine {
	return &Engine{
		directory: directory,
		logger:    logger,
		active:    make(map[string]int),
	}
}

// Assign resolves the approver for a role within a scope. It returns
// ok=false when no eligible candidate exists; that is a normal outcome,
// not an error — the request stays unassigned until re-routed.
//
// Among eligible candidates the one with the fewest active assignments
// wins; ties break to the lexicographically smallest id so the choice is
// deterministic.
func (e *Engine) Assign(ctx context.Context, role request.Role, org, enterprise string) (string, bool, error) {
	candidates, err := e.directory.ListCandidates(ctx, role, org, enterprise)
	if err != nil {
		return "", false, fmt.Errorf("list candidates for role %s: %w", role, err)
	}
	if len(candidates) == 0 {
		e.logger.Info("No eligible approver for role",
			"role", string(role), "org", org, "enterprise", enterprise)
		return "", false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	selected := ""
	selectedLoad := 0
	for _, id := range candidates {
		load := e.active[id]
		if selected == "" || load < selectedLoad || (load == selectedLoad && id < selected) {
			selected = id
			selectedLoad = load
		}
	}

	e.active[selected]++
	return selected, true, nil
}

// Release decrements the active-assignment counter for an approver. Called
// whenever a step resolves: approve, reject, or a request-level cancel that
// bypasses the step.
func (e *Engine) Release(approverID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active[approverID] > 0 {
		e.active[approverID]--
	}
	if e.active[approverID] == 0 {
		delete(e.active, approverID)
	}
}

// ActiveAssignments returns the current counter for an approver
func (e *Engine) ActiveAssignments(approverID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active[approverID]
}
