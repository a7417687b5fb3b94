package port

import (
	"context"

	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// Directory is the external capability/authority collaborator. It answers
// "can this identity act in this role for this scope" and enumerates the
// identities eligible for a role within a scope.
type Directory interface {
	CanAct(ctx context.Context, actorID string, role request.Role, org, enterprise string) (bool, error)
	ListCandidates(ctx context.Context, role request.Role, org, enterprise string) ([]string, error)
}
