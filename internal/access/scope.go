package access

import (
	"context"
	"fmt"
	"sort"
)

// ScopeKind selects how a Scope restricts labor events
type ScopeKind int

const (
	ScopeUnrestricted ScopeKind = iota
	ScopeOwnWorker
	ScopeAssignedWorkers
)

// Scope is the set of workers whose labor events a caller may see or touch.
// For OwnWorker and AssignedWorkers an empty WorkerIDs means no visibility
type Scope struct {
	Kind      ScopeKind
	WorkerIDs []uint
}

// Unrestricted is the admin scope
func Unrestricted() Scope { return Scope{Kind: ScopeUnrestricted} }

// OwnWorker scopes to a single worker. ok=false yields an empty scope
func OwnWorker(workerID uint, ok bool) Scope {
	if !ok {
		return Scope{Kind: ScopeOwnWorker}
	}
	return Scope{Kind: ScopeOwnWorker, WorkerIDs: []uint{workerID}}
}

// AssignedWorkers scopes to a set of workers; duplicates are removed
func AssignedWorkers(ids []uint) Scope {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return Scope{Kind: ScopeAssignedWorkers, WorkerIDs: out}
}

// Allows reports whether events of workerID fall inside the scope
func (s Scope) Allows(workerID uint) bool {
	if s.Kind == ScopeUnrestricted {
		return true
	}
	for _, id := range s.WorkerIDs {
		if id == workerID {
			return true
		}
	}
	return false
}

// Empty reports whether the scope matches no events at all
func (s Scope) Empty() bool {
	return s.Kind != ScopeUnrestricted && len(s.WorkerIDs) == 0
}

// OwnWorkerID returns the linked worker of an OwnWorker scope
func (s Scope) OwnWorkerID() (uint, bool) {
	if s.Kind != ScopeOwnWorker || len(s.WorkerIDs) == 0 {
		return 0, false
	}
	return s.WorkerIDs[0], true
}

// WorkerLinks resolves the workers a user is connected to
type WorkerLinks interface {
	// LinkedWorker returns the active worker whose operator account is userID
	LinkedWorker(ctx context.Context, userID uint) (workerID uint, ok bool, err error)
	// AssignedWorkers returns the workers under active assignments to supervisorID
	AssignedWorkers(ctx context.Context, supervisorID uint) ([]uint, error)
}

// ScopeCalculator derives a Scope from an Identity. Results are not cached:
// assignments may change between requests
type ScopeCalculator struct {
	links WorkerLinks
}

func NewScopeCalculator(links WorkerLinks) *ScopeCalculator {
	return &ScopeCalculator{links: links}
}

// Compute returns the caller's labor-event scope
func (c *ScopeCalculator) Compute(ctx context.Context, id Identity) (Scope, error) {
	switch id.Role {
	case RoleAdmin:
		return Unrestricted(), nil
	case RoleOperator:
		workerID, ok, err := c.links.LinkedWorker(ctx, id.UserID)
		if err != nil {
			return Scope{}, fmt.Errorf("resolve linked worker for user %d: %w", id.UserID, err)
		}
		return OwnWorker(workerID, ok), nil
	case RoleSupervisor:
		ids, err := c.links.AssignedWorkers(ctx, id.UserID)
		if err != nil {
			return Scope{}, fmt.Errorf("resolve assigned workers for user %d: %w", id.UserID, err)
		}
		return AssignedWorkers(ids), nil
	default:
		// Unknown roles see nothing
		return Scope{Kind: ScopeAssignedWorkers}, nil
	}
}
