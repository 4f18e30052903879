package core

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/subseaworks/corridor-simulator/model"
)

// PendingApproval is one recommendation awaiting a human decision.
type PendingApproval struct {
	ID             string
	Recommendation model.RepairRecommendation
	AssetID        string
	KP             int

	// PendingSince is the simulation time at enqueue. Pending items never
	// time out; age is surfaced so operators can see stale decisions.
	PendingSince float64
}

// ApprovalGateway holds recommendations that require human approval.
// Access is serialised by the owning Simulation's mutex.
type ApprovalGateway struct {
	pending map[string]*PendingApproval
}

// NewApprovalGateway creates an empty gateway.
func NewApprovalGateway() *ApprovalGateway {
	return &ApprovalGateway{pending: make(map[string]*PendingApproval)}
}

// Enqueue stores a recommendation and returns its pending entry.
func (g *ApprovalGateway) Enqueue(now float64, rec model.RepairRecommendation, assetID string, kp int) *PendingApproval {
	p := &PendingApproval{
		ID:             uuid.NewString(),
		Recommendation: rec,
		AssetID:        assetID,
		KP:             kp,
		PendingSince:   now,
	}
	g.pending[p.ID] = p
	return p
}

// Resolve removes and returns the pending entry for id. Unknown or
// already-resolved ids yield ErrPendingNotFound.
func (g *ApprovalGateway) Resolve(id string) (*PendingApproval, error) {
	p, ok := g.pending[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPendingNotFound, id)
	}
	delete(g.pending, id)
	return p, nil
}

// List returns pending entries ordered by enqueue time.
func (g *ApprovalGateway) List() []PendingApproval {
	out := make([]PendingApproval, 0, len(g.pending))
	for _, p := range g.pending {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PendingSince == out[j].PendingSince {
			return out[i].ID < out[j].ID
		}
		return out[i].PendingSince < out[j].PendingSince
	})
	return out
}

// Len reports the number of pending entries.
func (g *ApprovalGateway) Len() int { return len(g.pending) }
