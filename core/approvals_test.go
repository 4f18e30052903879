package core

import (
	"errors"
	"testing"

	"github.com/subseaworks/corridor-simulator/model"
)

func TestApprovalQueueOrdering(t *testing.T) {
	g := NewApprovalGateway()
	rec := model.RepairRecommendation{Repair: model.RepairEmergencyMultiAUV}

	g.Enqueue(5, rec, "gas", 900)
	first := g.Enqueue(1, rec, "crude", 400)

	list := g.List()
	if len(list) != 2 {
		t.Fatalf("pending count = %d", len(list))
	}
	if list[0].ID != first.ID {
		t.Errorf("list not ordered by enqueue time")
	}
	if g.Len() != 2 {
		t.Errorf("Len = %d", g.Len())
	}
}

func TestApprovalResolveOnce(t *testing.T) {
	g := NewApprovalGateway()
	p := g.Enqueue(0, model.RepairRecommendation{}, "crude", 10)

	got, err := g.Resolve(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AssetID != "crude" || got.KP != 10 {
		t.Errorf("resolved wrong entry: %+v", got)
	}

	if _, err := g.Resolve(p.ID); !errors.Is(err, ErrPendingNotFound) {
		t.Errorf("second resolve error = %v, want ErrPendingNotFound", err)
	}
	if g.Len() != 0 {
		t.Errorf("resolved entry still pending")
	}
}

func TestApprovalResolveUnknown(t *testing.T) {
	g := NewApprovalGateway()
	if _, err := g.Resolve("nope"); !errors.Is(err, ErrPendingNotFound) {
		t.Errorf("error = %v, want ErrPendingNotFound", err)
	}
}
