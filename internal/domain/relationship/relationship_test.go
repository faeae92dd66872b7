package relationship

import (
	"testing"
	"time"

	"amp/internal/domain/shared"
)

func TestNew_RejectsSelfLoop(t *testing.T) {
	id := shared.NewID()
	if _, err := New(shared.NewID(), TypeDependsOn, id, id, time.Now()); err == nil {
		t.Fatal("expected error creating a self-referencing relationship")
	}
}

func TestNew_DistinctEndpoints(t *testing.T) {
	r, err := New(shared.NewID(), TypeCalls, shared.NewID(), shared.NewID(), time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.SourceID.Equals(r.TargetID) {
		t.Error("source and target should differ")
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range AllTypes {
		if _, err := ParseType(string(typ)); err != nil {
			t.Errorf("ParseType(%s) should succeed, got %v", typ, err)
		}
	}
	if _, err := ParseType("unknown_type"); err == nil {
		t.Error("ParseType(unknown_type) should fail")
	}
}

func TestRelationship_Key_IdentifiesUpsertIdentity(t *testing.T) {
	source, target := shared.NewID(), shared.NewID()
	a, _ := New(shared.NewID(), TypeDependsOn, source, target, time.Now())
	b, _ := New(shared.NewID(), TypeDependsOn, source, target, time.Now())

	if a.Key() != b.Key() {
		t.Error("relationships with the same (type, source, target) should share a Key")
	}

	c, _ := New(shared.NewID(), TypeCalls, source, target, time.Now())
	if a.Key() == c.Key() {
		t.Error("relationships differing only by type should not share a Key")
	}
}
