package commands

import (
	"amp/internal/domain/object"
	apperrors "amp/pkg/errors"
	"testing"
)

func validProvenance() object.Provenance {
	return object.Provenance{Agent: "agent-1", Summary: "created during a test"}
}

func TestCreateObjectCommand_RejectsMissingRequiredFields(t *testing.T) {
	cmd := &CreateObjectCommand{Provenance: validProvenance()}
	if err := cmd.Validate(); !apperrors.IsValidation(err) {
		t.Fatalf("Validate() error = %v, want a validation error for missing type/tenant/project", err)
	}
}

func TestCreateObjectCommand_RejectsUnknownType(t *testing.T) {
	cmd := &CreateObjectCommand{Type: "bogus", TenantID: "t1", ProjectID: "p1", Provenance: validProvenance()}
	if err := cmd.Validate(); err == nil {
		t.Fatal("Validate() should reject an unknown object type")
	}
}

func TestCreateObjectCommand_AcceptsValidInput(t *testing.T) {
	cmd := &CreateObjectCommand{Type: "note", TenantID: "t1", ProjectID: "p1", Provenance: validProvenance()}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestCreateObjectBatchCommand_RejectsEmptyBatch(t *testing.T) {
	cmd := &CreateObjectBatchCommand{}
	if err := cmd.Validate(); err == nil {
		t.Fatal("Validate() should reject an empty batch")
	}
}

func TestCreateRelationshipCommand_RejectsMissingFields(t *testing.T) {
	cmd := &CreateRelationshipCommand{Type: "depends_on"}
	if err := cmd.Validate(); !apperrors.IsValidation(err) {
		t.Fatalf("Validate() error = %v, want a validation error for missing source/target", err)
	}
}

func TestCreateRelationshipCommand_AcceptsValidInput(t *testing.T) {
	cmd := &CreateRelationshipCommand{Type: "depends_on", SourceID: "a", TargetID: "b"}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestWriteCacheItemCommand_RejectsUnknownKind(t *testing.T) {
	cmd := &WriteCacheItemCommand{ScopeID: "s1", Kind: "bogus", Content: "hello", Importance: 0.5}
	if err := cmd.Validate(); !apperrors.IsValidation(err) {
		t.Fatalf("Validate() error = %v, want a validation error for an unknown kind", err)
	}
}

func TestWriteCacheItemCommand_RejectsOutOfRangeImportance(t *testing.T) {
	cmd := &WriteCacheItemCommand{ScopeID: "s1", Kind: "fact", Content: "hello", Importance: 1.5}
	if err := cmd.Validate(); !apperrors.IsValidation(err) {
		t.Fatalf("Validate() error = %v, want a validation error for importance > 1", err)
	}
}

func TestWriteCacheItemCommand_AcceptsZeroImportance(t *testing.T) {
	cmd := &WriteCacheItemCommand{ScopeID: "s1", Kind: "fact", Content: "hello", Importance: 0}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v (0 importance defers to the default downstream)", err)
	}
}

func TestAcquireLeaseCommand_RejectsMissingFields(t *testing.T) {
	cmd := &AcquireLeaseCommand{}
	if err := cmd.Validate(); !apperrors.IsValidation(err) {
		t.Fatalf("Validate() error = %v, want a validation error for missing resource_key/holder", err)
	}
}

func TestAcquireLeaseCommand_RejectsTTLAboveMax(t *testing.T) {
	cmd := &AcquireLeaseCommand{ResourceKey: "repo:main", Holder: "agent-1", TTLMillis: 3600001}
	if err := cmd.Validate(); !apperrors.IsValidation(err) {
		t.Fatalf("Validate() error = %v, want a validation error for ttl_ms exceeding the max", err)
	}
}

func TestAcquireLeaseCommand_AllowsOmittedTTL(t *testing.T) {
	cmd := &AcquireLeaseCommand{ResourceKey: "repo:main", Holder: "agent-1"}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v (a zero ttl_ms defers to the default downstream)", err)
	}
}
