package object

import (
	"testing"
	"time"

	"amp/internal/domain/shared"
	apperrors "amp/pkg/errors"
)

func validProvenance() Provenance {
	return Provenance{Agent: "agent-1", Summary: "created during a test"}
}

func TestNew_RejectsZeroID(t *testing.T) {
	var zero shared.ID
	ns, _ := shared.NewNamespace("tenant-1", "project-1")
	if _, err := New(zero, TypeNote, ns, validProvenance(), nil, time.Now()); err != shared.ErrEmptyID {
		t.Fatalf("New() error = %v, want %v", err, shared.ErrEmptyID)
	}
}

func TestNew_RejectsInvalidProvenance(t *testing.T) {
	ns, _ := shared.NewNamespace("tenant-1", "project-1")
	_, err := New(shared.NewID(), TypeNote, ns, Provenance{}, nil, time.Now())
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestNew_DefaultsNilPayload(t *testing.T) {
	ns, _ := shared.NewNamespace("tenant-1", "project-1")
	obj, err := New(shared.NewID(), TypeNote, ns, validProvenance(), nil, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if obj.Payload() == nil {
		t.Error("Payload() should default to an empty map, not nil")
	}
}

func TestObject_Patch_DetectsTextFieldChange(t *testing.T) {
	ns, _ := shared.NewNamespace("tenant-1", "project-1")
	now := time.Now()
	obj, err := New(shared.NewID(), TypeNote, ns, validProvenance(), map[string]interface{}{"content": "first"}, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	later := now.Add(time.Minute)
	textChanged, err := obj.Patch(map[string]interface{}{"content": "second"}, later)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if !textChanged {
		t.Error("changing a text field (content) should report textChanged=true for note type")
	}
	if obj.UpdatedAt() != later {
		t.Errorf("UpdatedAt() = %v, want %v", obj.UpdatedAt(), later)
	}
}

func TestObject_Patch_NonTextFieldDoesNotFlag(t *testing.T) {
	ns, _ := shared.NewNamespace("tenant-1", "project-1")
	now := time.Now()
	obj, err := New(shared.NewID(), TypeNote, ns, validProvenance(), nil, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	textChanged, err := obj.Patch(map[string]interface{}{"tags": []string{"a"}}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if textChanged {
		t.Error("patching a non-text field should not report textChanged=true")
	}
}

func TestObject_Patch_SameValueDoesNotFlag(t *testing.T) {
	ns, _ := shared.NewNamespace("tenant-1", "project-1")
	now := time.Now()
	obj, err := New(shared.NewID(), TypeNote, ns, validProvenance(), map[string]interface{}{"content": "same"}, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	textChanged, err := obj.Patch(map[string]interface{}{"content": "same"}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if textChanged {
		t.Error("re-setting an identical value should not report textChanged=true")
	}
}

func TestObject_Validate(t *testing.T) {
	ns, _ := shared.NewNamespace("tenant-1", "project-1")
	now := time.Now()
	obj, err := New(shared.NewID(), TypeNote, ns, validProvenance(), nil, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := obj.Validate(); err != nil {
		t.Errorf("freshly constructed object should validate, got %v", err)
	}
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("note"); err != nil {
		t.Errorf("ParseType(note) should succeed, got %v", err)
	}
	if _, err := ParseType("bogus"); err == nil {
		t.Error("ParseType(bogus) should fail")
	}
}

func TestType_TextFields(t *testing.T) {
	if fields := TypeProject.TextFields(); len(fields) != 0 {
		t.Errorf("TypeProject has no text fields, got %v", fields)
	}
	if fields := TypeDecision.TextFields(); len(fields) == 0 {
		t.Error("TypeDecision should name at least one text field")
	}
}
