package shared

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrEmptyID},
		{name: "not a uuid", input: "not-a-uuid", wantErr: ErrInvalidID},
		{name: "valid uuid", input: "123e4567-e89b-12d3-a456-426614174000", wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("ParseID(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID(%q) unexpected error: %v", tt.input, err)
			}
			if id.String() != tt.input {
				t.Errorf("String() = %q, want %q", id.String(), tt.input)
			}
		})
	}
}

func TestID_IsZero(t *testing.T) {
	var zero ID
	if !zero.IsZero() {
		t.Error("zero value ID should be IsZero()")
	}
	if NewID().IsZero() {
		t.Error("NewID() should not be IsZero()")
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	id := NewID()
	b, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got ID
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equals(id) {
		t.Errorf("round-tripped ID = %q, want %q", got.String(), id.String())
	}
}

func TestNamespace_Equals(t *testing.T) {
	a, err := NewNamespace("tenant-1", "project-1")
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	b, _ := NewNamespace("tenant-1", "project-1")
	c, _ := NewNamespace("tenant-1", "project-2")

	if !a.Equals(b) {
		t.Error("identical namespaces should be equal")
	}
	if a.Equals(c) {
		t.Error("namespaces differing by project_id should not be equal")
	}
}

func TestNewNamespace_RequiresBothFields(t *testing.T) {
	if _, err := NewNamespace("", "project-1"); err == nil {
		t.Error("expected error for empty tenant_id")
	}
	if _, err := NewNamespace("tenant-1", ""); err == nil {
		t.Error("expected error for empty project_id")
	}
}

func TestTimestamps_TouchNeverPrecedesCreatedAt(t *testing.T) {
	now := time.Now()
	ts := NewTimestamps(now)
	ts.Touch(now.Add(-time.Hour))

	if ts.UpdatedAt.Before(ts.CreatedAt) {
		t.Errorf("UpdatedAt %v must not precede CreatedAt %v", ts.UpdatedAt, ts.CreatedAt)
	}
}
