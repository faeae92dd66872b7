package object

import (
	"time"

	"amp/internal/domain/shared"
	apperrors "amp/pkg/errors"
)

// Object is the common envelope for every memory record the engine stores.
// Type-specific data lives in the open Payload map rather than as Go struct
// fields, so unknown/forward-compatible fields round-trip untouched.
type Object struct {
	id         shared.ID
	objType    Type
	namespace  shared.Namespace
	timestamps shared.Timestamps
	provenance Provenance
	links      []Link
	embedding  []float64
	payload    map[string]interface{}
}

// New constructs a fresh object, bumping neither id nor type after creation.
func New(id shared.ID, objType Type, ns shared.Namespace, provenance Provenance, payload map[string]interface{}, now time.Time) (*Object, error) {
	if id.IsZero() {
		return nil, shared.ErrEmptyID
	}
	if err := provenance.Validate(); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Object{
		id:         id,
		objType:    objType,
		namespace:  ns,
		timestamps: shared.NewTimestamps(now),
		provenance: provenance,
		payload:    payload,
	}, nil
}

// Reconstruct rebuilds an Object from persisted fields, without touching
// timestamps or re-validating provenance (the record was already valid).
func Reconstruct(id shared.ID, objType Type, ns shared.Namespace, ts shared.Timestamps, provenance Provenance, links []Link, embedding []float64, payload map[string]interface{}) *Object {
	return &Object{
		id: id, objType: objType, namespace: ns, timestamps: ts,
		provenance: provenance, links: links, embedding: embedding, payload: payload,
	}
}

func (o *Object) ID() shared.ID             { return o.id }
func (o *Object) Type() Type                { return o.objType }
func (o *Object) Namespace() shared.Namespace { return o.namespace }
func (o *Object) CreatedAt() time.Time      { return o.timestamps.CreatedAt }
func (o *Object) UpdatedAt() time.Time      { return o.timestamps.UpdatedAt }
func (o *Object) Provenance() Provenance    { return o.provenance }
func (o *Object) Links() []Link             { return o.links }
func (o *Object) Embedding() []float64      { return o.embedding }

// Payload returns the type-specific fields. Callers must not mutate the
// returned map in place; use Patch instead.
func (o *Object) Payload() map[string]interface{} {
	return o.payload
}

func (o *Object) SetLinks(links []Link) { o.links = links }

// SetEmbedding attaches (or clears, with nil) the object's dense vector.
func (o *Object) SetEmbedding(vec []float64) {
	o.embedding = vec
}

// Patch applies a shallow merge of new payload fields, reports whether any
// text-carrying field (per the object's Type) changed, and bumps
// updated_at. Immutable fields (id, type, tenant/project, created_at) live
// outside the payload map and are never touched here; a patch key with one
// of those names is stored in the payload like any other key.
func (o *Object) Patch(fields map[string]interface{}, now time.Time) (textChanged bool, err error) {
	if o.payload == nil {
		o.payload = map[string]interface{}{}
	}
	textSet := make(map[string]bool, len(o.objType.TextFields()))
	for _, f := range o.objType.TextFields() {
		textSet[f] = true
	}

	for k, v := range fields {
		old, existed := o.payload[k]
		if textSet[k] && (!existed || old != v) {
			textChanged = true
		}
		o.payload[k] = v
	}

	o.timestamps.Touch(now)
	return textChanged, nil
}

// Validate checks the invariants that must hold independent of type-specific
// payload shape.
func (o *Object) Validate() error {
	if o.id.IsZero() {
		return shared.ErrEmptyID
	}
	if o.namespace.TenantID == "" || o.namespace.ProjectID == "" {
		return apperrors.NewValidation("tenant_id and project_id are required")
	}
	if o.timestamps.UpdatedAt.Before(o.timestamps.CreatedAt) {
		return apperrors.NewValidation("updated_at must not precede created_at")
	}
	return o.provenance.Validate()
}
