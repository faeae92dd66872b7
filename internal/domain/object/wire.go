package object

import (
	"encoding/json"
	"time"

	"amp/internal/domain/shared"
)

// wireHeader mirrors the header fields named in the wire format; payload
// fields are merged in alongside these at marshal/unmarshal time so the
// open type-specific fields round-trip without a nested object.
type wireHeader struct {
	ID         shared.ID  `json:"id"`
	Type       Type       `json:"type"`
	TenantID   string     `json:"tenant_id"`
	ProjectID  string     `json:"project_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Provenance Provenance `json:"provenance"`
	Links      []Link     `json:"links,omitempty"`
	Embedding  []float64  `json:"embedding,omitempty"`
}

func (o *Object) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	for k, v := range o.payload {
		out[k] = v
	}
	out["id"] = o.id
	out["type"] = o.objType
	out["tenant_id"] = o.namespace.TenantID
	out["project_id"] = o.namespace.ProjectID
	out["created_at"] = o.timestamps.CreatedAt
	out["updated_at"] = o.timestamps.UpdatedAt
	out["provenance"] = o.provenance
	if len(o.links) > 0 {
		out["links"] = o.links
	}
	if len(o.embedding) > 0 {
		out["embedding"] = o.embedding
	}
	return json.Marshal(out)
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var hdr wireHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return err
	}

	for _, field := range []string{"id", "type", "tenant_id", "project_id", "created_at", "updated_at", "provenance", "links", "embedding"} {
		delete(raw, field)
	}

	o.id = hdr.ID
	o.objType = hdr.Type
	o.namespace = shared.Namespace{TenantID: hdr.TenantID, ProjectID: hdr.ProjectID}
	o.timestamps = shared.Timestamps{CreatedAt: hdr.CreatedAt, UpdatedAt: hdr.UpdatedAt}
	o.provenance = hdr.Provenance
	o.links = hdr.Links
	o.embedding = hdr.Embedding
	o.payload = raw
	return nil
}
