package shared

import apperrors "amp/pkg/errors"

// Namespace identifies the logical tenant/project pair every object and
// relationship lives within.
type Namespace struct {
	TenantID  string
	ProjectID string
}

func NewNamespace(tenantID, projectID string) (Namespace, error) {
	if tenantID == "" {
		return Namespace{}, apperrors.NewValidation("tenant_id is required")
	}
	if projectID == "" {
		return Namespace{}, apperrors.NewValidation("project_id is required")
	}
	return Namespace{TenantID: tenantID, ProjectID: projectID}, nil
}

func (n Namespace) Equals(o Namespace) bool {
	return n.TenantID == o.TenantID && n.ProjectID == o.ProjectID
}
