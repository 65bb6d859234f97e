package gcp

import (
	"context"

	crm "google.golang.org/api/cloudresourcemanager/v1"
	giam "google.golang.org/api/iam/v1"
	"google.golang.org/api/option"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// IAM implements cloudjack.IAM on Google Cloud IAM. Roles are project
// custom roles; policy attachment edits the project IAM policy bindings,
// with the policy argument naming the role to grant and the role argument
// naming the member principal.
type IAM struct {
	roles    *giam.Service
	projects *crm.Service
	project  string
	wrap     errorWrapper
}

var _ cloudjack.IAM = (*IAM)(nil)

// NewIAM builds the IAM adapter.
func NewIAM(ctx context.Context, cfg cloudjack.GCPConfig, extra ...option.ClientOption) (*IAM, error) {
	roles, err := giam.NewService(ctx, clientOptions(cfg, extra...)...)
	if err != nil {
		return nil, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderGCP,
			Message:  "creating iam client",
			Cause:    err,
		}
	}
	projects, err := crm.NewService(ctx, clientOptions(cfg, extra...)...)
	if err != nil {
		return nil, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderGCP,
			Message:  "creating resource manager client",
			Cause:    err,
		}
	}
	return &IAM{
		roles:    roles,
		projects: projects,
		project:  cfg.ProjectID,
		wrap:     newErrorWrapper(cloudjack.ServiceIAM),
	}, nil
}

func (i *IAM) parent() string {
	return "projects/" + i.project
}

func (i *IAM) rolePath(name string) string {
	return i.parent() + "/roles/" + name
}

func (i *IAM) CreateRole(ctx context.Context, spec cloudjack.RoleSpec) (cloudjack.Role, error) {
	if spec.GCP == nil || len(spec.GCP.Permissions) == 0 {
		return cloudjack.Role{}, cloudjack.NewError(cloudjack.ServiceIAM, cloudjack.KindGeneric,
			"GCP custom roles require a permission list").
			WithProvider(cloudjack.ProviderGCP).
			WithOp("CreateRole").
			WithResource(spec.Name)
	}
	title := spec.GCP.Title
	if title == "" {
		title = spec.Name
	}
	stage := spec.GCP.Stage
	if stage == "" {
		stage = "GA"
	}
	req := &giam.CreateRoleRequest{
		RoleId: spec.Name,
		Role: &giam.Role{
			Title:               title,
			Description:         spec.Description,
			IncludedPermissions: spec.GCP.Permissions,
			Stage:               stage,
		},
	}
	created, err := i.roles.Projects.Roles.Create(i.parent(), req).Context(ctx).Do()
	if err != nil {
		return cloudjack.Role{}, i.wrap.wrap(err, "CreateRole", spec.Name)
	}
	return toRole(created), nil
}

func (i *IAM) DeleteRole(ctx context.Context, name string) error {
	_, err := i.roles.Projects.Roles.Delete(i.rolePath(name)).Context(ctx).Do()
	return i.wrap.wrap(err, "DeleteRole", name)
}

func (i *IAM) ListRoles(ctx context.Context) ([]cloudjack.Role, error) {
	var out []cloudjack.Role
	err := i.roles.Projects.Roles.List(i.parent()).Pages(ctx, func(resp *giam.ListRolesResponse) error {
		for _, role := range resp.Roles {
			out = append(out, toRole(role))
		}
		return nil
	})
	if err != nil {
		return nil, i.wrap.wrap(err, "ListRoles", "")
	}
	return out, nil
}

// AttachPolicy grants the named role to a member by adding a binding to
// the project IAM policy. Read-modify-write races fail with a conflict the
// caller can retry.
func (i *IAM) AttachPolicy(ctx context.Context, role, policy string) error {
	current, err := i.projects.Projects.GetIamPolicy(i.project, &crm.GetIamPolicyRequest{}).Context(ctx).Do()
	if err != nil {
		return i.wrap.wrap(err, "GetIamPolicy", role)
	}
	var binding *crm.Binding
	for _, b := range current.Bindings {
		if b.Role == policy {
			binding = b
			break
		}
	}
	if binding == nil {
		binding = &crm.Binding{Role: policy}
		current.Bindings = append(current.Bindings, binding)
	}
	for _, member := range binding.Members {
		if member == role {
			return nil
		}
	}
	binding.Members = append(binding.Members, role)
	_, err = i.projects.Projects.SetIamPolicy(i.project, &crm.SetIamPolicyRequest{Policy: current}).Context(ctx).Do()
	return i.wrap.wrap(err, "SetIamPolicy", role)
}

func (i *IAM) DetachPolicy(ctx context.Context, role, policy string) error {
	current, err := i.projects.Projects.GetIamPolicy(i.project, &crm.GetIamPolicyRequest{}).Context(ctx).Do()
	if err != nil {
		return i.wrap.wrap(err, "GetIamPolicy", role)
	}
	changed := false
	for _, b := range current.Bindings {
		if b.Role != policy {
			continue
		}
		members := b.Members[:0]
		for _, member := range b.Members {
			if member == role {
				changed = true
				continue
			}
			members = append(members, member)
		}
		b.Members = members
	}
	if !changed {
		return nil
	}
	_, err = i.projects.Projects.SetIamPolicy(i.project, &crm.SetIamPolicyRequest{Policy: current}).Context(ctx).Do()
	return i.wrap.wrap(err, "SetIamPolicy", role)
}

// ListPolicies returns the project's custom roles, which is what
// AttachPolicy can grant beyond the predefined roles.
func (i *IAM) ListPolicies(ctx context.Context) ([]cloudjack.Policy, error) {
	var out []cloudjack.Policy
	err := i.roles.Projects.Roles.List(i.parent()).Pages(ctx, func(resp *giam.ListRolesResponse) error {
		for _, role := range resp.Roles {
			out = append(out, cloudjack.Policy{
				Name: shortName(role.Name),
				ID:   role.Name,
			})
		}
		return nil
	})
	if err != nil {
		return nil, i.wrap.wrap(err, "ListRoles", "")
	}
	return out, nil
}

func toRole(role *giam.Role) cloudjack.Role {
	return cloudjack.Role{
		Name:        shortName(role.Name),
		ID:          role.Name,
		Description: role.Description,
	}
}
