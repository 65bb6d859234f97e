package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// iamAPI is the slice of the IAM client this adapter uses.
type iamAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
	ListRoles(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	DetachRolePolicy(ctx context.Context, params *iam.DetachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	ListPolicies(ctx context.Context, params *iam.ListPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListPoliciesOutput, error)
}

// IAM implements cloudjack.IAM on AWS IAM.
type IAM struct {
	client iamAPI
	wrap   errorWrapper
}

var _ cloudjack.IAM = (*IAM)(nil)

// NewIAM builds the IAM adapter.
func NewIAM(cfg awssdk.Config) *IAM {
	return &IAM{
		client: iam.NewFromConfig(cfg),
		wrap:   newErrorWrapper(cloudjack.ServiceIAM, iamErrorKinds),
	}
}

func (i *IAM) CreateRole(ctx context.Context, spec cloudjack.RoleSpec) (cloudjack.Role, error) {
	if spec.AWS == nil || spec.AWS.TrustPolicyJSON == "" {
		return cloudjack.Role{}, cloudjack.NewError(cloudjack.ServiceIAM, cloudjack.KindGeneric,
			"AWS roles require a trust policy document").
			WithProvider(cloudjack.ProviderAWS).
			WithOp("CreateRole").
			WithResource(spec.Name)
	}

	input := &iam.CreateRoleInput{
		RoleName:                 awssdk.String(spec.Name),
		AssumeRolePolicyDocument: awssdk.String(spec.AWS.TrustPolicyJSON),
	}
	if spec.Description != "" {
		input.Description = awssdk.String(spec.Description)
	}
	if spec.AWS.MaxSessionDurationSeconds > 0 {
		input.MaxSessionDuration = awssdk.Int32(spec.AWS.MaxSessionDurationSeconds)
	}

	out, err := i.client.CreateRole(ctx, input)
	if err != nil {
		return cloudjack.Role{}, i.wrap.wrap(err, "CreateRole", spec.Name)
	}
	return toRole(*out.Role), nil
}

func (i *IAM) DeleteRole(ctx context.Context, name string) error {
	_, err := i.client.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: awssdk.String(name)})
	return i.wrap.wrap(err, "DeleteRole", name)
}

func (i *IAM) ListRoles(ctx context.Context) ([]cloudjack.Role, error) {
	var roles []cloudjack.Role
	var marker *string
	for {
		out, err := i.client.ListRoles(ctx, &iam.ListRolesInput{Marker: marker})
		if err != nil {
			return nil, i.wrap.wrap(err, "ListRoles", "")
		}
		for _, role := range out.Roles {
			roles = append(roles, toRole(role))
		}
		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}
	return roles, nil
}

func (i *IAM) AttachPolicy(ctx context.Context, role, policy string) error {
	_, err := i.client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  awssdk.String(role),
		PolicyArn: awssdk.String(policy),
	})
	return i.wrap.wrap(err, "AttachRolePolicy", role)
}

func (i *IAM) DetachPolicy(ctx context.Context, role, policy string) error {
	_, err := i.client.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  awssdk.String(role),
		PolicyArn: awssdk.String(policy),
	})
	return i.wrap.wrap(err, "DetachRolePolicy", role)
}

// ListPolicies returns customer-managed policies only, since the AWS-managed
// set runs to over a thousand entries.
func (i *IAM) ListPolicies(ctx context.Context) ([]cloudjack.Policy, error) {
	var policies []cloudjack.Policy
	var marker *string
	for {
		out, err := i.client.ListPolicies(ctx, &iam.ListPoliciesInput{
			Scope:  iamtypes.PolicyScopeTypeLocal,
			Marker: marker,
		})
		if err != nil {
			return nil, i.wrap.wrap(err, "ListPolicies", "")
		}
		for _, p := range out.Policies {
			policy := cloudjack.Policy{
				Name: awssdk.ToString(p.PolicyName),
				ID:   awssdk.ToString(p.Arn),
			}
			if p.CreateDate != nil {
				policy.CreatedAt = *p.CreateDate
			}
			policies = append(policies, policy)
		}
		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}
	return policies, nil
}

func toRole(in iamtypes.Role) cloudjack.Role {
	role := cloudjack.Role{
		Name:        awssdk.ToString(in.RoleName),
		ID:          awssdk.ToString(in.Arn),
		Description: awssdk.ToString(in.Description),
	}
	if in.CreateDate != nil {
		role.CreatedAt = *in.CreateDate
	}
	return role
}
