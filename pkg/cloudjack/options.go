package cloudjack

// Provider-specific side-channels for cross-provider specs. Each adapter
// reads only its own struct and ignores the other, so a spec carrying both
// can be handed to either provider unchanged.

// AWSInstanceOptions carries EC2-only instance settings.
type AWSInstanceOptions struct {
	// KeyName is the EC2 key pair for SSH access.
	KeyName string

	// SecurityGroupIDs attach security groups to the instance.
	SecurityGroupIDs []string

	// SubnetID places the instance in a specific VPC subnet.
	SubnetID string

	// UserData is a base64-encoded boot script.
	UserData string
}

// GCPInstanceOptions carries Compute Engine-only instance settings.
type GCPInstanceOptions struct {
	// Zone overrides the client's default zone for this instance.
	Zone string

	// Network is the VPC network path. Defaults to the project default
	// network.
	Network string

	// Subnetwork is the subnetwork path within Network.
	Subnetwork string
}

// AWSRoleOptions carries IAM-on-AWS role settings.
type AWSRoleOptions struct {
	// TrustPolicyJSON is the assume-role policy document. Required.
	TrustPolicyJSON string

	// MaxSessionDurationSeconds bounds assumed-role sessions. Zero keeps
	// the AWS default of one hour.
	MaxSessionDurationSeconds int32
}

// GCPRoleOptions carries custom-role settings for GCP IAM.
type GCPRoleOptions struct {
	// Title is the role's display title. Defaults to the role name.
	Title string

	// Permissions lists the permissions the role grants. Required.
	Permissions []string

	// Stage is the role launch stage. Defaults to GA.
	Stage string
}
