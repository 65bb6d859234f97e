package cloudjack

import (
	"context"
	"io"
	"time"
)

// SecretManager provides named secret storage and retrieval.
type SecretManager interface {
	// GetSecret returns the current value of a named secret.
	GetSecret(ctx context.Context, name string) (string, error)

	// CreateSecret creates a new secret and returns its provider identifier.
	// Creating a secret that already exists fails with KindAlreadyExists.
	CreateSecret(ctx context.Context, name, value string) (string, error)

	// UpdateSecret replaces the value of an existing secret.
	UpdateSecret(ctx context.Context, name, value string) error

	// DeleteSecret permanently removes a secret and all its versions.
	DeleteSecret(ctx context.Context, name string) error

	// ListSecrets returns the names of all secrets visible to the client.
	ListSecrets(ctx context.Context) ([]string, error)
}

// ObjectStorage provides bucket and object (blob) operations.
type ObjectStorage interface {
	// CreateBucket creates a bucket in the client's configured location.
	CreateBucket(ctx context.Context, bucket string) error

	// DeleteBucket removes an empty bucket.
	DeleteBucket(ctx context.Context, bucket string) error

	// ListBuckets returns the names of all buckets owned by the account.
	ListBuckets(ctx context.Context) ([]string, error)

	// UploadObject stores an object under key, reading the payload from body.
	UploadObject(ctx context.Context, bucket, key string, body io.Reader) error

	// DownloadObject returns the full contents of an object.
	DownloadObject(ctx context.Context, bucket, key string) ([]byte, error)

	// DownloadFile streams an object into a local file at path, creating
	// or truncating it.
	DownloadFile(ctx context.Context, bucket, key, path string) error

	// DeleteObject removes a single object.
	DeleteObject(ctx context.Context, bucket, key string) error

	// ListObjects returns object keys in a bucket, optionally filtered by
	// prefix. All pages are drained before returning.
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)

	// SignedURL produces a time-limited URL granting the bearer access to an
	// object without cloud credentials.
	SignedURL(ctx context.Context, bucket, key string, opts SignedURLOptions) (string, error)
}

// SignedURLOptions configures ObjectStorage.SignedURL.
type SignedURLOptions struct {
	// Method is the HTTP method the URL authorizes. Defaults to GET.
	Method string

	// Expires is how long the URL stays valid. Defaults to one hour.
	Expires time.Duration

	// ContentType, when set on an upload URL, pins the Content-Type header
	// the uploader must send.
	ContentType string
}

// Message is a single message received from a queue. Receipt is the handle
// used to acknowledge (delete) the message after processing.
type Message struct {
	ID      string
	Body    string
	Receipt string
}

// Queue provides message queue operations.
type Queue interface {
	// CreateQueue creates a queue and returns its provider identifier, a
	// URL on AWS and a subscription path on GCP.
	CreateQueue(ctx context.Context, name string, opts QueueOptions) (string, error)

	// DeleteQueue removes a queue and any backing resources.
	DeleteQueue(ctx context.Context, name string) error

	// ListQueues returns queue names, optionally filtered by prefix.
	ListQueues(ctx context.Context, prefix string) ([]string, error)

	// SendMessage publishes a message body and returns the message ID.
	// Failures are classified KindMessage, not KindGeneric.
	SendMessage(ctx context.Context, name, body string, attributes map[string]string) (string, error)

	// ReceiveMessages pulls up to opts.MaxMessages messages. Messages remain
	// in flight until deleted via their Receipt.
	ReceiveMessages(ctx context.Context, name string, opts ReceiveOptions) ([]Message, error)

	// DeleteMessage acknowledges a received message by its receipt handle.
	DeleteMessage(ctx context.Context, name, receipt string) error
}

// QueueOptions configures Queue.CreateQueue.
type QueueOptions struct {
	// VisibilityTimeout is how long a received message stays hidden from
	// other consumers before redelivery. Zero keeps the provider default.
	VisibilityTimeout time.Duration

	// DelaySeconds delays delivery of every sent message (AWS only).
	DelaySeconds int32
}

// ReceiveOptions configures Queue.ReceiveMessages.
type ReceiveOptions struct {
	// MaxMessages caps the batch size. Defaults to 1; providers may clamp
	// it further (AWS caps at 10 per call).
	MaxMessages int32

	// WaitTime enables long polling for up to this duration (AWS only).
	WaitTime time.Duration
}

// Instance describes a virtual machine.
type Instance struct {
	ID         string
	Name       string
	State      string
	Type       string
	LaunchTime time.Time
	PublicIP   string
	PrivateIP  string
	Zone       string
}

// InstanceSpec describes a virtual machine to create. Name, Image and
// MachineType are portable; provider-specific knobs ride in the AWS and GCP
// option structs, and the adapter for the other provider ignores them.
type InstanceSpec struct {
	// Name labels the instance. On AWS it becomes the Name tag.
	Name string

	// Image is the boot image: an AMI ID on AWS, a source image path on GCP.
	Image string

	// MachineType is the instance size, such as t3.micro or e2-medium.
	MachineType string

	// DiskSizeGB sizes the boot disk (GCP only). Defaults to 10.
	DiskSizeGB int64

	AWS *AWSInstanceOptions
	GCP *GCPInstanceOptions
}

// Compute provides virtual machine lifecycle management.
type Compute interface {
	// CreateInstance provisions a new instance and returns it. The returned
	// Instance may still be in a pending state.
	CreateInstance(ctx context.Context, spec InstanceSpec) (Instance, error)

	// StartInstance starts a stopped instance.
	StartInstance(ctx context.Context, id string) error

	// StopInstance stops a running instance without destroying it.
	StopInstance(ctx context.Context, id string) error

	// TerminateInstance permanently destroys an instance.
	TerminateInstance(ctx context.Context, id string) error

	// GetInstance returns a single instance by ID.
	GetInstance(ctx context.Context, id string) (Instance, error)

	// ListInstances returns all instances visible to the client.
	ListInstances(ctx context.Context) ([]Instance, error)
}

// Zone describes a DNS hosted zone.
type Zone struct {
	// ID is the provider identifier used to address the zone in record
	// operations.
	ID string

	// Name is the zone's domain name.
	Name string

	// RecordCount is the number of record sets, where the provider reports it.
	RecordCount int64

	// Private marks a private (VPC-internal) zone.
	Private bool
}

// RecordSet is a DNS record set within a zone.
type RecordSet struct {
	Name   string
	Type   string
	TTL    int64
	Values []string
}

// DNS provides hosted zone and record management.
type DNS interface {
	// CreateZone creates a hosted zone for a domain and returns it.
	CreateZone(ctx context.Context, domain string, opts ZoneOptions) (Zone, error)

	// DeleteZone removes a hosted zone by its ID.
	DeleteZone(ctx context.Context, zoneID string) error

	// ListZones returns all hosted zones.
	ListZones(ctx context.Context) ([]Zone, error)

	// CreateRecord creates or replaces a record set in a zone.
	CreateRecord(ctx context.Context, zoneID string, record RecordSet) error

	// DeleteRecord removes a record set. The record must match the stored
	// set exactly, values and TTL included.
	DeleteRecord(ctx context.Context, zoneID string, record RecordSet) error

	// ListRecords returns every record set in a zone.
	ListRecords(ctx context.Context, zoneID string) ([]RecordSet, error)
}

// ZoneOptions configures DNS.CreateZone.
type ZoneOptions struct {
	// Comment is a free-form zone description.
	Comment string

	// Private creates a VPC-internal zone where supported.
	Private bool
}

// Role describes an IAM role.
type Role struct {
	// Name is the short role name.
	Name string

	// ID is the provider identifier: the ARN on AWS, the full resource name
	// on GCP.
	ID string

	Description string
	CreatedAt   time.Time
}

// Policy describes an IAM policy attachable to roles.
type Policy struct {
	Name      string
	ID        string
	CreatedAt time.Time
}

// RoleSpec describes an IAM role to create. AWS roles need a trust policy
// document; GCP custom roles need a permission list.
type RoleSpec struct {
	Name        string
	Description string

	AWS *AWSRoleOptions
	GCP *GCPRoleOptions
}

// IAM provides role and policy management.
type IAM interface {
	// CreateRole creates a role from the spec and returns it.
	CreateRole(ctx context.Context, spec RoleSpec) (Role, error)

	// DeleteRole removes a role. Roles with attached policies cannot be
	// deleted on AWS; detach first.
	DeleteRole(ctx context.Context, name string) error

	// ListRoles returns roles visible to the client.
	ListRoles(ctx context.Context) ([]Role, error)

	// AttachPolicy binds a policy to a role. The policy is addressed by ARN
	// on AWS and by role resource name on GCP, where the "role" argument is
	// the member principal being granted.
	AttachPolicy(ctx context.Context, role, policy string) error

	// DetachPolicy removes a policy binding created by AttachPolicy.
	DetachPolicy(ctx context.Context, role, policy string) error

	// ListPolicies returns customer-managed policies.
	ListPolicies(ctx context.Context) ([]Policy, error)
}

// LogEntry is a single log record read back from a log group.
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Severity  string
	Stream    string
}

// Logging provides log group and log entry management.
type Logging interface {
	// CreateLogGroup creates a log group (AWS) or a routing sink (GCP).
	// On GCP without a destination this is a no-op, since log names are
	// created implicitly on first write.
	CreateLogGroup(ctx context.Context, name string, opts LogGroupOptions) error

	// DeleteLogGroup removes a log group and its stored entries.
	DeleteLogGroup(ctx context.Context, name string) error

	// ListLogGroups returns log group names, optionally filtered by prefix.
	ListLogGroups(ctx context.Context, prefix string) ([]string, error)

	// WriteLog appends a message with a severity such as INFO or ERROR.
	WriteLog(ctx context.Context, group, message, severity string) error

	// ReadLogs returns entries from a group, newest last.
	ReadLogs(ctx context.Context, group string, opts ReadLogsOptions) ([]LogEntry, error)
}

// LogGroupOptions configures Logging.CreateLogGroup.
type LogGroupOptions struct {
	// RetentionDays sets a retention policy (AWS only). Zero keeps logs
	// indefinitely.
	RetentionDays int32

	// Destination routes matching entries to a storage destination via a
	// sink (GCP only).
	Destination string
}

// ReadLogsOptions configures Logging.ReadLogs.
type ReadLogsOptions struct {
	// Limit caps the number of entries returned. Defaults to 100.
	Limit int32

	// Start and End bound the query window when non-zero.
	Start time.Time
	End   time.Time

	// Filter is a provider-native filter expression appended to the query.
	Filter string
}
