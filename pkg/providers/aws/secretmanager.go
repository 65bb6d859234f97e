package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// secretsAPI is the slice of the Secrets Manager client this adapter uses.
type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// stsAPI is the slice of the STS client used to resolve the account ID.
type stsAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// SecretManager implements cloudjack.SecretManager on AWS Secrets Manager.
// Secrets are addressed by full ARN, constructed from the account ID that is
// resolved once at construction time via STS.
type SecretManager struct {
	client    secretsAPI
	region    string
	accountID string
	wrap      errorWrapper
}

var _ cloudjack.SecretManager = (*SecretManager)(nil)

// NewSecretManager builds the adapter and resolves the caller's account ID.
// A credentials problem therefore surfaces here rather than on first use.
func NewSecretManager(ctx context.Context, cfg awssdk.Config) (*SecretManager, error) {
	return newSecretManager(ctx, secretsmanager.NewFromConfig(cfg), sts.NewFromConfig(cfg), cfg.Region)
}

func newSecretManager(ctx context.Context, client secretsAPI, stsClient stsAPI, region string) (*SecretManager, error) {
	wrap := newErrorWrapper(cloudjack.ServiceSecretManager, secretErrorKinds)
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, wrap.wrap(err, "GetCallerIdentity", "")
	}
	return &SecretManager{
		client:    client,
		region:    region,
		accountID: awssdk.ToString(identity.Account),
		wrap:      wrap,
	}, nil
}

// arnFor builds the full secret ARN so lookups never fall back to partial
// name matching.
func (s *SecretManager) arnFor(name string) string {
	return fmt.Sprintf("arn:aws:secretsmanager:%s:%s:secret:%s", s.region, s.accountID, name)
}

func (s *SecretManager) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: awssdk.String(s.arnFor(name)),
	})
	if err != nil {
		return "", s.wrap.wrap(err, "GetSecretValue", name)
	}
	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	return string(out.SecretBinary), nil
}

func (s *SecretManager) CreateSecret(ctx context.Context, name, value string) (string, error) {
	out, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         awssdk.String(name),
		SecretString: awssdk.String(value),
	})
	if err != nil {
		return "", s.wrap.wrap(err, "CreateSecret", name)
	}
	return awssdk.ToString(out.ARN), nil
}

func (s *SecretManager) UpdateSecret(ctx context.Context, name, value string) error {
	_, err := s.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     awssdk.String(s.arnFor(name)),
		SecretString: awssdk.String(value),
	})
	return s.wrap.wrap(err, "UpdateSecret", name)
}

// DeleteSecret removes the secret immediately, skipping the recovery window.
func (s *SecretManager) DeleteSecret(ctx context.Context, name string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   awssdk.String(s.arnFor(name)),
		ForceDeleteWithoutRecovery: awssdk.Bool(true),
	})
	return s.wrap.wrap(err, "DeleteSecret", name)
}

func (s *SecretManager) ListSecrets(ctx context.Context) ([]string, error) {
	var names []string
	var nextToken *string
	for {
		out, err := s.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, s.wrap.wrap(err, "ListSecrets", "")
		}
		for _, entry := range out.SecretList {
			names = append(names, awssdk.ToString(entry.Name))
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return names, nil
}
