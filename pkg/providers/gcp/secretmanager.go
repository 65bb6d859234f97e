package gcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// SecretManager implements cloudjack.SecretManager on Google Secret Manager.
// Reads always access the "latest" version; updates add a version rather
// than mutating in place.
type SecretManager struct {
	svc     *secretmanager.Service
	project string
	wrap    errorWrapper
}

var _ cloudjack.SecretManager = (*SecretManager)(nil)

// NewSecretManager builds the Secret Manager adapter.
func NewSecretManager(ctx context.Context, cfg cloudjack.GCPConfig, extra ...option.ClientOption) (*SecretManager, error) {
	svc, err := secretmanager.NewService(ctx, clientOptions(cfg, extra...)...)
	if err != nil {
		return nil, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderGCP,
			Message:  "creating secret manager client",
			Cause:    err,
		}
	}
	return &SecretManager{
		svc:     svc,
		project: cfg.ProjectID,
		wrap:    newErrorWrapper(cloudjack.ServiceSecretManager),
	}, nil
}

func (s *SecretManager) parent() string {
	return "projects/" + s.project
}

func (s *SecretManager) secretPath(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", s.project, name)
}

func (s *SecretManager) GetSecret(ctx context.Context, name string) (string, error) {
	resp, err := s.svc.Projects.Secrets.Versions.
		Access(s.secretPath(name) + "/versions/latest").
		Context(ctx).Do()
	if err != nil {
		return "", s.wrap.wrap(err, "AccessSecretVersion", name)
	}
	if resp.Payload == nil {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", s.wrap.wrap(err, "AccessSecretVersion", name)
	}
	return string(data), nil
}

func (s *SecretManager) CreateSecret(ctx context.Context, name, value string) (string, error) {
	secret, err := s.svc.Projects.Secrets.
		Create(s.parent(), &secretmanager.Secret{
			Replication: &secretmanager.Replication{
				Automatic: &secretmanager.Automatic{},
			},
		}).
		SecretId(name).
		Context(ctx).Do()
	if err != nil {
		return "", s.wrap.wrap(err, "CreateSecret", name)
	}
	if err := s.addVersion(ctx, name, value); err != nil {
		return "", err
	}
	return secret.Name, nil
}

func (s *SecretManager) UpdateSecret(ctx context.Context, name, value string) error {
	// Confirm the secret exists so an update never creates one implicitly.
	if _, err := s.svc.Projects.Secrets.Get(s.secretPath(name)).Context(ctx).Do(); err != nil {
		return s.wrap.wrap(err, "GetSecret", name)
	}
	return s.addVersion(ctx, name, value)
}

func (s *SecretManager) DeleteSecret(ctx context.Context, name string) error {
	_, err := s.svc.Projects.Secrets.Delete(s.secretPath(name)).Context(ctx).Do()
	return s.wrap.wrap(err, "DeleteSecret", name)
}

func (s *SecretManager) ListSecrets(ctx context.Context) ([]string, error) {
	var names []string
	err := s.svc.Projects.Secrets.List(s.parent()).Pages(ctx, func(resp *secretmanager.ListSecretsResponse) error {
		for _, secret := range resp.Secrets {
			names = append(names, shortName(secret.Name))
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap.wrap(err, "ListSecrets", "")
	}
	return names, nil
}

func (s *SecretManager) addVersion(ctx context.Context, name, value string) error {
	_, err := s.svc.Projects.Secrets.
		AddVersion(s.secretPath(name), &secretmanager.AddSecretVersionRequest{
			Payload: &secretmanager.SecretPayload{
				Data: base64.StdEncoding.EncodeToString([]byte(value)),
			},
		}).
		Context(ctx).Do()
	return s.wrap.wrap(err, "AddSecretVersion", name)
}

// shortName strips the resource path down to its final segment.
func shortName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
