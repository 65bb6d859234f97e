package cloudjack

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2/google"
)

// Raw configuration keys accepted by ResolveConfig.
const (
	KeyAWSAccessKeyID     = "aws_access_key_id"
	KeyAWSSecretAccessKey = "aws_secret_access_key"
	KeyAWSRegion          = "region_name"

	KeyGCPProjectID       = "project_id"
	KeyGCPCredentialsPath = "credentials_path"
)

// Environment variables consulted when a raw key is absent. These names are
// the providers' own conventions and must not change.
const (
	envAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	envAWSRegion          = "AWS_DEFAULT_REGION"

	envGCPProject         = "GOOGLE_CLOUD_PROJECT"
	envGCPProjectFallback = "GCLOUD_PROJECT"
	envGCPCredentialsPath = "GOOGLE_APPLICATION_CREDENTIALS"
	gcpCloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ProviderConfig is a resolved, validated provider configuration. The two
// implementations are AWSConfig and GCPConfig; the interface is sealed so
// the client cache can rely on canonical cache fields.
type ProviderConfig interface {
	// Provider returns the provider this configuration targets.
	Provider() CloudProvider

	// cacheFields returns the canonical key/value pairs that define client
	// identity for caching. Derived state (loaded credentials) is excluded.
	cacheFields() map[string]string
}

// AWSConfig is resolved AWS configuration. Static credentials are optional;
// when absent the SDK's default chain (shared config, instance metadata)
// applies.
type AWSConfig struct {
	AccessKeyID     string `validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `validate:"required_with=AccessKeyID"`
	Region          string
}

// Provider implements ProviderConfig.
func (AWSConfig) Provider() CloudProvider { return ProviderAWS }

func (c AWSConfig) cacheFields() map[string]string {
	return map[string]string{
		KeyAWSAccessKeyID:     c.AccessKeyID,
		KeyAWSSecretAccessKey: c.SecretAccessKey,
		KeyAWSRegion:          c.Region,
	}
}

// GCPConfig is resolved GCP configuration. ProjectID is mandatory. When a
// credentials path is supplied the service account file is read and parsed
// during resolution, so a bad path or malformed key fails before any client
// is built.
type GCPConfig struct {
	ProjectID       string `validate:"required"`
	CredentialsPath string

	// Credentials is the parsed service account, nil when CredentialsPath
	// is unset and Application Default Credentials should apply.
	Credentials *google.Credentials

	// CredentialsJSON is the raw service account file, retained for signing
	// operations that need the private key directly.
	CredentialsJSON []byte
}

// Provider implements ProviderConfig.
func (GCPConfig) Provider() CloudProvider { return ProviderGCP }

func (c GCPConfig) cacheFields() map[string]string {
	return map[string]string{
		KeyGCPProjectID:       c.ProjectID,
		KeyGCPCredentialsPath: c.CredentialsPath,
	}
}

// ResolveConfig merges raw configuration with provider-standard environment
// variables into a validated ProviderConfig. Explicit raw values win over
// the environment. Unknown raw keys are rejected.
func ResolveConfig(ctx context.Context, provider CloudProvider, raw map[string]string) (ProviderConfig, error) {
	switch provider {
	case ProviderAWS:
		return resolveAWS(raw)
	case ProviderGCP:
		return resolveGCP(ctx, raw)
	}
	return nil, &UnsupportedProviderError{Provider: string(provider)}
}

func resolveAWS(raw map[string]string) (AWSConfig, error) {
	if err := rejectUnknownKeys(ProviderAWS, raw, KeyAWSAccessKeyID, KeyAWSSecretAccessKey, KeyAWSRegion); err != nil {
		return AWSConfig{}, err
	}
	cfg := AWSConfig{
		AccessKeyID:     resolveValue(raw, KeyAWSAccessKeyID, envAWSAccessKeyID),
		SecretAccessKey: resolveValue(raw, KeyAWSSecretAccessKey, envAWSSecretAccessKey),
		Region:          resolveValue(raw, KeyAWSRegion, envAWSRegion),
	}
	if err := validate.Struct(cfg); err != nil {
		return AWSConfig{}, &ConfigError{
			Provider: ProviderAWS,
			Message:  "access key ID and secret access key must be set together",
			Cause:    err,
		}
	}
	return cfg, nil
}

func resolveGCP(ctx context.Context, raw map[string]string) (GCPConfig, error) {
	if err := rejectUnknownKeys(ProviderGCP, raw, KeyGCPProjectID, KeyGCPCredentialsPath); err != nil {
		return GCPConfig{}, err
	}
	cfg := GCPConfig{
		ProjectID:       resolveValue(raw, KeyGCPProjectID, envGCPProject, envGCPProjectFallback),
		CredentialsPath: resolveValue(raw, KeyGCPCredentialsPath, envGCPCredentialsPath),
	}
	if err := validate.Struct(cfg); err != nil {
		return GCPConfig{}, &ConfigError{
			Provider: ProviderGCP,
			Field:    KeyGCPProjectID,
			Message:  "project ID is required",
			Cause:    err,
		}
	}
	if cfg.CredentialsPath != "" {
		data, err := os.ReadFile(cfg.CredentialsPath)
		if err != nil {
			return GCPConfig{}, &ConfigError{
				Provider: ProviderGCP,
				Field:    KeyGCPCredentialsPath,
				Message:  fmt.Sprintf("reading credentials file %s", cfg.CredentialsPath),
				Cause:    err,
			}
		}
		creds, err := google.CredentialsFromJSON(ctx, data, gcpCloudPlatformScope)
		if err != nil {
			return GCPConfig{}, &ConfigError{
				Provider: ProviderGCP,
				Field:    KeyGCPCredentialsPath,
				Message:  "parsing credentials file",
				Cause:    err,
			}
		}
		cfg.CredentialsJSON = data
		cfg.Credentials = creds
	}
	return cfg, nil
}

// resolveValue returns the raw value for key, falling back to the first set
// environment variable.
func resolveValue(raw map[string]string, key string, envVars ...string) string {
	if v, ok := raw[key]; ok && v != "" {
		return v
	}
	for _, env := range envVars {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

func rejectUnknownKeys(provider CloudProvider, raw map[string]string, allowed ...string) error {
	for key := range raw {
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return &ConfigError{
				Provider: provider,
				Field:    key,
				Message:  "unknown configuration key",
			}
		}
	}
	return nil
}
