package universal

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

func writeServiceAccount(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	creds, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   "test-project",
		"client_email": "svc@test-project.iam.gserviceaccount.com",
		"private_key":  string(keyPEM),
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, creds, 0o600))
	return path
}

func TestRegistryCoversAllProvidersAndServices(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, []cloudjack.CloudProvider{cloudjack.ProviderAWS, cloudjack.ProviderGCP}, reg.Providers())
	for _, provider := range reg.Providers() {
		assert.Equal(t, len(cloudjack.Services()), len(reg.ServicesFor(provider)),
			"provider %s is missing services", provider)
	}
}

func TestFactoryBuildsAndCachesGCPClients(t *testing.T) {
	factory := NewFactory()
	raw := map[string]string{
		"project_id":       "test-project",
		"credentials_path": writeServiceAccount(t),
	}

	storage, err := factory.ObjectStorage(context.Background(), cloudjack.ProviderGCP, raw)
	require.NoError(t, err)
	require.NotNil(t, storage)

	again, err := factory.ObjectStorage(context.Background(), cloudjack.ProviderGCP, raw)
	require.NoError(t, err)
	assert.Same(t, storage, again)
	assert.Equal(t, 1, factory.CachedClients())
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	factory := NewFactory()

	_, err := factory.ObjectStorage(context.Background(), cloudjack.CloudProvider("azure"), nil)
	var unsupported *cloudjack.UnsupportedProviderError
	require.ErrorAs(t, err, &unsupported)
}
