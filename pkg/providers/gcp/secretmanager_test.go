package gcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

const testProject = "test-project"

func newTestSecretManager(t *testing.T, handler http.Handler) *SecretManager {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sm, err := NewSecretManager(context.Background(), cloudjack.GCPConfig{ProjectID: testProject},
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return sm
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func writeAPIError(t *testing.T, w http.ResponseWriter, status int, message string) {
	t.Helper()
	writeJSON(t, w, status, map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

func TestGetSecretDecodesPayload(t *testing.T) {
	sm := newTestSecretManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/test-project/secrets/db-password/versions/latest:access", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"payload": map[string]any{
				"data": base64.StdEncoding.EncodeToString([]byte("hunter2")),
			},
		})
	}))

	value, err := sm.GetSecret(context.Background(), "db-password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)
}

func TestGetSecretMissing(t *testing.T) {
	sm := newTestSecretManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(t, w, http.StatusNotFound, "secret not found")
	}))

	_, err := sm.GetSecret(context.Background(), "nope")
	require.True(t, cloudjack.IsNotFound(err))
	assert.Equal(t, cloudjack.ServiceSecretManager, cloudjack.ErrorServiceOf(err))
}

func TestCreateSecretAddsFirstVersion(t *testing.T) {
	var addedPayload string
	sm := newTestSecretManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/projects/test-project/secrets":
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "db-password", r.URL.Query().Get("secretId"))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"name": "projects/test-project/secrets/db-password",
			})
		case "/v1/projects/test-project/secrets/db-password:addVersion":
			var req struct {
				Payload struct {
					Data string `json:"data"`
				} `json:"payload"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			addedPayload = req.Payload.Data
			writeJSON(t, w, http.StatusOK, map[string]any{
				"name": "projects/test-project/secrets/db-password/versions/1",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	id, err := sm.CreateSecret(context.Background(), "db-password", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "projects/test-project/secrets/db-password", id)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hunter2")), addedPayload)
}

func TestCreateSecretAlreadyExists(t *testing.T) {
	sm := newTestSecretManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(t, w, http.StatusConflict, "secret already exists")
	}))

	_, err := sm.CreateSecret(context.Background(), "db-password", "hunter2")
	assert.True(t, cloudjack.IsAlreadyExists(err))
}

func TestUpdateSecretRequiresExisting(t *testing.T) {
	var addVersionCalled bool
	sm := newTestSecretManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/projects/test-project/secrets/nope" {
			writeAPIError(t, w, http.StatusNotFound, "secret not found")
			return
		}
		addVersionCalled = true
		writeJSON(t, w, http.StatusOK, map[string]any{})
	}))

	err := sm.UpdateSecret(context.Background(), "nope", "value")
	require.True(t, cloudjack.IsNotFound(err))
	assert.False(t, addVersionCalled)
}

func TestListSecretsDrainsPages(t *testing.T) {
	sm := newTestSecretManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/test-project/secrets", r.URL.Path)
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"secrets":       []map[string]any{{"name": "projects/test-project/secrets/alpha"}},
				"nextPageToken": "page2",
			})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"secrets": []map[string]any{{"name": "projects/test-project/secrets/beta"}},
		})
	}))

	names, err := sm.ListSecrets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)
}

func TestDeleteSecret(t *testing.T) {
	var deleted string
	sm := newTestSecretManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		writeJSON(t, w, http.StatusOK, map[string]any{})
	}))

	require.NoError(t, sm.DeleteSecret(context.Background(), "db-password"))
	assert.Equal(t, "/v1/projects/test-project/secrets/db-password", deleted)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "alpha", shortName("projects/p/secrets/alpha"))
	assert.Equal(t, "plain", shortName("plain"))
}
