package gcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcompute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

func newTestCompute(t *testing.T, handler http.Handler) *Compute {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewCompute(context.Background(), cloudjack.GCPConfig{ProjectID: testProject},
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return c
}

func TestCreateInstanceBuildsDefaults(t *testing.T) {
	var inserted struct {
		Name        string `json:"name"`
		MachineType string `json:"machineType"`
		Disks       []struct {
			Boot             bool `json:"boot"`
			AutoDelete       bool `json:"autoDelete"`
			InitializeParams struct {
				SourceImage string `json:"sourceImage"`
				DiskSizeGb  string `json:"diskSizeGb"`
			} `json:"initializeParams"`
		} `json:"disks"`
		NetworkInterfaces []struct {
			Network string `json:"network"`
		} `json:"networkInterfaces"`
	}
	c := newTestCompute(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/projects/test-project/zones/us-central1-a/instances":
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
			writeJSON(t, w, http.StatusOK, map[string]any{"name": "op-1"})
		case "/projects/test-project/zones/us-central1-a/operations/op-1/wait":
			writeJSON(t, w, http.StatusOK, map[string]any{"name": "op-1", "status": "DONE"})
		case "/projects/test-project/zones/us-central1-a/instances/web-1":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"name":              "web-1",
				"status":            "PROVISIONING",
				"machineType":       "https://compute.googleapis.com/compute/v1/projects/test-project/zones/us-central1-a/machineTypes/e2-medium",
				"zone":              "https://compute.googleapis.com/compute/v1/projects/test-project/zones/us-central1-a",
				"creationTimestamp": "2026-03-15T12:30:00Z",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	instance, err := c.CreateInstance(context.Background(), cloudjack.InstanceSpec{
		Name:        "web-1",
		Image:       "projects/debian-cloud/global/images/family/debian-12",
		MachineType: "e2-medium",
	})
	require.NoError(t, err)

	assert.Equal(t, "zones/us-central1-a/machineTypes/e2-medium", inserted.MachineType)
	require.Len(t, inserted.Disks, 1)
	assert.True(t, inserted.Disks[0].Boot)
	assert.True(t, inserted.Disks[0].AutoDelete)
	assert.Equal(t, "projects/debian-cloud/global/images/family/debian-12", inserted.Disks[0].InitializeParams.SourceImage)
	assert.Equal(t, "10", inserted.Disks[0].InitializeParams.DiskSizeGb)
	require.Len(t, inserted.NetworkInterfaces, 1)
	assert.Equal(t, "global/networks/default", inserted.NetworkInterfaces[0].Network)

	assert.Equal(t, "web-1", instance.ID)
	assert.Equal(t, "provisioning", instance.State)
	assert.Equal(t, "e2-medium", instance.Type)
	assert.Equal(t, "us-central1-a", instance.Zone)
}

func TestCreateInstanceHonorsZoneOption(t *testing.T) {
	var insertPath string
	c := newTestCompute(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && insertPath == "" {
			insertPath = r.URL.Path
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"name": "op-1", "status": "DONE"})
	}))

	_, err := c.CreateInstance(context.Background(), cloudjack.InstanceSpec{
		Name:        "web-1",
		Image:       "img",
		MachineType: "e2-small",
		GCP:         &cloudjack.GCPInstanceOptions{Zone: "europe-west1-b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/projects/test-project/zones/europe-west1-b/instances", insertPath)
}

func TestTerminateInstanceLocatesZone(t *testing.T) {
	var deletePath string
	c := newTestCompute(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/projects/test-project/aggregated/instances":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"items": map[string]any{
					"zones/us-central1-a": map[string]any{
						"instances": []map[string]any{{
							"name": "web-1",
							"zone": "https://compute.googleapis.com/compute/v1/projects/test-project/zones/us-central1-a",
						}},
					},
				},
			})
		case r.Method == http.MethodDelete:
			deletePath = r.URL.Path
			writeJSON(t, w, http.StatusOK, map[string]any{"name": "op-2"})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	require.NoError(t, c.TerminateInstance(context.Background(), "web-1"))
	assert.Equal(t, "/projects/test-project/zones/us-central1-a/instances/web-1", deletePath)
}

func TestGetInstanceMissing(t *testing.T) {
	c := newTestCompute(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"items": map[string]any{}})
	}))

	_, err := c.GetInstance(context.Background(), "ghost")
	assert.True(t, cloudjack.IsNotFound(err))
}

func TestToInstance(t *testing.T) {
	instance := toInstance(&gcompute.Instance{
		Name:              "web-1",
		Status:            "RUNNING",
		MachineType:       "projects/p/zones/us-central1-a/machineTypes/e2-medium",
		Zone:              "projects/p/zones/us-central1-a",
		CreationTimestamp: "2026-03-15T12:30:00Z",
		NetworkInterfaces: []*gcompute.NetworkInterface{{
			NetworkIP:     "10.0.0.5",
			AccessConfigs: []*gcompute.AccessConfig{{NatIP: "34.1.2.3"}},
		}},
	})

	assert.Equal(t, cloudjack.Instance{
		ID:         "web-1",
		Name:       "web-1",
		State:      "running",
		Type:       "e2-medium",
		Zone:       "us-central1-a",
		PrivateIP:  "10.0.0.5",
		PublicIP:   "34.1.2.3",
		LaunchTime: time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC),
	}, instance)
}
