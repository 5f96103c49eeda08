package apiclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	client := New("http://localhost:8080")
	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
}

func TestDeploy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "a3f8c2", r.Header.Get("X-Deploy-Hash"))
		assert.Equal(t, "3000", r.Header.Get("X-Deploy-Port"))
		assert.Equal(t, "bin/server", r.Header.Get("X-Deploy-Entrypoint"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "archive-bytes", string(body))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"hash":     "a3f8c2",
			"port":     3000,
			"message":  "deployment successful",
			"duration": 1234,
		})
	}))
	defer server.Close()

	client := New(server.URL)
	result, err := client.Deploy(strings.NewReader("archive-bytes"), "a3f8c2", 3000, "bin/server")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "a3f8c2", result.Hash)
	assert.Equal(t, 3000, result.Port)
	assert.Equal(t, int64(1234), result.Duration)
}

func TestDeployBadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing X-Deploy-Port header", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Deploy(strings.NewReader("archive"), "v1", 3000, "run")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsBadRequest())
	assert.Contains(t, apiErr.Message, "X-Deploy-Port")
}

func TestDeployServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "entrypoint not found: bin/server",
		})
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Deploy(strings.NewReader("archive"), "v1", 3000, "bin/server")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsDeployFailure())
	assert.Equal(t, "entrypoint not found: bin/server", apiErr.Message)
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"currentDeployment": "v1",
			"uploadPort":        8080,
			"deploymentsDir":    "/var/lib/slipway/deployments",
			"uptime":            42,
		})
	}))
	defer server.Close()

	client := New(server.URL)
	status, err := client.GetStatus()
	require.NoError(t, err)
	require.NotNil(t, status.CurrentDeployment)
	assert.Equal(t, "v1", *status.CurrentDeployment)
	assert.Equal(t, 8080, status.UploadPort)
	assert.Equal(t, int64(42), status.Uptime)
}

func TestGetStatusNoDeployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"currentDeployment": nil,
			"uploadPort":        8080,
			"deploymentsDir":    "/var/lib/slipway/deployments",
			"uptime":            1,
		})
	}))
	defer server.Close()

	client := New(server.URL)
	status, err := client.GetStatus()
	require.NoError(t, err)
	assert.Nil(t, status.CurrentDeployment)
}
