package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbox/agentbox-go/sandbox/apis"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
)

func newServerClient(t *testing.T, router *mux.Router) *Client {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	c, err := NewClient(&Config{APIKey: "test-key", AccessToken: "tok", Endpoint: server.URL})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestUploadBuildArtifactStreamsMultipart(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "artifact.zip")
	payload := strings.Repeat("0123456789", 100*1024)
	require.NoError(t, os.WriteFile(artifact, []byte(payload), 0o644))

	router := mux.NewRouter()
	router.HandleFunc("/templates/{templateID}/builds/{buildID}/upload", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		assert.Equal(t, "tmpl-1", vars["templateID"])
		assert.Equal(t, "build-1", vars["buildID"])
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, int64(-1), r.ContentLength, "expected chunked request body")

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "artifact.zip", header.Filename)
		data, err := io.ReadAll(file)
		assert.NoError(t, err)
		assert.Equal(t, len(payload), len(data))
		assert.Equal(t, payload, string(data))
		w.WriteHeader(http.StatusCreated)
	}).Methods(http.MethodPost)

	var lastSent, lastTotal int64
	c := newServerClient(t, router)
	err := c.UploadBuildArtifact(context.Background(), "tmpl-1", "build-1", artifact,
		WithUploadProgress(func(sent, total int64) {
			atomic.StoreInt64(&lastSent, sent)
			atomic.StoreInt64(&lastTotal, total)
		}))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), atomic.LoadInt64(&lastSent))
	assert.Equal(t, int64(len(payload)), atomic.LoadInt64(&lastTotal))
}

func TestUploadBuildArtifactMissingFile(t *testing.T) {
	var hits int32
	router := mux.NewRouter()
	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})
	c := newServerClient(t, router)

	err := c.UploadBuildArtifact(context.Background(), "tmpl-1", "build-1", filepath.Join(t.TempDir(), "missing.zip"))
	var notFound *tplerrors.NotFoundError
	require.True(t, errors.As(err, &notFound), "unexpected error: %v", err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestUploadBuildArtifactRejected(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "artifact.zip")
	require.NoError(t, os.WriteFile(artifact, []byte("zip"), 0o644))

	router := mux.NewRouter()
	router.HandleFunc("/templates/{templateID}/builds/{buildID}/upload", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, apis.Error{Code: 403, Message: "team quota exceeded"})
	})
	c := newServerClient(t, router)

	err := c.UploadBuildArtifact(context.Background(), "tmpl-1", "build-1", artifact)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "unexpected error: %v", err)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "team quota exceeded", apiErr.Message)
}

func TestBuildStatusEndpoints(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/templates/{templateID}/builds/{buildID}/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("logsOffset"))
		assert.Equal(t, "go", r.Header.Get("lang"))
		writeJSON(w, http.StatusOK, apis.TemplateBuild{
			TemplateID: mux.Vars(r)["templateID"], BuildID: mux.Vars(r)["buildID"],
			Status: apis.TemplateBuildStatusBuilding, Logs: []string{"line"},
		})
	}).Methods(http.MethodGet)
	router.HandleFunc("/v2/templates/{templateID}/builds/{buildID}/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("logsOffset"))
		writeJSON(w, http.StatusOK, apis.TemplateBuildInfoV2{
			TemplateID: mux.Vars(r)["templateID"], BuildID: mux.Vars(r)["buildID"],
			Status: apis.TemplateBuildStatusError,
			Reason: &apis.BuildStatusReason{Message: "step failed"},
		})
	}).Methods(http.MethodGet)
	c := newServerClient(t, router)

	legacy, err := c.GetBuildStatus(context.Background(), "tmpl-1", "build-1", BuildStatusParams{LogsOffset: 3})
	require.NoError(t, err)
	assert.Equal(t, BuildStatusBuilding, legacy.Status)
	require.Len(t, legacy.Logs, 1)
	assert.Equal(t, "line", legacy.Logs[0].String())

	structured, err := c.GetBuildStatus(context.Background(), "tmpl-1", "build-1", BuildStatusParams{LogsOffset: 3, API: StatusAPIStructured})
	require.NoError(t, err)
	assert.Equal(t, BuildStatusError, structured.Status)
	require.NotNil(t, structured.Reason)
	assert.Equal(t, "step failed", structured.Reason.Message)
}

func TestStartBuildSendsNoBody(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/templates/{templateID}/builds/{buildID}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)
	c := newServerClient(t, router)

	require.NoError(t, c.StartBuild(context.Background(), "tmpl-1", "build-1"))
}

func TestDebugTransportDumpsRequests(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/templates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []apis.Template{})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	var out strings.Builder
	c, err := NewClient(&Config{APIKey: "test-key", Endpoint: server.URL, Debug: true, DebugOutput: &out})
	require.NoError(t, err)
	_, err = c.ListTemplates(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "GET "+server.URL+"/templates request:")
	assert.Contains(t, out.String(), "200 OK")
}
