package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/agentbox/agentbox-go/internal/output"
	"github.com/agentbox/agentbox-go/internal/session"
	"github.com/agentbox/agentbox-go/sandbox"
)

func init() {
	color.NoColor = true
}

type cliEnv struct {
	configDir string
	out       *bytes.Buffer
	errOut    *bytes.Buffer
	hits      int32
}

// newCLIEnv 把命令行的输出、环境变量和服务端都替换为测试用的实现。
func newCLIEnv(t *testing.T, router *mux.Router, vars ...string) *cliEnv {
	t.Helper()
	e := &cliEnv{configDir: t.TempDir(), out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&e.hits, 1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	vars = append(vars, "AGENTBOX_CONFIG_DIR="+e.configDir, "AGENTBOX_API_URL="+server.URL)
	prevEnviron, prevLogger := environ, logger
	environ = func() []string { return vars }
	logger = output.NewLoggerTo(e.out, e.errOut)
	t.Cleanup(func() {
		environ, logger = prevEnviron, prevLogger
	})
	return e
}

func (e *cliEnv) run(args ...string) int {
	return run(args, e.out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

var listedTemplates = []map[string]interface{}{{
	"templateID":    "tpl-1",
	"aliases":       []string{"python"},
	"buildID":       "b1",
	"buildStatus":   "ready",
	"envType":       "linux_arm",
	"cpuCount":      2,
	"memoryMB":      1024,
	"buildCount":    3,
	"public":        false,
	"spawnCount":    7,
	"createdAt":     "2024-05-01T10:00:00Z",
	"updatedAt":     "2024-05-02T10:00:00Z",
	"lastSpawnedAt": "2024-05-03T10:00:00Z",
}}

func TestParseBuildArgs(t *testing.T) {
	args, err := parseBuildArgs([]string{"A=1", "B=x=y", "EMPTY="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "EMPTY": ""}, args)

	args, err = parseBuildArgs(nil)
	require.NoError(t, err)
	assert.Nil(t, args)

	for _, bad := range []string{"NOVALUE", "=1"} {
		_, err = parseBuildArgs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestRenderTemplates(t *testing.T) {
	templates := []sandbox.Template{{
		TemplateID:      "tpl-1",
		Aliases:         []string{"python", "py"},
		BuildID:         "b1",
		BuildStatus:     sandbox.BuildStatusReady,
		EnvironmentType: sandbox.EnvironmentLinuxArm,
		CPUCount:        2,
		MemoryMB:        1024,
		UpdatedAt:       time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}}

	var text bytes.Buffer
	require.NoError(t, renderTemplates(&text, "text", templates))
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "TEMPLATE ID"))
	assert.Contains(t, lines[1], "python,py")
	assert.Contains(t, lines[1], "1024 MiB")

	var js bytes.Buffer
	require.NoError(t, renderTemplates(&js, "json", templates))
	var decoded []templateListItem
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "linux_arm", decoded[0].Platform)

	var ym bytes.Buffer
	require.NoError(t, renderTemplates(&ym, "yaml", templates))
	var fromYAML []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, "tpl-1", fromYAML[0]["templateID"])

	var empty bytes.Buffer
	require.NoError(t, renderTemplates(&empty, "text", nil))
	assert.Equal(t, "No templates found.\n", empty.String())
}

func TestRunHelp(t *testing.T) {
	e := newCLIEnv(t, mux.NewRouter())
	assert.Equal(t, 0, e.run("--help"))
	assert.Contains(t, e.out.String(), "template")
	assert.Equal(t, 1, e.run())
}

func TestRunTemplateListJSON(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/templates", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "team-7", r.URL.Query().Get("teamID"))
		writeJSON(w, http.StatusOK, listedTemplates)
	}).Methods(http.MethodGet)

	e := newCLIEnv(t, router, "AGENTBOX_API_KEY=key", "AGENTBOX_TEAM_ID=team-7")
	require.Equal(t, 0, e.run("template", "list", "--format", "json"), e.errOut.String())

	var items []templateListItem
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "tpl-1", items[0].TemplateID)
	assert.Equal(t, int64(7), items[0].SpawnCount)
}

func TestRunRequiresCredentials(t *testing.T) {
	e := newCLIEnv(t, mux.NewRouter())
	assert.Equal(t, 1, e.run("template", "list"))
	assert.Contains(t, e.errOut.String(), "not logged in")
	assert.Equal(t, int32(0), atomic.LoadInt32(&e.hits))
}

func TestRunTemplateBuildMismatch(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "Dockerfile"), []byte("FROM ubuntu\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "agentbox.toml"), []byte("template_id = \"tpl-a\"\nplatform = \"linux_arm\"\n"), 0o644))

	e := newCLIEnv(t, mux.NewRouter(), "AGENTBOX_API_KEY=key")
	assert.Equal(t, 1, e.run("template", "build", "--path", project, "tpl-b"))
	assert.Contains(t, e.errOut.String(), "template_id mismatch")
	assert.Equal(t, int32(0), atomic.LoadInt32(&e.hits))
}

func TestRunTemplateBuildFailurePrintsLogs(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "Dockerfile"), []byte("FROM ubuntu\nRUN apt-get install -y nope\n"), 0o644))

	router := mux.NewRouter()
	router.HandleFunc("/templates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"templateID": "tpl", "buildID": "b1", "cpuCount": 2, "memoryMB": 512, "buildCount": 1,
			"public": false, "spawnCount": 0, "createdAt": time.Now(), "updatedAt": time.Now(),
		})
	}).Methods(http.MethodPost)
	router.HandleFunc("/templates/tpl/builds/b1/upload", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
	}).Methods(http.MethodPost)
	router.HandleFunc("/templates/tpl/builds/b1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)
	router.HandleFunc("/v2/templates/tpl/builds/b1/status", func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"templateID": "tpl", "buildID": "b1", "status": "error",
			"reason":     map[string]interface{}{"message": "RUN apt-get failed"},
			"logEntries": []map[string]interface{}{
				{"level": "info", "message": "Reading package lists", "timestamp": now},
				{"level": "error", "message": "Unable to locate package nope", "timestamp": now},
			},
		})
	}).Methods(http.MethodGet)

	e := newCLIEnv(t, router, "AGENTBOX_API_KEY=key")
	assert.Equal(t, 1, e.run("template", "build", "--path", project, "--platform", "linux_arm"))

	out := e.out.String()
	first, last := strings.Index(out, "Reading package lists"), strings.Index(out, "Unable to locate package nope")
	require.True(t, first >= 0 && last >= 0, out)
	assert.Less(t, first, last)
	assert.Equal(t, 1, strings.Count(out, "Unable to locate package nope"))
	assert.Contains(t, e.errOut.String(), "build tpl/b1 failed: RUN apt-get failed")
}

func TestRunTemplateBuildRejectsBadBuildArg(t *testing.T) {
	e := newCLIEnv(t, mux.NewRouter(), "AGENTBOX_API_KEY=key")
	assert.Equal(t, 1, e.run("template", "build", "--platform", "linux_x86", "--build-arg", "oops"))
	assert.Contains(t, e.errOut.String(), "KEY=VALUE")
}

func TestRunTemplateDeleteWithoutTerminal(t *testing.T) {
	var deleted int32
	router := mux.NewRouter()
	router.HandleFunc("/templates/{templateID}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tpl-1", mux.Vars(r)["templateID"])
		atomic.AddInt32(&deleted, 1)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	e := newCLIEnv(t, router, "AGENTBOX_API_KEY=key")
	if !output.IsInteractive() {
		assert.Equal(t, 1, e.run("template", "delete", "tpl-1"))
		assert.Equal(t, int32(0), atomic.LoadInt32(&deleted))
	}
	assert.Equal(t, 0, e.run("template", "delete", "--yes", "tpl-1"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&deleted))
	assert.Contains(t, e.out.String(), "Template tpl-1 deleted")
}

func TestRunAuthLifecycle(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/templates", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abcd-secret-token-wxyz" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": 401, "message": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, []interface{}{})
	}).Methods(http.MethodGet)

	e := newCLIEnv(t, router)

	assert.Equal(t, 1, e.run("auth", "login", "--token", "wrong"))
	assert.Contains(t, e.errOut.String(), "invalid token")
	_, err := session.Load(e.configDir)
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)

	require.Equal(t, 0, e.run("auth", "login", "--token", "abcd-secret-token-wxyz", "--team", "team-1"), e.errOut.String())
	sess, err := session.Load(e.configDir)
	require.NoError(t, err)
	assert.Equal(t, "abcd-secret-token-wxyz", sess.AccessToken)
	assert.Equal(t, "team-1", sess.TeamID)
	assert.Equal(t, sandbox.DefaultDomain, sess.Domain)

	e.out.Reset()
	require.Equal(t, 0, e.run("auth", "info"))
	assert.Contains(t, e.out.String(), "abcd****wxyz")
	assert.NotContains(t, e.out.String(), "secret")
	assert.Contains(t, e.out.String(), "team-1")

	require.Equal(t, 0, e.run("auth", "logout"))
	_, err = session.Load(e.configDir)
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
	assert.Equal(t, 1, e.run("auth", "info"))
}
