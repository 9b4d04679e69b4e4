package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// modelDir writes a one-quad GLB and a corrupt GLB into a temporary directory.
func modelDir(t *testing.T) string {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2, 0, 2, 3})
	doc.Meshes = []*gltf.Mesh{{
		Name: "quad",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]uint32{"POSITION": pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "quad", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []uint32{0}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.glb"), buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.glb"), []byte("not a glb file at all"), 0o644))
	return dir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspectJSON(t *testing.T) {
	dir := modelDir(t)

	out, err := runCommand(t, "inspect", "--root", dir, "quad.glb")
	require.NoError(t, err)

	var s loader.AssetSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "quad.glb", s.URL)
	assert.Equal(t, "2.0", s.Version)
	assert.Len(t, s.Scenes, 1)
	assert.Equal(t, 1, s.Nodes)
	assert.Equal(t, 1, s.Meshes)
	assert.Equal(t, 1, s.Primitives)
	assert.Equal(t, 4, s.Vertices)
	require.NotNil(t, s.Bounds)
	assert.Equal(t, [3]float32{0.5, 0.5, 0}, s.Bounds.Center)
}

func TestInspectYAML(t *testing.T) {
	dir := modelDir(t)

	out, err := runCommand(t, "inspect", "--root", dir, "-o", "yaml", "quad.glb")
	require.NoError(t, err)

	var s loader.AssetSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &s))
	assert.Equal(t, "quad.glb", s.URL)
	assert.Equal(t, 4, s.Vertices)
}

func TestInspectDump(t *testing.T) {
	dir := modelDir(t)

	out, err := runCommand(t, "inspect", "--root", dir, "--dump", "--depth", "1", "quad.glb")
	require.NoError(t, err)
	assert.Contains(t, out, "Generator:")
	assert.Contains(t, out, `"quad.glb"`)
}

func TestInspectErrors(t *testing.T) {
	dir := modelDir(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := runCommand(t, "inspect", "--root", dir, "missing.glb")
		require.Error(t, err)
		assert.ErrorIs(t, err, loader.ErrFetchFailure)
		assert.Contains(t, err.Error(), "[FetchFailure]")
	})

	t.Run("corrupt container", func(t *testing.T) {
		_, err := runCommand(t, "inspect", "--root", dir, "bad.glb")
		require.Error(t, err)
		assert.Equal(t, loader.KindMalformedContainer, loader.KindOf(err))
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, err := runCommand(t, "inspect", "--root", dir, "-o", "xml", "quad.glb")
		assert.EqualError(t, err, `unknown output format "xml"`)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "loader.yaml")
		require.NoError(t, os.WriteFile(path, []byte("maxFetchWorkers: 0\n"), 0o644))
		_, err := runCommand(t, "inspect", "--config", path, "quad.glb")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read configuration")
	})

	t.Run("no arguments", func(t *testing.T) {
		_, err := runCommand(t, "inspect")
		assert.Error(t, err)
	})
}

func TestRootOptionsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rootDir: assets\nmaxFetchWorkers: 2\nlogLevel: warn\n"), 0o644))

	opts := &rootOptions{configPath: path, rootDir: "override", profile: true}
	cfg, err := opts.config()
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.RootDir)
	assert.Equal(t, 2, cfg.MaxFetchWorkers)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Profile)

	_, err = (&rootOptions{logLevel: "loud"}).config()
	assert.ErrorContains(t, err, "invalid configuration")
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := modelDir(t)
	cfg := loader.DefaultConfig()
	cfg.RootDir = dir
	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithConfig(cfg))
	t.Cleanup(l.Close)

	srv := httptest.NewServer(newHandler(l, dir, io.Discard))
	t.Cleanup(srv.Close)
	return srv, dir
}

func doRequest(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestServeInspect(t *testing.T) {
	srv, dir := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/inspect/quad.glb")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var s loader.AssetSummary
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Equal(t, 4, s.Vertices)

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/inspect/quad.glb?reload=1")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/assets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all map[string]loader.AssetSummary
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Contains(t, all, "quad.glb")

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/models/quad.glb")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := os.ReadFile(filepath.Join(dir, "quad.glb"))
	require.NoError(t, err)
	assert.Equal(t, raw, body)

	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/assets/quad.glb")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/assets/quad.glb")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeUnloadWithBaseURL(t *testing.T) {
	dir := modelDir(t)
	cfg := loader.DefaultConfig()
	cfg.RootDir = filepath.Dir(dir)
	cfg.BaseURL = filepath.Base(dir)
	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithConfig(cfg))
	t.Cleanup(l.Close)
	srv := httptest.NewServer(newHandler(l, cfg.RootDir, io.Discard))
	t.Cleanup(srv.Close)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/inspect/quad.glb")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/assets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all map[string]loader.AssetSummary
	require.NoError(t, json.Unmarshal(body, &all))
	key := cfg.BaseURL + "/quad.glb"
	require.Contains(t, all, key)

	// keys listed by /assets unload as-is
	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/assets/"+key)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, l.Assets())
}

func TestServeInspectErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		path   string
		status int
		kind   string
	}{
		{path: "missing.glb", status: http.StatusNotFound, kind: "FetchFailure"},
		{path: "bad.glb", status: http.StatusUnprocessableEntity, kind: "MalformedContainer"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := doRequest(t, http.MethodGet, srv.URL+"/inspect/"+tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			var e errorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tt.kind, e.Kind)
			assert.Contains(t, e.Error, "failed to inspect "+tt.path)
		})
	}

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/inspect/quad.glb")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	cancel()
	assert.NoError(t, serve(ctx, srv))
}
