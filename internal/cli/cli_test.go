package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/throwbench/internal/cases"
	"github.com/wesleyorama2/throwbench/internal/load"
	"github.com/wesleyorama2/throwbench/internal/load/check"
	"github.com/wesleyorama2/throwbench/internal/server"
	"github.com/wesleyorama2/throwbench/internal/validation"
)

// execute runs a fresh command tree and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(server.New(server.DefaultConfig(), validation.New(), nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "throwbench "+version)
}

func TestRoot_BadLogLevel(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestBench_Console(t *testing.T) {
	out, stderr, err := execute(t, "bench", "--iterations", "200", "--warmup", "10")
	require.NoError(t, err)

	assert.Contains(t, out, cases.NameWithException)
	assert.Contains(t, out, cases.NameWithoutException)
	assert.Contains(t, out, "Validation benchmark [sampled]")
	assert.Contains(t, stderr, "benchmark run starting")
}

func TestBench_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	_, _, err := execute(t, "--log-level", "error", "bench",
		"--iterations", "100", "--warmup", "0",
		"--case", cases.NameWithoutException,
		"--format", "json", "--output", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		Engine  string `json:"engine"`
		Results []struct {
			Name       string `json:"name"`
			Iterations int64  `json:"iterations"`
			Sample     string `json:"sample"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sampled", decoded.Engine)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, cases.NameWithoutException, decoded.Results[0].Name)
	assert.Equal(t, int64(100), decoded.Results[0].Iterations)
	assert.Equal(t, "Invalid(Email: must be a valid email address)", decoded.Results[0].Sample)
}

func TestBench_Profiles(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")

	_, _, err := execute(t, "--log-level", "error", "bench",
		"--iterations", "100", "--warmup", "0", "--cpuprofile", cpu, "--memprofile", mem)
	require.NoError(t, err)

	for _, path := range []string{cpu, mem} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), path)
	}
}

func TestBench_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown case", args: []string{"bench", "--case", "nope"}, wantErr: `unknown case "nope"`},
		{name: "unknown format", args: []string{"bench", "--format", "html"}, wantErr: "unknown report format"},
		{name: "unknown engine", args: []string{"bench", "--engine", "turbo"}, wantErr: "unknown engine"},
		{name: "zero iterations", args: []string{"bench", "--iterations", "0"}, wantErr: "iterations must be > 0"},
		{name: "extra args", args: []string{"bench", "now"}, wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildLoadConfig(t *testing.T) {
	tests := []struct {
		endpoint  string
		wantNames []string
		wantErr   bool
	}{
		{endpoint: "with", wantNames: []string{cases.NameWithException}},
		{endpoint: "without", wantNames: []string{cases.NameWithoutException}},
		{endpoint: "both", wantNames: []string{cases.NameWithException, cases.NameWithoutException}},
		{endpoint: "BOTH", wantNames: []string{cases.NameWithException, cases.NameWithoutException}},
		{endpoint: "neither", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg, err := buildLoadConfig("http://localhost:5000", tt.endpoint, 100, time.Minute, 30*time.Second)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.True(t, cfg.InsecureSkipVerify)
			assert.Equal(t, server.PathHealth, cfg.HealthPath)
			names := make([]string, len(cfg.Scenarios))
			for i, sc := range cfg.Scenarios {
				names[i] = sc.Name
				assert.Equal(t, 100, sc.VUs)
				assert.Equal(t, time.Minute, sc.Duration.Std())
				assert.Equal(t, "GET", sc.Method)
				require.NotEmpty(t, sc.Checks)
				assert.Equal(t, check.TypeStatus, sc.Checks[0].Type)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestBuildLoadConfig_InvalidVUs(t *testing.T) {
	_, err := buildLoadConfig("http://localhost:5000", "with", -1, time.Second, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vus")
}

func TestLoad_QuickMode(t *testing.T) {
	ts := startServer(t)

	out, _, err := execute(t, "--log-level", "error", "load",
		"--url", ts.URL, "--vus", "2", "--duration", "200ms", "--quiet", "--fail-on-error")
	require.NoError(t, err)

	assert.Contains(t, out, "Completed ✓")
	assert.Contains(t, out, cases.NameWithException)
	assert.Contains(t, out, cases.NameWithoutException)
	assert.Contains(t, out, "Comparison:")
}

func TestLoad_ConfigWithOverrides(t *testing.T) {
	ts := startServer(t)

	profile := `
name: override
baseUrl: ` + ts.URL + `
scenarios:
  - name: without-exception
    path: /test/without
    vus: 50
    duration: 1h
    checks:
      - type: json-path
        path: failures.0.field
        value: Email
`
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o600))

	out, _, err := execute(t, "--log-level", "error", "load",
		"--config", path, "--vus", "2", "--duration", "150ms", "--json")
	require.NoError(t, err)

	var result load.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "override", result.Name)
	assert.True(t, result.Passed)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, 2, result.Scenarios[0].VUs)
	assert.Positive(t, result.Scenarios[0].Metrics.TotalRequests)
}

func TestLoad_FailOnError(t *testing.T) {
	ts := startServer(t)

	profile := `
baseUrl: ` + ts.URL + `
scenarios:
  - name: wrong
    path: /test/with
    vus: 1
    duration: 100ms
    checks:
      - type: status
        value: "200"
`
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o600))

	out, _, err := execute(t, "--log-level", "error", "load", "--config", path, "--quiet", "--fail-on-error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check failures")
	assert.Contains(t, out, "Failed ✗")
}

func TestLoad_MissingConfig(t *testing.T) {
	_, _, err := execute(t, "load", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
