package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidlore/internal/config"
	"vidlore/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Transcription.CUDAEnabled = false
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--plain"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestRunRequiresVideoArgument(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestRunRejectsMissingVideo(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	_, _, err := runCLI(t, []string{"run", filepath.Join(t.TempDir(), "missing.mp4")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "video not found") {
		t.Fatalf("expected video not found, got %v", err)
	}
}

func TestDepsOfflineWithStubbedBinaries(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	out, _, err := runCLI(t, []string{"deps", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "Work directory")
	requireContains(t, out, "All checks passed")
}

func TestRunChecksBinariesFirst(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Render.FFprobeBinary = "vidlore-test-no-such-ffprobe"
	writeTestConfig(t, env.configPath, env.cfg)
	video := filepath.Join(t.TempDir(), "talk.mp4")
	testsupport.WriteFile(t, video, 16)
	_, _, err := runCLI(t, []string{"run", video}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "missing required binaries") {
		t.Fatalf("expected missing binaries error, got %v", err)
	}
}

func TestDepsReportsMissingBinaries(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Render.FFmpegBinary = "vidlore-test-no-such-ffmpeg"
	writeTestConfig(t, env.configPath, env.cfg)
	_, _, err := runCLI(t, []string{"deps", "--offline"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "FFmpeg") {
		t.Fatalf("expected missing FFmpeg, got %v", err)
	}
}
