package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"layersmith/internal/config"
	"layersmith/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	images     *testsupport.ImageServer
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("LAYERSMITH_AUTH_TOKEN", "")
	cfg := testsupport.NewConfig(t)

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	images := testsupport.NewImageServer(t, map[string][]byte{
		"/cover.png": testsupport.PNG(t, 48, 32),
		"/back.png":  testsupport.PNG(t, 24, 24),
	})
	return &cliTestEnv{cfg: cfg, configPath: configPath, images: images}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	full := args
	if configPath != "" {
		full = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(full)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
}

func TestConfigValidateRejectsBrokenFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[engine]\nkind = \"iframe\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRenderCommandSavesDocument(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"render", env.images.URL + "/cover.png",
		"--title", "Corsair One",
		"--subtitle", "Hydro (Logo) Edition",
		"--output", "corsair",
	}, env.configPath)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := filepath.Join(env.cfg.Paths.OutputDir, "corsair.psd")
	requireContains(t, out, "Saved "+want)
	requireContains(t, out, "48x32")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected document at %s: %v", want, err)
	}
}

func TestRenderCommandRequiresURL(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"render", "--title", "x"}, env.configPath); err == nil {
		t.Fatal("expected error without source url")
	}
}

func TestRenderCommandJSONReportsFetchFailure(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"render", "--json", "--url", env.images.URL + "/missing.png"}, env.configPath)
	if err == nil {
		t.Fatal("expected fetch failure")
	}
	requireContains(t, out, `"failure_class": "not_found"`)
	entries, readErr := os.ReadDir(env.cfg.Paths.OutputDir)
	if readErr != nil {
		t.Fatalf("read output dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no delivered files, got %d", len(entries))
	}
}

func TestBatchCommandSummarizesJobs(t *testing.T) {
	env := setupCLITestEnv(t)

	manifestPath := filepath.Join(t.TempDir(), "jobs.toml")
	manifest := fmt.Sprintf(`parallel = 2

[[job]]
source_url = "%[1]s/cover.png"
title = "Front"
output = "front"

[[job]]
source_url = "%[1]s/back.png"
subtitle = "Back"

[[job]]
source_url = "%[1]s/missing.png"
`, env.images.URL)
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"batch", manifestPath}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "1 of 3 jobs failed") {
		t.Fatalf("expected one failed job, got %v", err)
	}
	requireContains(t, out, "Saved")
	requireContains(t, out, "Not Found")
	requireContains(t, out, "2 rendered, 1 failed, 0 engine resets")

	for _, name := range []string{"front.psd", "back.psd"} {
		if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestLoadManifestRejectsEmptySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.toml")
	if err := os.WriteFile(path, []byte("[[job]]\ntitle = \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadManifest(path); err == nil || !strings.Contains(err.Error(), "job 1") {
		t.Fatalf("expected job 1 error, got %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.toml")
	if err := os.WriteFile(empty, []byte("parallel = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadManifest(empty); err == nil {
		t.Fatal("expected error for manifest without jobs")
	}
}

func TestEngineCheckBootsSandbox(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"engine", "check"}, env.configPath)
	if err != nil {
		t.Fatalf("engine check: %v\n%s", err, out)
	}
	requireContains(t, out, "Output directory:")
	requireContains(t, out, "[OK] ready via signal")
}
