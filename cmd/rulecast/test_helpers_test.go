package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rulecast/internal/config"
	"rulecast/internal/ingestion"
	"rulecast/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(base, "rulecast.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ncontract_path = %q\nmanifest_dir = %q\nstoryboard_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.ContractPath,
		cfg.Paths.ManifestDir,
		cfg.Paths.StoryboardDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeSampleDocument(t *testing.T, dir, documentID string, mutate func(*ingestion.Document)) string {
	t.Helper()
	doc := ingestion.Document{
		Metadata: testsupport.SampleMetadata(),
		BGG:      testsupport.SampleBGG(),
		Pages:    testsupport.SamplePages(),
	}
	doc.Metadata.DocumentID = documentID
	if mutate != nil {
		mutate(&doc)
	}
	path := filepath.Join(dir, documentID+".json")
	testsupport.WriteJSON(t, path, doc)
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
