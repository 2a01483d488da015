package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mind-engage/judging/internal/judging"
)

// testEnv points the CLI at a fresh file-backed sqlite database and returns
// the path of an env file the commands can load.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:"+filepath.Join(dir, "judging.db")+"?_pragma=busy_timeout(5000)")
	t.Setenv("BLOB_BASE_PATH", filepath.Join(dir, "blobs"))
	t.Setenv("BCRYPT_COST", "4")
	t.Cleanup(func() { _ = os.Unsetenv("MIN_PANEL_PROJECTS") })
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("MIN_PANEL_PROJECTS=5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return envFile
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMissingExplicitEnvFileFails(t *testing.T) {
	testEnv(t)
	_, err := runCmd(t, "reset-finalization", "--env-file", filepath.Join(t.TempDir(), "absent.env"))
	if err == nil {
		t.Fatal("expected error for missing --env-file")
	}
}

func TestGetConfigAppliesEnvFileAndFlags(t *testing.T) {
	envFile := testEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--addr", ":4000", "--env-file", envFile}); err != nil {
		t.Fatal(err)
	}
	cfg, err := getConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":4000" {
		t.Fatalf("addr = %q", cfg.HTTPAddr)
	}
	if cfg.MinPanelProjects != 5 {
		t.Fatalf("env file not applied: %+v", cfg)
	}
}

func TestExportScoresCommand(t *testing.T) {
	envFile := testEnv(t)
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--env-file", envFile}); err != nil {
		t.Fatal(err)
	}
	cfg, err := getConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	svc, dbh, err := openService(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateProject(ctx, judging.Project{ID: "p1", Title: "Water Filter"}); err != nil {
		t.Fatal(err)
	}
	dbh.Close()

	out := filepath.Join(t.TempDir(), "scores.csv")
	if _, err := runCmd(t, "export-scores", "--env-file", envFile, "--out", out); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "Project ID,Title,Team,School,Category,Avg Score\n") {
		t.Fatalf("header: %q", b)
	}
	if !strings.Contains(string(b), "p1,Water Filter,,,,0") {
		t.Fatalf("csv = %q", b)
	}
}

func TestResetFinalizationCommand(t *testing.T) {
	envFile := testEnv(t)
	got, err := runCmd(t, "reset-finalization", "--env-file", envFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "reopened 0 (all evaluators)") {
		t.Fatalf("output = %q", got)
	}
}

func TestBackupsCommands(t *testing.T) {
	envFile := testEnv(t)
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--env-file", envFile}); err != nil {
		t.Fatal(err)
	}
	cfg, err := getConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	svc, dbh, err := openService(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateProject(ctx, judging.Project{ID: "p1", Title: "Water Filter"}); err != nil {
		t.Fatal(err)
	}
	keys, err := svc.ResetAll(ctx, "test")
	dbh.Close()
	if err != nil || len(keys) != 2 {
		t.Fatalf("reset keys = %v, %v", keys, err)
	}

	listed, err := runCmd(t, "backups", "--env-file", envFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range keys {
		if !strings.Contains(listed, k) {
			t.Fatalf("listing %q misses %s", listed, k)
		}
	}

	var csvKey string
	for _, k := range keys {
		if strings.HasSuffix(k, ".csv") {
			csvKey = k
		}
	}
	got, err := runCmd(t, "backups", "get", csvKey, "--env-file", envFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "p1,Water Filter") {
		t.Fatalf("backup csv = %q", got)
	}
	if _, err := runCmd(t, "backups", "get", "backups/missing.csv", "--env-file", envFile); err == nil {
		t.Fatal("expected error for missing backup")
	}
}
