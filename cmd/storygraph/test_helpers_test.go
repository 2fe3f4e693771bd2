package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"storygraph/internal/config"
	"storygraph/internal/registry"
	"storygraph/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

// setupCLITestEnv writes a config rooted in a temp dir. mutate runs before the
// file is written.
func setupCLITestEnv(t *testing.T, mutate func(*config.Config), opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("STORYGRAPH_MEDIA_ROOT", "")
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	if mutate != nil {
		mutate(cfg)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	testsupport.WriteFile(t, configPath, data)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *cliTestEnv) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seed stores assets and closes the registry so the command under test owns it.
func (e *cliTestEnv) seed(t *testing.T, assets ...*registry.Asset) {
	t.Helper()

	store, err := registry.Open(e.cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	defer store.Close()
	testsupport.Seed(t, store, assets...)
}

func (e *cliTestEnv) assets(t *testing.T) []*registry.Asset {
	t.Helper()

	store, err := registry.Open(e.cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	defer store.Close()
	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("store.All: %v", err)
	}
	return all
}

func (e *cliTestEnv) asset(t *testing.T, id string) *registry.Asset {
	t.Helper()

	for _, a := range e.assets(t) {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("asset %s not found", id)
	return nil
}

func syncedBin() []*registry.Asset {
	return []*registry.Asset{
		testsupport.MasterAudio("master", "master.wav", 62000),
		testsupport.InterviewAngle("cam-a", "A001.mov", 25, 1500, 120),
		testsupport.InterviewAngle("cam-b", "B001.mov", 25, 1500, -40),
	}
}
