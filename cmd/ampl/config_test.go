package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
state_dir: /var/lib/ampl
transports:
  git:
    url: https://git.example.com/sets.git
    branch: attestations
  http:
    endpoint: https://uploads.example.com/sets
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ampl", cfg.StateDir)
	require.NotNil(t, cfg.Transports.Git)
	assert.Equal(t, "https://git.example.com/sets.git", cfg.Transports.Git.URL)
	assert.Equal(t, "attestations", cfg.Transports.Git.Branch)
	require.NotNil(t, cfg.Transports.HTTP)
	assert.Nil(t, cfg.Transports.OCI)
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	t.Parallel()

	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "state_dir: [broken")
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestNewClientValidatesTransports(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)

	cfg := &config{
		StateDir:   t.TempDir(),
		Transports: transportsConfig{Git: &gitConfig{}},
	}
	_, err := cfg.newClient(logger)
	require.ErrorContains(t, err, "transports.git.url")

	cfg = &config{
		StateDir:   t.TempDir(),
		Transports: transportsConfig{HTTP: &httpConfig{}},
	}
	_, err = cfg.newClient(logger)
	require.ErrorContains(t, err, "transports.http.endpoint")

	cfg = &config{
		StateDir:   t.TempDir(),
		Transports: transportsConfig{OCI: &ociConfig{}},
	}
	_, err = cfg.newClient(logger)
	require.ErrorContains(t, err, "transports.oci.repository")
}

func TestNewClientBuilds(t *testing.T) {
	t.Parallel()

	cfg := &config{
		StateDir: t.TempDir(),
		Transports: transportsConfig{
			Git:  &gitConfig{URL: "https://git.example.com/sets.git"},
			HTTP: &httpConfig{Endpoint: "https://uploads.example.com/sets"},
		},
	}
	client, err := cfg.newClient(slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.NotNil(t, client)
}
