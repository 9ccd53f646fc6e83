package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/amplius/ampl"
	"github.com/amplius/ampl/transfer/git"
	"github.com/amplius/ampl/transfer/httpx"
	"github.com/amplius/ampl/transfer/oci"
)

// config is the on-disk CLI configuration. Every section is optional; a
// missing transports block gives a client that can issue and validate
// claims but not distribute or retrieve.
type config struct {
	// StateDir roots the claim ledger and identity keys. Defaults to
	// <user config dir>/ampl.
	StateDir string `yaml:"state_dir"`

	Transports transportsConfig `yaml:"transports"`
}

type transportsConfig struct {
	OCI  *ociConfig  `yaml:"oci"`
	Git  *gitConfig  `yaml:"git"`
	HTTP *httpConfig `yaml:"http"`
}

type ociConfig struct {
	// Repository is the target reference, e.g. "registry.example.com/sets".
	Repository string `yaml:"repository"`
	PlainHTTP  bool   `yaml:"plain_http"`
	Registry   string `yaml:"registry"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Anonymous  bool   `yaml:"anonymous"`
}

type gitConfig struct {
	URL      string `yaml:"url"`
	Branch   string `yaml:"branch"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type httpConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// defaultConfigPath is used when --config is not given. A missing file at
// the default path is not an error.
func defaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "ampl", "config.yaml"), nil
}

func loadConfig(path string) (*config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return &config{}, nil
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// newClient builds an ampl client from the configuration.
func (cfg *config) newClient(logger *slog.Logger) (*ampl.Client, error) {
	stateDir := cfg.StateDir
	if stateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		stateDir = filepath.Join(base, "ampl")
	}

	opts := []ampl.Option{
		ampl.WithStateDir(stateDir),
		ampl.WithLogger(logger),
	}

	if c := cfg.Transports.OCI; c != nil {
		if c.Repository == "" {
			return nil, errors.New("config: transports.oci.repository is required")
		}
		ociOpts := []oci.Option{oci.WithLogger(logger)}
		switch {
		case c.Anonymous:
			ociOpts = append(ociOpts, oci.WithAnonymous())
		case c.Username != "":
			registry := c.Registry
			if registry == "" {
				return nil, errors.New("config: transports.oci.registry is required with static credentials")
			}
			ociOpts = append(ociOpts, oci.WithStaticCredentials(registry, c.Username, c.Password))
		default:
			ociOpts = append(ociOpts, oci.WithDockerConfig())
		}
		if c.PlainHTTP {
			ociOpts = append(ociOpts, oci.WithPlainHTTP(true))
		}
		transport, err := oci.New(c.Repository, ociOpts...)
		if err != nil {
			return nil, fmt.Errorf("config: oci transport: %w", err)
		}
		opts = append(opts, ampl.WithTransport(transport))
	}

	if c := cfg.Transports.Git; c != nil {
		if c.URL == "" {
			return nil, errors.New("config: transports.git.url is required")
		}
		gitOpts := []git.Option{git.WithLogger(logger)}
		if c.Branch != "" {
			gitOpts = append(gitOpts, git.WithBranch(c.Branch))
		}
		if c.Username != "" {
			gitOpts = append(gitOpts, git.WithBasicAuth(c.Username, c.Password))
		}
		opts = append(opts, ampl.WithTransport(git.New(c.URL, gitOpts...)))
	}

	if c := cfg.Transports.HTTP; c != nil {
		if c.Endpoint == "" {
			return nil, errors.New("config: transports.http.endpoint is required")
		}
		opts = append(opts, ampl.WithTransport(httpx.New(c.Endpoint, httpx.WithLogger(logger))))
	}

	return ampl.NewClient(opts...)
}
