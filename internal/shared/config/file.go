package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the subset of Config that may be kept in a YAML file.
type fileConfig struct {
	APIPrefix       string   `yaml:"api_prefix"`
	AllowedSigners  []string `yaml:"allowed_signers"`
	AllowVoteUpdate *bool    `yaml:"allow_vote_update"`
	Debug           *bool    `yaml:"debug"`
	TrustRootsFile  string   `yaml:"trust_roots_file"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	PollTokenTTL    string   `yaml:"poll_token_ttl"`
	CORSAllowOrigin []string `yaml:"cors_allow_origins"`
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if fc.APIPrefix != "" {
		cfg.APIPrefix = fc.APIPrefix
	}
	if len(fc.AllowedSigners) > 0 {
		cfg.AllowedSigners = fc.AllowedSigners
	}
	if fc.AllowVoteUpdate != nil {
		cfg.AllowVoteUpdate = *fc.AllowVoteUpdate
	}
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
	if fc.TrustRootsFile != "" {
		cfg.TrustRootsFile = fc.TrustRootsFile
	}
	if fc.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.PollTokenTTL != "" {
		d, err := time.ParseDuration(fc.PollTokenTTL)
		if err != nil {
			return fmt.Errorf("poll_token_ttl: %w", err)
		}
		cfg.PollTokenTTL = d
	}
	if len(fc.CORSAllowOrigin) > 0 {
		cfg.CORSAllowOrigin = fc.CORSAllowOrigin
	}
	return nil
}
