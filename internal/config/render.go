package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// fileView mirrors the config file layout for rendering.
type fileView struct {
	LogLevel    string      `yaml:"log-level"`
	LogFormat   string      `yaml:"log-format"`
	NoColor     bool        `yaml:"no-color"`
	Quiet       bool        `yaml:"quiet"`
	Debounce    string      `yaml:"debounce"`
	Extensions  []string    `yaml:"ext,flow"`
	IgnoreDirs  []string    `yaml:"ignore-dir,flow"`
	Initial     bool        `yaml:"initial"`
	Port        int         `yaml:"port"`
	Host        string      `yaml:"host"`
	CORS        bool        `yaml:"cors"`
	Open        bool        `yaml:"open"`
	LogRequests bool        `yaml:"log-requests"`
	Requires    string      `yaml:"requires,omitempty"`
	Deploy      *deployView `yaml:"deploy"`
}

type deployView struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty,flow"`
	Dir     string   `yaml:"dir,omitempty"`
	Env     []string `yaml:"env,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"`
}

// Render returns the effective configuration as YAML, with the deploy
// block fully resolved.
func Render(cfg *Config) ([]byte, error) {
	spec := cfg.EffectiveDeploy()

	view := fileView{
		LogLevel:    cfg.LogLevel,
		LogFormat:   cfg.LogFormat,
		NoColor:     cfg.NoColor,
		Quiet:       cfg.Quiet,
		Debounce:    cfg.Debounce.String(),
		Extensions:  cfg.Extensions,
		IgnoreDirs:  cfg.IgnoreDirs,
		Initial:     cfg.Initial,
		Port:        cfg.Port,
		Host:        cfg.Host,
		CORS:        cfg.CORS,
		Open:        cfg.Open,
		LogRequests: cfg.LogRequests,
		Requires:    cfg.Requires,
		Deploy: &deployView{
			Command: spec.Command,
			Args:    spec.Args,
			Dir:     spec.Dir,
			Env:     spec.Env,
		},
	}

	if spec.Timeout > 0 {
		view.Deploy.Timeout = spec.Timeout.String()
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(view); err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}

	return buf.Bytes(), nil
}

// Diff returns a unified diff between the rendered defaults and cfg.
// The result is empty when cfg equals the defaults.
func Diff(cfg *Config) (string, error) {
	base, err := Render(Default())
	if err != nil {
		return "", err
	}

	current, err := Render(cfg)
	if err != nil {
		return "", err
	}

	label := "effective"
	if cfg.ConfigFile != "" {
		label = cfg.ConfigFile
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        strings.SplitAfter(string(base), "\n"),
		B:        strings.SplitAfter(string(current), "\n"),
		FromFile: "defaults",
		ToFile:   label,
		Context:  2,
	})
	if err != nil {
		return "", fmt.Errorf("computing diff: %w", err)
	}

	return unified, nil
}
