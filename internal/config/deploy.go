package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	sigsyaml "sigs.k8s.io/yaml"
)

// DeployConfig is the declarative deploy block of the config file
// (.syncwatch.yaml):
//
//	deploy:
//	  command: ./deploy-to-rpi.sh
//	  args: ["--host", "192.168.1.25"]
//	  dir: .
//	  env:
//	    TARGET: rpi
//	  timeout: 2m
type DeployConfig struct {
	// Command is the executable or shell command line to run.
	Command string `json:"command,omitempty"`

	// Args are passed to Command verbatim.
	Args []string `json:"args,omitempty"`

	// Dir is the working directory of the command.
	Dir string `json:"dir,omitempty"`

	// Env holds extra environment variables for the command.
	Env map[string]string `json:"env,omitempty"`

	// Timeout is a Go duration string ("90s", "2m").
	Timeout string `json:"timeout,omitempty"`
}

// DeploySpec is the resolved deploy invocation after flags, environment
// and the config file have been merged.
type DeploySpec struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// ParseDeployConfig parses the deploy section from raw config file bytes.
// It returns nil when the file has no deploy section.
func ParseDeployConfig(data []byte) (*DeployConfig, error) {
	var raw struct {
		Deploy *DeployConfig `json:"deploy,omitempty"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing deploy config: %w", err)
	}

	if raw.Deploy == nil {
		return nil, nil
	}

	if err := raw.Deploy.Validate(); err != nil {
		return nil, err
	}

	return raw.Deploy, nil
}

// LoadDeployConfig reads path and parses its deploy section.
func LoadDeployConfig(path string) (*DeployConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	return ParseDeployConfig(data)
}

// Validate checks the deploy block for correctness.
func (d *DeployConfig) Validate() error {
	if len(d.Args) > 0 && strings.TrimSpace(d.Command) == "" {
		return fmt.Errorf("deploy: args given without a command")
	}

	if d.Timeout != "" {
		timeout, err := time.ParseDuration(d.Timeout)
		if err != nil {
			return fmt.Errorf("deploy: invalid timeout %q: %w", d.Timeout, err)
		}

		if timeout < 0 {
			return fmt.Errorf("deploy: timeout %q must not be negative", d.Timeout)
		}
	}

	for key := range d.Env {
		if key == "" || strings.Contains(key, "=") {
			return fmt.Errorf("deploy: invalid environment variable name %q", key)
		}
	}

	return nil
}

// EnvList returns Env as sorted KEY=VALUE entries.
func (d *DeployConfig) EnvList() []string {
	if len(d.Env) == 0 {
		return nil
	}

	out := make([]string, 0, len(d.Env))
	for k, v := range d.Env {
		out = append(out, k+"="+v)
	}

	sort.Strings(out)

	return out
}

// EffectiveDeploy merges the deploy block with the deploy-command and
// deploy-timeout settings. An explicit deploy-command replaces the block's
// command and args; with neither set DefaultDeployCommand is used.
func (c *Config) EffectiveDeploy() DeploySpec {
	var spec DeploySpec

	if c.Deploy != nil {
		spec.Command = strings.TrimSpace(c.Deploy.Command)
		spec.Args = c.Deploy.Args
		spec.Dir = c.Deploy.Dir
		spec.Env = c.Deploy.EnvList()

		if c.Deploy.Timeout != "" {
			// Validated on load.
			spec.Timeout, _ = time.ParseDuration(c.Deploy.Timeout)
		}
	}

	if c.DeployCommand != "" {
		spec.Command = c.DeployCommand
		spec.Args = nil
	}

	if spec.Command == "" {
		spec.Command = DefaultDeployCommand
	}

	if c.DeployTimeout > 0 {
		spec.Timeout = c.DeployTimeout
	}

	return spec
}
