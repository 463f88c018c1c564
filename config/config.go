// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the shipit deploy configuration
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/adrg/xdg"

	iu "github.com/shipit-project/shipit/internal/util"
	"github.com/shipit-project/shipit/model"
	"github.com/shipit-project/shipit/templates"
)

//go:embed schema.json
var schemaJSON []byte

// DefaultCommitMessage is used when no commit message is configured,
// it is resolved against the template environment before committing
const DefaultCommitMessage = `chore: automated commit of pending changes

Committed by shipit from {{ Facts.hostname }} at {{ Facts.timestamp }}`

// Config holds the deploy pipeline configuration
type Config struct {
	// WorkDir is the repository the pipeline operates on, all commands
	// run from here
	WorkDir string `yaml:"workdir" json:"workdir"`

	// CommitMessage is the message used for the commit step, it may
	// contain {{ expression }} template placeholders
	CommitMessage string `yaml:"commit_message,omitempty" json:"commit_message,omitempty"`

	// PushArgs are extra arguments for the push step like "origin main"
	PushArgs string `yaml:"push_args,omitempty" json:"push_args,omitempty"`

	// RunsLimit is how many workflow runs the final check lists
	RunsLimit int `yaml:"runs_limit,omitempty" json:"runs_limit,omitempty"`

	// SkipRunsCheck disables the workflow runs check entirely
	SkipRunsCheck bool `yaml:"skip_runs_check,omitempty" json:"skip_runs_check,omitempty"`

	// SettleDelay is how long to wait after pushing before checking
	// workflow runs, gives the remote time to start them
	SettleDelay string `yaml:"settle_delay,omitempty" json:"settle_delay,omitempty"`

	// Timeouts are the per step timeouts
	Timeouts TimeoutsConfig `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`

	// PreSteps run before the git sequence, PostSteps after a
	// successful push
	PreSteps  []*model.StepProperties `yaml:"pre_steps,omitempty" json:"pre_steps,omitempty"`
	PostSteps []*model.StepProperties `yaml:"post_steps,omitempty" json:"post_steps,omitempty"`

	// Notify configures optional NATS publishing of step events
	Notify NotifyConfig `yaml:"notify,omitempty" json:"notify,omitempty"`

	// MonitorPort is the port to listen on for accessing Prometheus stats
	MonitorPort int `yaml:"monitor_port,omitempty" json:"monitor_port,omitempty"`

	// Data is user data made available to templates as Data
	Data map[string]any `yaml:"data,omitempty" json:"data,omitempty"`

	ParsedSettleDelay time.Duration `yaml:"-" json:"-"`
}

// TimeoutsConfig holds the per step timeouts as fisk duration strings
type TimeoutsConfig struct {
	Status string `yaml:"status,omitempty" json:"status,omitempty"`
	Stage  string `yaml:"stage,omitempty" json:"stage,omitempty"`
	Commit string `yaml:"commit,omitempty" json:"commit,omitempty"`
	Push   string `yaml:"push,omitempty" json:"push,omitempty"`
	Runs   string `yaml:"runs,omitempty" json:"runs,omitempty"`
}

// NotifyConfig configures step event publishing
type NotifyConfig struct {
	NatsContext string `yaml:"nats_context,omitempty" json:"nats_context,omitempty"`
	Subject     string `yaml:"subject,omitempty" json:"subject,omitempty"`
}

// NewDefaultConfig creates a configuration with the default timeouts
// for a working directory
func NewDefaultConfig(workDir string) *Config {
	cfg := &Config{WorkDir: workDir}
	cfg.setDefaults()

	return cfg
}

func (c *Config) setDefaults() {
	if c.CommitMessage == "" {
		c.CommitMessage = DefaultCommitMessage
	}
	if c.RunsLimit == 0 {
		c.RunsLimit = 3
	}
	if c.SettleDelay == "" {
		c.SettleDelay = "10s"
	}
	if c.Timeouts.Status == "" {
		c.Timeouts.Status = "30s"
	}
	if c.Timeouts.Stage == "" {
		c.Timeouts.Stage = "1m"
	}
	if c.Timeouts.Commit == "" {
		c.Timeouts.Commit = "1m"
	}
	if c.Timeouts.Push == "" {
		c.Timeouts.Push = "2m"
	}
	if c.Timeouts.Runs == "" {
		c.Timeouts.Runs = "30s"
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "shipit.deploy.events"
	}
}

// ParseConfig parses a configuration document, the document may be a
// jet template which is rendered against env before parsing, the
// rendered result is validated against the configuration schema
func ParseConfig(cb []byte, env *templates.Env) (*Config, error) {
	rendered, err := jetRender(cb, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfigInvalid, err)
	}

	err = validateSchema(rendered)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfigInvalid, err)
	}

	cfg := &Config{}
	err = yaml.Unmarshal(rendered, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfigInvalid, err)
	}

	cfg.setDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads and parses a configuration file
func Load(path string, env *templates.Env) (*Config, error) {
	cb, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseConfig(cb, env)
}

// DiscoverPath returns the first configuration file that exists, the
// explicit path wins, then ./.shipit.yaml, the user configuration
// directory and finally the system wide file
func DiscoverPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	candidates := []string{
		".shipit.yaml",
		filepath.Join(xdg.ConfigHome, "shipit", "shipit.yaml"),
		"/etc/shipit/shipit.yaml",
	}

	for _, path := range candidates {
		if iu.FileExists(path) {
			return path
		}
	}

	return ""
}

// Validate validates the configuration and parses all durations
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("%w: %w", model.ErrConfigInvalid, model.ErrWorkDirRequired)
	}

	var err error

	if c.SettleDelay != "" {
		c.ParsedSettleDelay, err = fisk.ParseDuration(c.SettleDelay)
		if err != nil {
			return fmt.Errorf("%w: settle_delay: %w", model.ErrConfigInvalid, err)
		}
	}

	for _, t := range []string{c.Timeouts.Status, c.Timeouts.Stage, c.Timeouts.Commit, c.Timeouts.Push, c.Timeouts.Runs} {
		if t == "" {
			continue
		}

		_, err = fisk.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("%w: timeouts: %w", model.ErrConfigInvalid, err)
		}
	}

	for _, step := range append(append([]*model.StepProperties{}, c.PreSteps...), c.PostSteps...) {
		err = step.Validate()
		if err != nil {
			return fmt.Errorf("%w: %w", model.ErrConfigInvalid, err)
		}
	}

	return nil
}

func validateSchema(cb []byte) error {
	jb, err := yaml.YAMLToJSON(cb)
	if err != nil {
		return err
	}

	sch, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	err = compiler.AddResource("shipit-config.json", sch)
	if err != nil {
		return err
	}

	schema, err := compiler.Compile("shipit-config.json")
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jb))
	if err != nil {
		return err
	}

	return schema.Validate(inst)
}
