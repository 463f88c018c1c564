// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/SladkyCitron/slogcolor"

	"github.com/shipit-project/shipit/config"
	"github.com/shipit-project/shipit/deploy"
	"github.com/shipit-project/shipit/internal/facts"
	iu "github.com/shipit-project/shipit/internal/util"
	"github.com/shipit-project/shipit/model"
	"github.com/shipit-project/shipit/templates"
)

// templateEnv builds the environment configuration files and commit
// messages are resolved against, optionally reading a .env file from
// the current directory
func templateEnv(readEnv bool, log model.Logger) (*templates.Env, error) {
	f, err := facts.StandardFacts(ctx, log)
	if err != nil {
		return nil, err
	}

	environ, err := dotEnvData(readEnv, log)
	if err != nil {
		return nil, err
	}

	return &templates.Env{Facts: f, Environ: environ}, nil
}

func loadConfig(path string, workDir string, env *templates.Env) (*config.Config, error) {
	discovered := config.DiscoverPath(path)

	var cfg *config.Config
	var err error

	switch {
	case discovered != "":
		cfg, err = config.Load(discovered, env)
		if err != nil {
			return nil, err
		}

		if workDir != "" {
			cfg.WorkDir = workDir
		}

	case workDir != "":
		cfg = config.NewDefaultConfig(workDir)

	default:
		return nil, fmt.Errorf("%w: no configuration file found and no workdir given", model.ErrConfigInvalid)
	}

	env.Data = cfg.Data

	return cfg, nil
}

func newDeployer(cfg *config.Config, env *templates.Env, opts ...deploy.Option) (*deploy.Deployer, model.Logger, error) {
	logger := newLogger()
	out := newOutputLogger()

	opts = append(opts, deploy.WithFacts(env.Facts))

	d, err := deploy.New(cfg, logger, out, opts...)
	if err != nil {
		return nil, nil, err
	}

	return d, out, nil
}

func dotEnvData(readEnv bool, log model.Logger) (map[string]string, error) {
	environ := os.Environ()
	res := make(map[string]string)
	re := regexp.MustCompile(`^(.+?)="*(.+)"*$`)

	if readEnv {
		file, err := filepath.Abs(".env")
		if err != nil {
			return nil, err
		}

		if iu.FileExists(file) {
			log.With("file", file).Info("Reading environment variables from .env file")

			env, err := os.Open(file)
			if err != nil {
				return res, err
			}
			defer env.Close()

			scanner := bufio.NewScanner(env)
			for scanner.Scan() {
				line := scanner.Text()
				matches := re.FindStringSubmatch(line)
				if len(matches) == 3 {
					environ = append(environ, line)
				}
			}
		}
	}

	for _, line := range environ {
		matches := re.FindStringSubmatch(line)
		if len(matches) == 3 {
			res[matches[1]] = matches[2]
		}
	}

	return res, nil
}

func newOutputLogger() model.Logger {
	var level slog.Level

	switch {
	case debug:
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}

	opts := &slogcolor.Options{Level: level}
	if !iu.IsTerminal() {
		opts.NoColor = true
	}

	return deploy.NewSlogLogger(slog.New(slogcolor.NewHandler(os.Stdout, opts)))
}

func newLogger() model.Logger {
	var level slog.Level

	switch {
	case debug:
		level = slog.LevelDebug
	case info:
		level = slog.LevelInfo
	default:
		level = slog.LevelWarn
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return deploy.NewSlogLogger(logger)
}
