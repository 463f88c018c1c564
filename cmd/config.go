// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"

	"github.com/shipit-project/shipit/config"
)

type configCommand struct {
	workDir    string
	configFile string
	readEnv    bool
}

func registerConfigCommand(app *fisk.Application) {
	cmd := &configCommand{}

	cfg := app.Command("config", "Manage the deploy configuration")

	show := cfg.Command("show", "Shows the resolved configuration").Alias("view").Action(cmd.showAction)
	show.Arg("workdir", "Repository to configure").ExistingDirVar(&cmd.workDir)
	show.Flag("config", "Configuration file to use").ExistingFileVar(&cmd.configFile)
	show.Flag("env", "Read template data from a .env file").UnNegatableBoolVar(&cmd.readEnv)

	cfg.Command("path", "Shows the configuration file that would be used").Action(cmd.pathAction)
}

func (c *configCommand) showAction(_ *fisk.ParseContext) error {
	logger := newLogger()

	env, err := templateEnv(c.readEnv, logger)
	if err != nil {
		return err
	}

	resolved, err := loadConfig(c.configFile, c.workDir, env)
	if err != nil {
		return err
	}

	y, err := yaml.Marshal(resolved)
	if err != nil {
		return err
	}

	fmt.Println(string(y))

	return nil
}

func (c *configCommand) pathAction(_ *fisk.ParseContext) error {
	path := config.DiscoverPath("")
	if path == "" {
		fmt.Println("No configuration file found")
		return nil
	}

	fmt.Println(path)

	return nil
}
