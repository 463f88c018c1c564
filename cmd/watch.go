// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"sync"

	"github.com/choria-io/fisk"

	"github.com/shipit-project/shipit/watch"
)

type watchCommand struct {
	cfg     string
	workDir string
}

func registerWatchCommand(app *fisk.Application) {
	cmd := &watchCommand{}

	w := app.Command("watch", "Continuous deploy runner").Action(cmd.runAction)
	w.Flag("config", "Configuration file to use").Required().ExistingFileVar(&cmd.cfg)
	w.Flag("workdir", "Repository to watch").ExistingDirVar(&cmd.workDir)
}

func (c *watchCommand) runAction(_ *fisk.ParseContext) error {
	cfb, err := os.ReadFile(c.cfg)
	if err != nil {
		return err
	}

	cfg, err := watch.ParseConfig(cfb)
	if err != nil {
		return err
	}

	switch {
	case debug:
		cfg.LogLevel = "debug"
	case info:
		cfg.LogLevel = "info"
	}

	var opts []watch.Option
	if c.workDir != "" {
		opts = append(opts, watch.WithWorkDir(c.workDir))
	}

	w, err := watch.New(cfg, opts...)
	if err != nil {
		return err
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	err = w.Run(ctx, &wg)
	if err != nil {
		return err
	}

	wg.Wait()

	return nil
}
