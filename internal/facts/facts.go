// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package facts gathers host facts that are available to commit message
// and step templates and shown by the facts command
package facts

import (
	"context"
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	iu "github.com/shipit-project/shipit/internal/util"
	"github.com/shipit-project/shipit/metrics"
	"github.com/shipit-project/shipit/model"
)

// StandardFacts returns the standard host facts merged with any user
// supplied fact files from the shipit configuration directories
func StandardFacts(ctx context.Context, log model.Logger) (map[string]any, error) {
	timer := prometheus.NewTimer(metrics.FactGatherTime.WithLabelValues())
	defer timer.ObserveDuration()

	sf := standardFacts(ctx)

	sysConfigDir := "/etc/shipit"
	userConfigDir := filepath.Join(xdg.ConfigHome, "shipit")

	for _, dir := range []string{sysConfigDir, userConfigDir} {
		jf := filepath.Join(dir, "facts.json")
		yf := filepath.Join(dir, "facts.yaml")

		if iu.FileExists(jf) {
			log.Debug("Reading facts", "file", jf)
			jb, err := os.ReadFile(jf)
			if err != nil {
				log.Error("Failed to read facts file", "file", jf, "error", err)
			} else {
				var f map[string]any
				err = json.Unmarshal(jb, &f)
				if err != nil {
					log.Error("Failed to unmarshal facts file", "file", jf, "error", err)
				} else {
					sf = iu.DeepMergeMap(sf, f)
				}
			}
		}

		if iu.FileExists(yf) {
			log.Debug("Reading facts", "file", yf)
			yb, err := os.ReadFile(yf)
			if err == nil {
				var f map[string]any
				err = yaml.Unmarshal(yb, &f)
				if err != nil {
					log.Error("Failed to unmarshal facts file", "file", yf, "error", err)
				} else {
					sf = iu.DeepMergeMap(sf, f)
				}
			}
		}
	}

	return sf, nil
}

func standardFacts(ctx context.Context) map[string]any {
	now := time.Now().UTC()

	facts := map[string]any{
		"timestamp": now.Format(time.RFC3339),
		"time":      now.Format("15:04:05"),
		"date":      now.Format("2006-01-02"),
	}

	hostname, err := os.Hostname()
	if err == nil {
		facts["hostname"] = hostname
	}

	u, err := user.Current()
	if err == nil {
		facts["user"] = u.Username
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err == nil {
		facts["os"] = hostInfo.OS
		facts["platform"] = hostInfo.Platform
		facts["platform_version"] = hostInfo.PlatformVersion
		facts["kernel"] = hostInfo.KernelVersion
		facts["uptime"] = hostInfo.Uptime
	}

	cpus, err := cpu.CountsWithContext(ctx, true)
	if err == nil {
		facts["cpus"] = cpus
	}

	virtual, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		facts["memory"] = map[string]any{
			"total":     virtual.Total,
			"available": virtual.Available,
		}
	}

	return facts
}
