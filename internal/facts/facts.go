// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package facts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	iu "github.com/choria-io/platcheck/internal/util"
	"github.com/choria-io/platcheck/metrics"
	"github.com/choria-io/platcheck/model"
)

// FactsDirectories are searched in order for facts.json and facts.yaml, later files override earlier ones
func FactsDirectories() []string {
	return []string{
		"/etc/choria/platcheck",
		filepath.Join(xdg.ConfigHome, "choria", "platcheck"),
	}
}

// StandardFacts gathers facts about the host running the checks merged with operator supplied facts files
func StandardFacts(ctx context.Context, log model.Logger) (map[string]any, error) {
	timer := prometheus.NewTimer(metrics.FactGatherTime.WithLabelValues())
	defer timer.ObserveDuration()

	sf := standardFacts(ctx)

	for _, dir := range FactsDirectories() {
		sf = MergeFactsFiles(sf, dir, log)
	}

	return sf, nil
}

// MergeFactsFiles merges facts.json then facts.yaml found in dir into facts, unreadable files are logged and skipped
func MergeFactsFiles(facts map[string]any, dir string, log model.Logger) map[string]any {
	for _, name := range []string{"facts.json", "facts.yaml"} {
		file := filepath.Join(dir, name)
		if !iu.FileExists(file) {
			continue
		}

		log.Debug("Reading facts", "file", file)
		fb, err := os.ReadFile(file)
		if err != nil {
			log.Error("Failed to read facts file", "file", file, "error", err)
			continue
		}

		var f map[string]any
		if filepath.Ext(file) == ".json" {
			err = json.Unmarshal(fb, &f)
		} else {
			err = yaml.Unmarshal(fb, &f)
		}
		if err != nil {
			log.Error("Failed to unmarshal facts file", "file", file, "error", err)
			continue
		}

		facts = iu.DeepMergeMap(facts, f)
	}

	return facts
}

func standardFacts(ctx context.Context) map[string]any {
	hostFacts := map[string]any{
		"info": map[string]any{},
	}
	cpuFacts := map[string]any{
		"count": runtime.NumCPU(),
		"info":  []any{},
	}
	memoryFacts := map[string]any{
		"virtual": map[string]any{},
	}
	runtimeFacts := map[string]any{
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
		"version": runtime.Version(),
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err == nil {
		hostFacts["info"] = hostInfo
	}

	cpuInfo, err := cpu.InfoWithContext(ctx)
	if err == nil {
		cpuFacts["info"] = cpuInfo
	}

	virtual, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		memoryFacts["virtual"] = virtual
	}

	return map[string]any{
		"host":    hostFacts,
		"cpu":     cpuFacts,
		"memory":  memoryFacts,
		"runtime": runtimeFacts,
	}
}
