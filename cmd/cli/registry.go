package main

import (
	"fmt"

	"github.com/waftester/jsonparams/pkg/config"
	"github.com/waftester/jsonparams/pkg/scanrule"
)

// buildRegistry assembles the built-in rules and any plugins from cfg, and
// narrows the set to cfg.Scan.Rules when it is not empty.
func buildRegistry(cfg *config.Config) (*scanrule.Registry, error) {
	reg := scanrule.NewDefault()
	if len(cfg.Scan.PluginConfig) > 0 {
		for _, p := range reg.Plugins() {
			if err := p.Init(cfg.Scan.PluginConfig); err != nil {
				return nil, fmt.Errorf("init rule %d: %w", p.ID(), err)
			}
		}
	}
	if err := reg.LoadPlugins(cfg.Scan.PluginDir, cfg.Scan.PluginConfig); err != nil {
		return nil, fmt.Errorf("loading plugins: %w", err)
	}
	return reg.Select(cfg.Scan.Rules...)
}
