package scanrule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
)

// PluginSymbol is the exported variable a rule plugin must provide.
const PluginSymbol = "Rule"

// InitPlugin runs Init on rule and registers it.
func (r *Registry) InitPlugin(rule PluginRule, config map[string]any) error {
	if err := rule.Init(config); err != nil {
		return fmt.Errorf("init rule %d (%s): %w", rule.ID(), rule.Name(), err)
	}
	return r.Add(rule)
}

// LoadPlugin opens a Go plugin (.so) exporting a PluginRule as Rule and
// registers it.
func (r *Registry) LoadPlugin(path string, config map[string]any) error {
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open plugin %s: %w", path, err)
	}

	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return fmt.Errorf("plugin %s does not export %s: %w", path, PluginSymbol, err)
	}

	rule, err := asPluginRule(sym)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", path, err)
	}
	return r.InitPlugin(rule, config)
}

// LoadPlugins loads every .so file in dir. A missing directory is not an
// error; a broken plugin does not stop the others from loading.
func (r *Registry) LoadPlugins(dir string, config map[string]any) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.so"))
	if err != nil {
		return fmt.Errorf("failed to glob plugins: %w", err)
	}

	var errs []error
	for _, file := range files {
		if err := r.LoadPlugin(file, config); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// asPluginRule accepts the symbol either as a PluginRule value or as a
// pointer to a PluginRule variable.
func asPluginRule(sym any) (PluginRule, error) {
	switch v := sym.(type) {
	case PluginRule:
		return v, nil
	case *PluginRule:
		if v != nil && *v != nil {
			return *v, nil
		}
	}
	return nil, fmt.Errorf("%s does not implement PluginRule (%T)", PluginSymbol, sym)
}
