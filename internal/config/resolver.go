package config

import (
	"slices"
	"strings"
)

// Resolve returns the configured module IDs in load order: sorted by ID,
// which groups modules by namespace ("channel.*" before "gateway.*").
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Namespace returns the configured module IDs in the given namespace.
func Namespace(cfg *Config, namespace string) []string {
	var ids []string
	for _, id := range Resolve(cfg) {
		if strings.HasPrefix(id, namespace+".") {
			ids = append(ids, id)
		}
	}
	return ids
}
