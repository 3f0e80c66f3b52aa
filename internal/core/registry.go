package core

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// moduleRegistry holds the compiled-in modules. Modules add themselves from
// init, so the set is fixed before main runs; configuration only chooses
// which of them to load.
type moduleRegistry struct {
	mu    sync.RWMutex
	infos map[ModuleID]ModuleInfo
}

var registry = &moduleRegistry{infos: make(map[ModuleID]ModuleInfo)}

func (r *moduleRegistry) add(info ModuleInfo) error {
	switch {
	case info.ID == "":
		return errors.New("core: module ID must not be empty")
	case info.New == nil:
		return fmt.Errorf("core: module %s: New function must not be nil", info.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.infos[info.ID]; dup {
		return fmt.Errorf("core: module already registered: %s", info.ID)
	}
	r.infos[info.ID] = info
	return nil
}

func (r *moduleRegistry) lookup(id ModuleID) (ModuleInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[id]
	return info, ok
}

// list returns the matching modules ordered by ID.
func (r *moduleRegistry) list(match func(ModuleID) bool) []ModuleInfo {
	r.mu.RLock()
	out := make([]ModuleInfo, 0, len(r.infos))
	for id, info := range r.infos {
		if match(id) {
			out = append(out, info)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b ModuleInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// RegisterModule makes a module available to configurations. It is meant
// for init functions and panics on an empty ID, a nil constructor or a
// duplicate ID, since any of those is a build defect.
func RegisterModule(instance Module) {
	if err := registry.add(instance.ModuleInfo()); err != nil {
		panic(err.Error())
	}
}

// GetModule returns the ModuleInfo registered under id.
func GetModule(id string) (ModuleInfo, bool) {
	return registry.lookup(ModuleID(id))
}

// GetModules returns every compiled-in module.
func GetModules() []ModuleInfo {
	return registry.list(func(ModuleID) bool { return true })
}

// GetModulesByNamespace returns the modules under namespace, so "channel"
// matches "channel.qq" but not a bare "channel" ID.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return registry.list(func(id ModuleID) bool {
		return id.Namespace() == namespace && string(id) != namespace
	})
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.infos = make(map[ModuleID]ModuleInfo)
}
