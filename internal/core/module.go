package core

import (
	"context"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModuleID names a module as "<namespace>.<name>", e.g. "channel.qq" or
// "session.sqlite". It is also the key of the module's section under
// modules: in the configuration file.
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID ModuleID

	// New returns a fresh, unconfigured instance.
	New func() Module
}

// Module is implemented by everything the App manages. The hooks below are
// optional and detected by type assertion. A module goes through
//
//	Configure → Provision → Validate → Start → ... → Stop
//
// with Reload possible any time between Start and Stop.
type Module interface {
	ModuleInfo() ModuleInfo
}

// Configurable modules decode their own section of the configuration file.
// Modules without a section are not configured; they must apply their
// defaults again in Provision.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner modules acquire resources and exchange services through the
// AppContext. Modules are provisioned in ID order, so a service published
// by a later module must be looked up in Start instead.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator modules check their configuration after Provision. Validate
// must not have side effects.
type Validator interface {
	Validate() error
}

// Starter modules begin serving. Start must not block.
type Starter interface {
	Start() error
}

// Stopper modules release what they acquired. Stop is called in reverse
// start order, and also for modules that were loaded but never started.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader modules swap in a new configuration while running. The context
// carries the new sections; modules read theirs with ModuleConfig and must
// leave the old settings in place when the new ones are invalid.
type Reloader interface {
	Reload(ctx *AppContext) error
}
