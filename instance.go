package torrouter

import (
	"context"
	"sort"
	"sync"

	"github.com/t4weyhryjtey/tor-router/internal/metrics"
)

// Definition describes one instance to create: an optional unique name, a
// configuration override map merged over the pool defaults, a selection
// weight for the Weighted method, and the initial set of group labels.
// The zero value is a valid definition.
type Definition struct {
	// Name identifies the instance for by-name operations. Optional; when
	// set it must be unique within the pool. Instances without a name can
	// only be addressed by index or selection.
	Name string

	// Config holds torrc keywords merged over the pool's configuration
	// template. Override wins key-by-key.
	Config map[string]string

	// Weight biases selection under the Weighted method. Values below 1
	// are treated as DefaultWeight.
	Weight int

	// Groups is the initial set of group labels.
	Groups []string
}

// Instance is one managed tor daemon tracked by the pool: an immutable
// generated id, the definition it was created from, its handle, and a
// mutable set of group labels.
//
// Instances are created by [Pool.CreateInstance] and live until removed or
// until the pool exits. Control operations (NewIdentity, GetConfig,
// SetConfig, Signal) forward to the handle and are safe for concurrent use.
type Instance struct {
	id         string
	name       string
	definition Definition
	handle     Handle

	mu     sync.Mutex
	groups map[string]struct{}
}

func newInstance(id string, def Definition, handle Handle) *Instance {
	groups := make(map[string]struct{}, len(def.Groups))
	for _, g := range def.Groups {
		groups[g] = struct{}{}
	}
	return &Instance{
		id:         id,
		name:       def.Name,
		definition: def,
		handle:     handle,
		groups:     groups,
	}
}

// ID returns the instance's generated unique identifier.
func (i *Instance) ID() string { return i.id }

// Name returns the instance's name, or "" if none was defined.
func (i *Instance) Name() string { return i.name }

// Definition returns the definition the instance was created from.
func (i *Instance) Definition() Definition { return i.definition }

// Weight returns the instance's selection weight. Definitions without a
// positive weight count as DefaultWeight.
func (i *Instance) Weight() int {
	if i.definition.Weight < 1 {
		return DefaultWeight
	}
	return i.definition.Weight
}

// Groups returns a sorted copy of the instance's current group labels.
func (i *Instance) Groups() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	labels := make([]string, 0, len(i.groups))
	for g := range i.groups {
		labels = append(labels, g)
	}
	sort.Strings(labels)
	return labels
}

// InGroup reports whether the instance carries the given label.
func (i *Instance) InGroup(label string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.groups[label]
	return ok
}

// addGroup unions the label into the instance's label set. Idempotent.
func (i *Instance) addGroup(label string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.groups[label] = struct{}{}
}

// removeGroup removes the label from the instance's label set. A label not
// present is a no-op.
func (i *Instance) removeGroup(label string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.groups, label)
}

// NewIdentity requests a switch to clean anonymity circuits on this instance.
func (i *Instance) NewIdentity(ctx context.Context) error {
	if err := i.handle.NewIdentity(ctx); err != nil {
		return err
	}
	metrics.IdentityRotationsTotal.Inc()
	return nil
}

// GetConfig reads the current values of a configuration keyword from this
// instance.
func (i *Instance) GetConfig(ctx context.Context, keyword string) ([]string, error) {
	return i.handle.GetConfig(ctx, keyword)
}

// SetConfig writes a configuration keyword on this instance.
func (i *Instance) SetConfig(ctx context.Context, keyword, value string) error {
	return i.handle.SetConfig(ctx, keyword, value)
}

// Signal sends a control signal by name to this instance.
func (i *Instance) Signal(ctx context.Context, name string) error {
	return i.handle.Signal(ctx, name)
}

// exit stops the instance's handle. Called by the pool during removal.
func (i *Instance) exit(ctx context.Context) error {
	return i.handle.Exit(ctx)
}
