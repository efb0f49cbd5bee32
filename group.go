package torrouter

import (
	"fmt"
	"slices"
	"strings"
)

// GroupView is a live projection of the pool's instances carrying one label.
// Groups are not stored entities: the member list is recomputed from current
// pool membership and instance labels on every access, so a view always
// reflects the live pool. Mutators act directly on the underlying instances'
// label sets.
//
// Views are cheap; obtain one from [Pool.Group] whenever needed rather than
// holding it long-term.
type GroupView struct {
	label string
	pool  *Pool
}

// Name returns the group label this view projects.
func (v *GroupView) Name() string { return v.label }

// Instances returns the current members: the instances whose label set
// contains the group label, sorted alphabetically by name (unnamed instances
// first, ordered by id). Empty if no instance carries the label.
func (v *GroupView) Instances() []*Instance {
	var members []*Instance
	for _, inst := range v.pool.Instances() {
		if inst.InGroup(v.label) {
			members = append(members, inst)
		}
	}
	slices.SortFunc(members, func(a, b *Instance) int {
		if c := strings.Compare(a.name, b.name); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
	return members
}

// Len returns the current number of members.
func (v *GroupView) Len() int {
	return len(v.Instances())
}

// Add unions the group label into the instance's label set. Idempotent.
func (v *GroupView) Add(inst *Instance) {
	inst.addGroup(v.label)
}

// AddByName unions the group label into the named instance's label set.
// Returns ErrNotFound if no pool instance has that name.
func (v *GroupView) AddByName(name string) error {
	inst, err := v.pool.byName(name)
	if err != nil {
		return err
	}
	inst.addGroup(v.label)
	return nil
}

// Remove removes the group label from the instance's label set. Removing a
// label that is not present is a no-op.
func (v *GroupView) Remove(inst *Instance) {
	inst.removeGroup(v.label)
}

// RemoveByName removes the group label from the named instance's label set.
// Returns ErrNotFound if no pool instance has that name; a member that
// simply lacks the label is a no-op.
func (v *GroupView) RemoveByName(name string) error {
	inst, err := v.pool.byName(name)
	if err != nil {
		return err
	}
	inst.removeGroup(v.label)
	return nil
}

// RemoveAt removes the group label from the member at the given position
// within this view's current (filtered, sorted) member list — not the pool
// order. Returns ErrNotFound if the position is out of range.
func (v *GroupView) RemoveAt(position int) error {
	members := v.Instances()
	if position < 0 || position >= len(members) {
		return fmt.Errorf("group %q position %d: %w", v.label, position, ErrNotFound)
	}
	members[position].removeGroup(v.label)
	return nil
}
