// Package faults injects joint friction faults into the simulated lander.
// Each tracked joint carries an independent two-state machine driven by an
// externally-owned fault flag.
package faults

import (
	"sort"
)

// JointFaultInfo tracks the fault state of one joint. SavedFriction is only
// meaningful while Activated is true: it holds the friction captured at
// activation and is the exact value restored at deactivation.
type JointFaultInfo struct {
	FaultKey      string
	Activated     bool
	SavedFriction float64
}

// Table maps joint names to their fault state. The joint set is fixed at
// construction; there is no runtime registration.
type Table struct {
	joints map[string]*JointFaultInfo
	names  []string
}

// NewTable builds the table from a joint-name to fault-key map.
func NewTable(joints map[string]string) *Table {
	t := &Table{
		joints: make(map[string]*JointFaultInfo, len(joints)),
		names:  make([]string, 0, len(joints)),
	}
	for name, faultKey := range joints {
		t.joints[name] = &JointFaultInfo{FaultKey: faultKey}
		t.names = append(t.names, name)
	}
	// Stable order keeps per-tick processing deterministic.
	sort.Strings(t.names)
	return t
}

// Get returns the mutable fault state for a joint.
func (t *Table) Get(name string) (*JointFaultInfo, bool) {
	info, ok := t.joints[name]
	return info, ok
}

// Names returns all tracked joint names in sorted order.
func (t *Table) Names() []string {
	return t.names
}

// Len returns the number of tracked joints.
func (t *Table) Len() int {
	return len(t.joints)
}

// ActiveCount returns how many joints currently have an activated fault.
func (t *Table) ActiveCount() int {
	var n int
	for _, info := range t.joints {
		if info.Activated {
			n++
		}
	}
	return n
}
