package torrouter

import "fmt"

// LoadBalanceMethod selects how Next reorders the pool before returning an
// instance. The method is a pool-wide, mutable setting; see
// [Pool.SetLoadBalanceMethod].
type LoadBalanceMethod int

const (
	// RoundRobin rotates the pool order left by one position per selection.
	// Across N consecutive selections over an unchanged pool of N instances,
	// each instance is returned exactly once, in a fixed cyclic order.
	RoundRobin LoadBalanceMethod = iota

	// Weighted draws a full random permutation of the pool per selection,
	// biased by each instance's weight, and replaces the pool order with it.
	// Instances without an explicit weight count as DefaultWeight.
	Weighted
)

// IsValid reports whether the value is a recognized load balance method.
func (m LoadBalanceMethod) IsValid() bool {
	switch m {
	case RoundRobin, Weighted:
		return true
	}
	return false
}

// String returns the method name. Implements [fmt.Stringer].
func (m LoadBalanceMethod) String() string {
	switch m {
	case RoundRobin:
		return "round_robin"
	case Weighted:
		return "weighted"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// ParseLoadBalanceMethod converts a method name ("round_robin", "weighted")
// into a LoadBalanceMethod, for configuration surfaces that carry the method
// as a string.
func ParseLoadBalanceMethod(s string) (LoadBalanceMethod, error) {
	switch s {
	case "round_robin":
		return RoundRobin, nil
	case "weighted":
		return Weighted, nil
	}
	return 0, fmt.Errorf("unknown load balance method %q", s)
}
