// Package strategy implements the forwarder's pluggable per-FIB-entry
// nexthop selection algorithms (metis strategies/). Each implementation
// satisfies table.Strategy and is instantiated fresh whenever a route is
// created or its strategy is explicitly changed.
package strategy

import (
	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/table"
)

// Names recognized by New, matching the wire/management vocabulary.
const (
	NameRandom                = "random"
	NameLoadBalancer          = "loadbalancer"
	NameRandomPerDashSegment  = "random-per-dash-segment"
	NameLoadBalancerWithDelay = "loadbalancer-with-delay"
)

// DefaultName is used when add_or_update is called with no strategy name.
const DefaultName = NameRandom

// New constructs the named strategy implementation, or
// defn.ErrUnknownStrategy if the name is not recognized. An empty name
// selects DefaultName, so callers such as table.Fib.AddOrUpdate and
// table.Fib.SetStrategy need not special-case an unset strategy
// themselves. Its signature matches table.NewFib's newStrategy
// parameter.
func New(name string) (table.Strategy, error) {
	if name == "" {
		name = DefaultName
	}
	switch name {
	case NameRandom:
		return newRandom(), nil
	case NameLoadBalancer:
		return newLoadBalancer(), nil
	case NameRandomPerDashSegment:
		return newRandomPerDashSegment(), nil
	case NameLoadBalancerWithDelay:
		return newLoadBalancerWithDelay(), nil
	default:
		return nil, &defn.ErrUnknownStrategy{Name: name}
	}
}
