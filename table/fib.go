package table

import (
	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
)

// Strategy selects and tracks nexthops for one FIB entry. Implementations
// live in package strategy; FibEntry only holds the interface so that
// table has no dependency on the strategy package (metis_StrategyImpl).
type Strategy interface {
	Name() string
	AddNexthop(conn defn.ConnID)
	RemoveNexthop(conn defn.ConnID)
	LookupNexthop(n name.Name, nonce uint64, nexthops []FibNextHopEntry) []defn.ConnID
	OnContentObjectEgress(conn defn.ConnID, rttMs int64)
	OnTimeout(conn defn.ConnID)
}

// FibNextHopEntry is one candidate egress connection for a FIB entry,
// with its configured routing cost (lower is preferred, strategy
// permitting).
type FibNextHopEntry struct {
	Nexthop defn.ConnID
	Cost    int
}

// FibEntry is a forwarding table row: a name prefix, its set of
// candidate nexthops, and the strategy used to pick among them
// (metis_FibEntry).
type FibEntry struct {
	name     name.Name
	nexthops []*FibNextHopEntry
	strategy Strategy
}

// Name returns the entry's registered prefix.
func (e *FibEntry) Name() name.Name { return e.name }

// GetNextHops returns the entry's configured nexthop set.
func (e *FibEntry) GetNextHops() []*FibNextHopEntry { return e.nexthops }

// GetStrategy returns the entry's forwarding strategy.
func (e *FibEntry) GetStrategy() Strategy { return e.strategy }

func (e *FibEntry) findNexthop(conn defn.ConnID) *FibNextHopEntry {
	for _, nh := range e.nexthops {
		if nh.Nexthop == conn {
			return nh
		}
	}
	return nil
}

func (e *FibEntry) addNexthop(conn defn.ConnID, cost int) {
	if nh := e.findNexthop(conn); nh != nil {
		nh.Cost = cost
		return
	}
	e.nexthops = append(e.nexthops, &FibNextHopEntry{Nexthop: conn, Cost: cost})
	e.strategy.AddNexthop(conn)
}

func (e *FibEntry) removeNexthop(conn defn.ConnID) {
	for i, nh := range e.nexthops {
		if nh.Nexthop == conn {
			e.nexthops = append(e.nexthops[:i], e.nexthops[i+1:]...)
			e.strategy.RemoveNexthop(conn)
			return
		}
	}
}

// LookupNexthop delegates to the entry's strategy with its own candidate
// nexthop set.
func (e *FibEntry) LookupNexthop(n name.Name, nonce uint64) []defn.ConnID {
	cands := make([]FibNextHopEntry, len(e.nexthops))
	for i, nh := range e.nexthops {
		cands[i] = *nh
	}
	return e.strategy.LookupNexthop(n, nonce, cands)
}

// fibKey identifies a FIB entry by its prefix length and name hash;
// collisions within a bucket are resolved by exact name comparison.
type fibKey struct {
	length int
	hash   uint64
}

// Fib is the Forwarding Information Base: a set of name-prefix routes,
// each with its own nexthop set and strategy (metis_FIB). Matching walks
// the interest name from its full length down to the empty prefix,
// returning the first (longest) registered prefix found.
type Fib struct {
	newStrategy func(name string) (Strategy, error)
	buckets     map[fibKey][]*FibEntry
}

// NewFib creates an empty FIB. newStrategy constructs a fresh Strategy
// instance for a route added with no strategy previously configured at
// that prefix; it is provided by the caller to avoid a dependency from
// table on package strategy.
func NewFib(newStrategy func(name string) (Strategy, error)) *Fib {
	return &Fib{
		newStrategy: newStrategy,
		buckets:     make(map[fibKey][]*FibEntry),
	}
}

func (f *Fib) find(n name.Name) *FibEntry {
	key := fibKey{length: n.SegmentCount(), hash: n.Hash()}
	for _, e := range f.buckets[key] {
		if e.name.Equal(n) {
			return e
		}
	}
	return nil
}

// AddOrUpdate adds a nexthop to the route at prefix n, creating the route
// (and its strategy) if this is the first nexthop registered for it.
// strategyName is only consulted on route creation; metisFibEntry_SetStrategy
// semantics (changing an existing route's strategy) are exposed separately
// via SetStrategy.
func (f *Fib) AddOrUpdate(n name.Name, conn defn.ConnID, cost int, strategyName string) (*FibEntry, error) {
	if e := f.find(n); e != nil {
		e.addNexthop(conn, cost)
		return e, nil
	}

	strat, err := f.newStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	e := &FibEntry{name: n, strategy: strat}
	e.addNexthop(conn, cost)

	key := fibKey{length: n.SegmentCount(), hash: n.Hash()}
	f.buckets[key] = append(f.buckets[key], e)
	return e, nil
}

// SetStrategy replaces the strategy used at prefix n. Per metis_FibEntry's
// documented semantics, this discards all prior strategy-specific state;
// nexthops are re-added to the fresh strategy instance unchanged.
func (f *Fib) SetStrategy(n name.Name, strategyName string) error {
	e := f.find(n)
	if e == nil {
		return defn.ErrNoRoute
	}
	strat, err := f.newStrategy(strategyName)
	if err != nil {
		return err
	}
	e.strategy = strat
	for _, nh := range e.nexthops {
		strat.AddNexthop(nh.Nexthop)
	}
	return nil
}

// Remove removes conn as a nexthop of the route at prefix n. If that was
// the route's last nexthop, the route itself is removed and true is
// returned.
func (f *Fib) Remove(n name.Name, conn defn.ConnID) bool {
	e := f.find(n)
	if e == nil {
		return false
	}
	e.removeNexthop(conn)
	if len(e.nexthops) > 0 {
		return false
	}
	key := fibKey{length: n.SegmentCount(), hash: n.Hash()}
	bucket := f.buckets[key]
	for i, cand := range bucket {
		if cand == e {
			f.buckets[key] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(f.buckets[key]) == 0 {
		delete(f.buckets, key)
	}
	return true
}

// RemoveConnectionFromAllRoutes removes conn as a nexthop from every
// route in the table. Routes left with no nexthops remain in the table
// (per metisFIB_RemoveConnectionIdFromRoutes), since a route may still be
// a meaningful administrative entry even while temporarily nexthop-less.
func (f *Fib) RemoveConnectionFromAllRoutes(conn defn.ConnID) {
	for _, bucket := range f.buckets {
		for _, e := range bucket {
			e.removeNexthop(conn)
		}
	}
}

// Match returns the longest registered prefix of n, or nil if the table
// has no matching route (not even a default "/" route).
func (f *Fib) Match(n name.Name) *FibEntry {
	for k := n.SegmentCount(); k >= 0; k-- {
		key := fibKey{length: k, hash: n.HashPrefix(k)}
		for _, e := range f.buckets[key] {
			if e.name.EqualPrefix(n, k) && e.name.SegmentCount() == k {
				return e
			}
		}
	}
	return nil
}

// Len returns the number of routes in the table.
func (f *Fib) Len() int {
	n := 0
	for _, bucket := range f.buckets {
		n += len(bucket)
	}
	return n
}
