package strategy

import (
	"testing"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/table"
	"github.com/stretchr/testify/assert"
)

func TestNewRejectsUnknownName(t *testing.T) {
	_, err := New("not-a-real-strategy")
	assert.NotNil(t, err)
}

func TestNewDefaultsEmptyNameToDefaultName(t *testing.T) {
	s, err := New("")
	assert.Nil(t, err)
	assert.Equal(t, DefaultName, s.Name())
}

func TestNewConstructsEveryRecognizedName(t *testing.T) {
	for _, n := range []string{NameRandom, NameLoadBalancer, NameRandomPerDashSegment, NameLoadBalancerWithDelay} {
		s, err := New(n)
		assert.Nil(t, err)
		assert.Equal(t, n, s.Name())
	}
}

func TestRandomLookupReturnsACandidate(t *testing.T) {
	s := newRandom()
	n, _ := name.FromURI("lci:/a")
	nexthops := []table.FibNextHopEntry{{Nexthop: 1}, {Nexthop: 2}}
	picked := s.LookupNexthop(n, 0, nexthops)
	assert.Len(t, picked, 1)
	assert.Contains(t, []defn.ConnID{1, 2}, picked[0])
}

func TestLoadBalancerPrefersLeastPendingNexthop(t *testing.T) {
	lb := newLoadBalancer()
	lb.AddNexthop(1)
	lb.AddNexthop(2)
	n, _ := name.FromURI("lci:/a")
	nexthops := []table.FibNextHopEntry{{Nexthop: 1}, {Nexthop: 2}}

	// Saturate nexthop 1 with outstanding Interests; nexthop 2 should
	// dominate the weighted sample.
	for i := 0; i < 50; i++ {
		lb.pending[1] = 50
	}

	counts := map[defn.ConnID]int{}
	for i := 0; i < 200; i++ {
		picked := lb.LookupNexthop(n, 0, nexthops)
		counts[picked[0]]++
		lb.OnContentObjectEgress(picked[0], 10)
	}
	assert.Greater(t, counts[2], counts[1])
}

func TestRandomPerDashSegmentIsSticky(t *testing.T) {
	s := newRandomPerDashSegment()
	nexthops := []table.FibNextHopEntry{{Nexthop: 1}, {Nexthop: 2}, {Nexthop: 3}}

	first, _ := name.FromURI("lci:/video/rep1/segment-1")
	second, _ := name.FromURI("lci:/video/rep1/segment-2")

	picked1 := s.LookupNexthop(first, 0, nexthops)
	picked2 := s.LookupNexthop(second, 0, nexthops)
	assert.Equal(t, picked1, picked2, "same dash-segment prefix must route to the same nexthop")
}

func TestRandomPerDashSegmentRemoveNexthopClearsStickiness(t *testing.T) {
	s := newRandomPerDashSegment()
	nexthops := []table.FibNextHopEntry{{Nexthop: 1}}
	n, _ := name.FromURI("lci:/video/rep1/segment-1")

	picked := s.LookupNexthop(n, 0, nexthops)
	assert.Equal(t, []defn.ConnID{1}, picked)

	s.RemoveNexthop(1)
	assert.Empty(t, s.lastUsed)
}

func TestLoadBalancerWithDelayTriggersProbeEveryFrequency(t *testing.T) {
	lb := newLoadBalancerWithDelay()
	lb.AddNexthop(1)
	n, _ := name.FromURI("lci:/a")
	nexthops := []table.FibNextHopEntry{{Nexthop: 1}}

	for i := 0; i < probeFrequency-1; i++ {
		lb.LookupNexthop(n, 0, nexthops)
		assert.False(t, lb.ShouldProbe())
	}
	lb.LookupNexthop(n, 0, nexthops)
	assert.True(t, lb.ShouldProbe())
	assert.False(t, lb.ShouldProbe(), "ShouldProbe clears the flag once read")
}

func TestLoadBalancerWithDelayPrefersLowerDelayNexthop(t *testing.T) {
	lb := newLoadBalancerWithDelay()
	lb.AddNexthop(1)
	lb.AddNexthop(2)
	n, _ := name.FromURI("lci:/a")
	nexthops := []table.FibNextHopEntry{{Nexthop: 1}, {Nexthop: 2}}

	lb.OnContentObjectEgress(1, 5)
	lb.OnContentObjectEgress(2, 500)

	counts := map[defn.ConnID]int{}
	for i := 0; i < 200; i++ {
		picked := lb.LookupNexthop(n, 0, nexthops)
		counts[picked[0]]++
		lb.OnContentObjectEgress(picked[0], int64(5*picked[0]))
	}
	assert.Greater(t, counts[1], counts[2])
}
