package strategy

import (
	"math/rand"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/table"
)

// probeFrequency is how many forwarded Interests elapse between delay
// probes on every nexthop (strategy_LoadBalancerWithPD.c's PROBE_FREQUENCY).
const probeFrequency = 1024

type delayState struct {
	pending   int
	delayMs   int64
	hasSample bool
}

// loadBalancerWithDelay extends loadBalancer with measured RTT: nexthops
// are weighted by 1/(pending+1)^2/max(1, delay-min_delay), and every
// probeFrequency lookups it asks the caller to send a lightweight probe
// on every nexthop to refresh delay estimates.
type loadBalancerWithDelay struct {
	rng          *rand.Rand
	nexthops     map[defn.ConnID]*delayState
	lookups      int
	pendingProbe bool
}

func newLoadBalancerWithDelay() *loadBalancerWithDelay {
	return &loadBalancerWithDelay{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		nexthops: make(map[defn.ConnID]*delayState),
	}
}

func (lb *loadBalancerWithDelay) Name() string { return NameLoadBalancerWithDelay }

func (lb *loadBalancerWithDelay) AddNexthop(conn defn.ConnID) {
	if _, ok := lb.nexthops[conn]; !ok {
		lb.nexthops[conn] = &delayState{}
	}
}

func (lb *loadBalancerWithDelay) RemoveNexthop(conn defn.ConnID) {
	delete(lb.nexthops, conn)
}

func (lb *loadBalancerWithDelay) minDelay() int64 {
	min := int64(-1)
	for _, st := range lb.nexthops {
		if !st.hasSample {
			continue
		}
		if min < 0 || st.delayMs < min {
			min = st.delayMs
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

func (lb *loadBalancerWithDelay) weightOf(conn defn.ConnID, minDelay int64) float64 {
	st := lb.nexthops[conn]
	pendingWeight := weight(st.pending)
	if !st.hasSample {
		return pendingWeight
	}
	denom := st.delayMs - minDelay
	if denom < 1 {
		denom = 1
	}
	return pendingWeight / float64(denom)
}

// LookupNexthop returns the chosen nexthop. ShouldProbe reports whether
// this call crossed a probeFrequency boundary. Delay samples reach this
// strategy only through OnContentObjectEgress.
func (lb *loadBalancerWithDelay) LookupNexthop(_ name.Name, _ uint64, nexthops []table.FibNextHopEntry) []defn.ConnID {
	if len(nexthops) == 0 {
		return nil
	}

	lb.lookups++
	if lb.lookups%probeFrequency == 0 {
		lb.pendingProbe = true
	}

	min := lb.minDelay()
	total := 0.0
	weights := make([]float64, len(nexthops))
	for i, nh := range nexthops {
		w := lb.weightOf(nh.Nexthop, min)
		weights[i] = w
		total += w
	}

	pick := nexthops[len(nexthops)-1].Nexthop
	target := lb.rng.Float64() * total
	acc := 0.0
	for i, nh := range nexthops {
		acc += weights[i]
		if target <= acc {
			pick = nh.Nexthop
			break
		}
	}

	if st, ok := lb.nexthops[pick]; ok {
		st.pending++
	}
	return []defn.ConnID{pick}
}

// ShouldProbe reports and clears whether a probe round is due.
func (lb *loadBalancerWithDelay) ShouldProbe() bool {
	due := lb.pendingProbe
	lb.pendingProbe = false
	return due
}

func (lb *loadBalancerWithDelay) OnContentObjectEgress(conn defn.ConnID, rttMs int64) {
	st, ok := lb.nexthops[conn]
	if !ok {
		return
	}
	if st.pending > 0 {
		st.pending--
	}
	st.delayMs = rttMs
	st.hasSample = true
}

func (lb *loadBalancerWithDelay) OnTimeout(conn defn.ConnID) {
	if st, ok := lb.nexthops[conn]; ok && st.pending > 0 {
		st.pending--
	}
}
