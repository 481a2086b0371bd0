package strategy

import (
	"math/rand"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/table"
)

// loadBalancer weights each nexthop by 1/(pending+1)^2 and samples
// proportionally, so a nexthop with outstanding unsatisfied Interests is
// progressively disfavored (strategy_LoadBalancer, per §4.8).
type loadBalancer struct {
	rng     *rand.Rand
	pending map[defn.ConnID]int
}

func newLoadBalancer() *loadBalancer {
	return &loadBalancer{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		pending: make(map[defn.ConnID]int),
	}
}

func (lb *loadBalancer) Name() string { return NameLoadBalancer }

func (lb *loadBalancer) AddNexthop(conn defn.ConnID) {
	if _, ok := lb.pending[conn]; !ok {
		lb.pending[conn] = 0
	}
}

func (lb *loadBalancer) RemoveNexthop(conn defn.ConnID) {
	delete(lb.pending, conn)
}

func weight(pending int) float64 {
	d := float64(pending + 1)
	return 1 / (d * d)
}

func (lb *loadBalancer) LookupNexthop(_ name.Name, _ uint64, nexthops []table.FibNextHopEntry) []defn.ConnID {
	if len(nexthops) == 0 {
		return nil
	}
	total := 0.0
	weights := make([]float64, len(nexthops))
	for i, nh := range nexthops {
		w := weight(lb.pending[nh.Nexthop])
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

	lb.pending[pick]++
	return []defn.ConnID{pick}
}

func (lb *loadBalancer) OnContentObjectEgress(conn defn.ConnID, _ int64) {
	lb.decrementPending(conn)
}

func (lb *loadBalancer) OnTimeout(conn defn.ConnID) {
	lb.decrementPending(conn)
}

func (lb *loadBalancer) decrementPending(conn defn.ConnID) {
	if n, ok := lb.pending[conn]; ok && n > 0 {
		lb.pending[conn] = n - 1
	}
}
