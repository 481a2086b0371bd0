package strategy

import (
	"math/rand"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/table"
)

// random uniformly picks one nexthop from the FIB entry's candidate set
// on every lookup (strategy_Rnd.c). It carries no per-nexthop state.
type random struct {
	rng *rand.Rand
}

func newRandom() *random {
	return &random{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *random) Name() string { return NameRandom }

func (r *random) AddNexthop(defn.ConnID)    {}
func (r *random) RemoveNexthop(defn.ConnID) {}

func (r *random) LookupNexthop(_ name.Name, _ uint64, nexthops []table.FibNextHopEntry) []defn.ConnID {
	if len(nexthops) == 0 {
		return nil
	}
	pick := nexthops[r.rng.Intn(len(nexthops))]
	return []defn.ConnID{pick.Nexthop}
}

func (r *random) OnContentObjectEgress(defn.ConnID, int64) {}
func (r *random) OnTimeout(defn.ConnID)                    {}
