package strategy

import (
	"math/rand"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/table"
)

// randomPerDashSegment remembers, per distinct name prefix (every segment
// but the last - the "dash-segment" identifying one DASH representation's
// chunk run), which nexthop was last chosen, and keeps routing that
// prefix's Interests to the same nexthop until it is removed
// (strategy_RndSegment.c's last_used_face).
type randomPerDashSegment struct {
	rng      *rand.Rand
	lastUsed map[uint64]defn.ConnID
}

func newRandomPerDashSegment() *randomPerDashSegment {
	return &randomPerDashSegment{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		lastUsed: make(map[uint64]defn.ConnID),
	}
}

func (s *randomPerDashSegment) Name() string { return NameRandomPerDashSegment }

func (s *randomPerDashSegment) AddNexthop(defn.ConnID) {}
func (s *randomPerDashSegment) RemoveNexthop(conn defn.ConnID) {
	for key, used := range s.lastUsed {
		if used == conn {
			delete(s.lastUsed, key)
		}
	}
}

func dashSegmentKey(n name.Name) uint64 {
	count := n.SegmentCount()
	if count == 0 {
		return 0
	}
	return n.HashPrefix(count - 1)
}

func nexthopIsCandidate(nexthops []table.FibNextHopEntry, conn defn.ConnID) bool {
	for _, nh := range nexthops {
		if nh.Nexthop == conn {
			return true
		}
	}
	return false
}

func (s *randomPerDashSegment) LookupNexthop(n name.Name, _ uint64, nexthops []table.FibNextHopEntry) []defn.ConnID {
	if len(nexthops) == 0 {
		return nil
	}
	key := dashSegmentKey(n)
	if conn, ok := s.lastUsed[key]; ok && nexthopIsCandidate(nexthops, conn) {
		return []defn.ConnID{conn}
	}

	pick := nexthops[s.rng.Intn(len(nexthops))].Nexthop
	s.lastUsed[key] = pick
	return []defn.ConnID{pick}
}

func (s *randomPerDashSegment) OnContentObjectEgress(defn.ConnID, int64) {}
func (s *randomPerDashSegment) OnTimeout(defn.ConnID)                   {}
