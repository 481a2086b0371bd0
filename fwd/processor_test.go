package fwd

import (
	"testing"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/messenger"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/table"
	"github.com/go-icn/fwd/tlv"
	"github.com/stretchr/testify/assert"
)

// stubStrategy always returns its single configured nexthop and records
// every callback invocation, so tests can assert on strategy interaction
// without depending on the real strategy package.
type stubStrategy struct {
	nexthop      defn.ConnID
	egressCalls  []defn.ConnID
	timeoutCalls []defn.ConnID
}

func (s *stubStrategy) Name() string                    { return "stub" }
func (s *stubStrategy) AddNexthop(defn.ConnID)          {}
func (s *stubStrategy) RemoveNexthop(defn.ConnID)       {}
func (s *stubStrategy) LookupNexthop(name.Name, uint64, []table.FibNextHopEntry) []defn.ConnID {
	return []defn.ConnID{s.nexthop}
}
func (s *stubStrategy) OnContentObjectEgress(conn defn.ConnID, _ int64) {
	s.egressCalls = append(s.egressCalls, conn)
}
func (s *stubStrategy) OnTimeout(conn defn.ConnID) {
	s.timeoutCalls = append(s.timeoutCalls, conn)
}

type fixture struct {
	proc  *Processor
	strat *stubStrategy
	sent  map[defn.ConnID][][]byte
}

func newFixture(t *testing.T, csCapacity int) *fixture {
	t.Helper()
	f := &fixture{strat: &stubStrategy{nexthop: 7}, sent: make(map[defn.ConnID][][]byte)}

	m := messenger.New(16)
	conns := table.NewConnTable(m)
	pit := table.NewPit(4 * time.Second)
	fib := table.NewFib(func(string) (table.Strategy, error) { return f.strat, nil })
	cs := table.NewContentStore(csCapacity)

	send := func(conn defn.ConnID, frame []byte) error {
		f.sent[conn] = append(f.sent[conn], frame)
		return nil
	}
	f.proc = NewProcessor(conns, pit, fib, cs, m, send, nil, nil)

	conns.Add(defn.ConnTypeTCP, "local:1", "peer:1", true, false)  // conn 1
	conns.Add(defn.ConnTypeTCP, "local:2", "peer:2", true, false)  // conn 2
	conns.AddWithID(defn.ConnID(7), defn.ConnTypeTCP, "local:7", "peer:7", true, false) // conn 7 (nexthop)
	m.Drain()

	prefix, err := name.FromURI("lci:/a")
	assert.NoError(t, err)
	_, err = fib.AddOrUpdate(prefix, 7, 1, "stub")
	assert.NoError(t, err)

	return f
}

func interestWire(t *testing.T, uri string) []byte {
	t.Helper()
	n, err := name.FromURI(uri)
	assert.NoError(t, err)
	return tlv.NewBuilder(tlv.PacketTypeInterest).SetName(n.ToWire()).Encode()
}

func contentObjectWire(t *testing.T, uri string, payload []byte) []byte {
	t.Helper()
	n, err := name.FromURI(uri)
	assert.NoError(t, err)
	return tlv.NewBuilder(tlv.PacketTypeContentObject).SetName(n.ToWire()).SetPayload(payload).Encode()
}

func TestInterestForwardHit(t *testing.T) {
	f := newFixture(t, 10)
	wire := interestWire(t, "lci:/a/b")

	f.proc.Receive(defn.ConnID(1), wire)

	assert.Len(t, f.sent[7], 1)
	assert.Equal(t, wire, f.sent[7][0])
	assert.Equal(t, 1, f.proc.Pit.Size())
}

func TestInterestAggregateFromSecondConnection(t *testing.T) {
	f := newFixture(t, 10)
	wire := interestWire(t, "lci:/a/b")

	f.proc.Receive(defn.ConnID(1), wire)
	f.proc.Receive(defn.ConnID(2), wire)

	assert.Len(t, f.sent[7], 1, "aggregated interest must not be forwarded again")
	assert.Equal(t, 1, f.proc.Pit.Size())
}

func TestContentObjectSatisfiesForwardsToAllAskers(t *testing.T) {
	f := newFixture(t, 10)
	interest := interestWire(t, "lci:/a/b")
	f.proc.Receive(defn.ConnID(1), interest)
	f.proc.Receive(defn.ConnID(2), interest)

	obj := contentObjectWire(t, "lci:/a/b", []byte("payload"))
	f.proc.Receive(defn.ConnID(7), obj)

	assert.Equal(t, [][]byte{obj}, f.sent[1])
	assert.Equal(t, [][]byte{obj}, f.sent[2])
	assert.Equal(t, 0, f.proc.Pit.Size())
	assert.Equal(t, 1, f.proc.Cs.Size())
	assert.Equal(t, []defn.ConnID{7}, f.strat.egressCalls)
}

func TestContentObjectUnsolicitedIsDropped(t *testing.T) {
	f := newFixture(t, 10)
	obj := contentObjectWire(t, "lci:/a/b", []byte("payload"))

	f.proc.Receive(defn.ConnID(7), obj)

	assert.Empty(t, f.sent[1])
	assert.Equal(t, 0, f.proc.Cs.Size())
}

func TestCacheHitAnswersWithoutForwarding(t *testing.T) {
	f := newFixture(t, 10)
	interest := interestWire(t, "lci:/a/b")
	f.proc.Receive(defn.ConnID(1), interest)
	obj := contentObjectWire(t, "lci:/a/b", []byte("payload"))
	f.proc.Receive(defn.ConnID(7), obj)

	// Second Interest for the same name should now hit the cache rather
	// than going to the FIB/strategy again.
	f.proc.Receive(defn.ConnID(2), interest)

	assert.Equal(t, [][]byte{obj}, f.sent[2])
	assert.Len(t, f.sent[7], 1, "cache hit must not re-forward to the nexthop")
}

func TestPitExpiryNotifiesStrategyTimeout(t *testing.T) {
	f := newFixture(t, 10)
	wire := interestWire(t, "lci:/a/b")
	f.proc.Receive(defn.ConnID(1), wire)

	later := time.Now().Add(5 * time.Second)
	f.proc.Pit.Sweep(later)

	assert.Equal(t, []defn.ConnID{7}, f.strat.timeoutCalls)
	assert.Equal(t, 0, f.proc.Pit.Size())
}
