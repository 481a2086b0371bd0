package table

import (
	"testing"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
	"github.com/stretchr/testify/assert"
)

func TestReceiveInterestNewThenAggregate(t *testing.T) {
	pit := NewPit(4 * time.Second)
	n, _ := name.FromURI("lci:/a/b")
	now := time.Now()

	entry, isNew := pit.ReceiveInterest(defn.ConnID(1), n, nil, nil, time.Second, now)
	assert.True(t, isNew)
	assert.Len(t, entry.InRecords, 1)

	entry2, isNew2 := pit.ReceiveInterest(defn.ConnID(2), n, nil, nil, time.Second, now)
	assert.False(t, isNew2)
	assert.Same(t, entry, entry2)
	assert.Len(t, entry2.InRecords, 2)
}

func TestReceiveInterestSeparatesBySelectorGranularity(t *testing.T) {
	pit := NewPit(4 * time.Second)
	n, _ := name.FromURI("lci:/a/b")
	now := time.Now()

	bare, _ := pit.ReceiveInterest(defn.ConnID(1), n, nil, nil, time.Second, now)
	withKeyID, _ := pit.ReceiveInterest(defn.ConnID(1), n, []byte("key"), nil, time.Second, now)
	assert.NotSame(t, bare, withKeyID)
}

func TestSatisfyInterestReturnsIngressSetAndRemovesEntry(t *testing.T) {
	pit := NewPit(4 * time.Second)
	n, _ := name.FromURI("lci:/a/b")
	now := time.Now()

	pit.ReceiveInterest(defn.ConnID(1), n, nil, nil, time.Second, now)
	pit.ReceiveInterest(defn.ConnID(2), n, nil, nil, time.Second, now)

	matched, egress := pit.SatisfyInterest(n, nil, nil, now)
	assert.Len(t, matched, 1)
	assert.ElementsMatch(t, []defn.ConnID{1, 2}, egress)
	assert.Equal(t, 0, pit.Size())
}

func TestPitEntryExpiresLazily(t *testing.T) {
	pit := NewPit(4 * time.Second)
	n, _ := name.FromURI("lci:/a/b")
	now := time.Now()

	pit.ReceiveInterest(defn.ConnID(1), n, nil, nil, 50*time.Millisecond, now)

	later := now.Add(100 * time.Millisecond)
	_, isNew := pit.ReceiveInterest(defn.ConnID(2), n, nil, nil, time.Second, later)
	assert.True(t, isNew, "expired entry must not aggregate a fresh interest")
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	pit := NewPit(4 * time.Second)
	n, _ := name.FromURI("lci:/a/b")
	now := time.Now()
	pit.ReceiveInterest(defn.ConnID(1), n, nil, nil, 10*time.Millisecond, now)

	pit.Sweep(now.Add(20 * time.Millisecond))
	assert.Equal(t, 0, pit.Size())
}

func TestRemoveInterestOnlyTouchesItsOwnIndex(t *testing.T) {
	pit := NewPit(4 * time.Second)
	n, _ := name.FromURI("lci:/a/b")
	now := time.Now()

	pit.ReceiveInterest(defn.ConnID(1), n, nil, nil, time.Second, now)
	pit.ReceiveInterest(defn.ConnID(1), n, []byte("key"), nil, time.Second, now)

	pit.RemoveInterest(n, nil, nil)
	assert.Equal(t, 1, pit.Size())
}
