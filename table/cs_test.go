package table

import (
	"testing"
	"time"

	"github.com/go-icn/fwd/name"
	"github.com/stretchr/testify/assert"
)

func TestContentStoreInsertAndMatchByName(t *testing.T) {
	cs := NewContentStore(4)
	n, _ := name.FromURI("lci:/a/b")
	cs.Insert(42, n, nil, time.Time{}, []byte("payload"))

	e, ok := cs.Match(n, nil, nil, time.Now())
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), e.Copy())
}

func TestContentStoreMissOnUnknownName(t *testing.T) {
	cs := NewContentStore(4)
	n, _ := name.FromURI("lci:/a/b")
	other, _ := name.FromURI("lci:/x/y")
	cs.Insert(42, n, nil, time.Time{}, []byte("payload"))

	_, ok := cs.Match(other, nil, nil, time.Now())
	assert.False(t, ok)
}

func TestContentStoreExpiredEntryIsMissAndEvicted(t *testing.T) {
	cs := NewContentStore(4)
	n, _ := name.FromURI("lci:/a/b")
	now := time.Now()
	cs.Insert(42, n, nil, now.Add(-time.Second), []byte("stale"))

	_, ok := cs.Match(n, nil, nil, now)
	assert.False(t, ok)
	assert.Equal(t, 0, cs.Size())
}

func TestContentStoreEvictsLRUAtCapacity(t *testing.T) {
	cs := NewContentStore(2)
	a, _ := name.FromURI("lci:/a")
	b, _ := name.FromURI("lci:/b")
	c, _ := name.FromURI("lci:/c")

	cs.Insert(1, a, nil, time.Time{}, []byte("a"))
	cs.Insert(2, b, nil, time.Time{}, []byte("b"))
	// Touch a so b becomes the LRU entry.
	cs.Match(a, nil, nil, time.Now())
	cs.Insert(3, c, nil, time.Time{}, []byte("c"))

	_, ok := cs.Match(b, nil, nil, time.Now())
	assert.False(t, ok, "b should have been evicted as least-recently-used")

	_, ok = cs.Match(a, nil, nil, time.Now())
	assert.True(t, ok)
	_, ok = cs.Match(c, nil, nil, time.Now())
	assert.True(t, ok)
}

func TestContentStoreZeroCapacityNeverCaches(t *testing.T) {
	cs := NewContentStore(0)
	n, _ := name.FromURI("lci:/a")
	cs.Insert(1, n, nil, time.Time{}, []byte("a"))

	_, ok := cs.Match(n, nil, nil, time.Now())
	assert.False(t, ok)
	assert.Equal(t, 0, cs.Size())
}
