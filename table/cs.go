package table

import (
	"container/list"
	"time"

	"github.com/go-icn/fwd/name"
)

// CsEntry is one cached ContentObject: its encoded wire bytes, the
// absolute time at which it becomes stale, and its position in the LRU
// list (metis_ContentStoreEntry).
type CsEntry struct {
	ObjectHash uint64
	Name       name.Name
	KeyID      []byte
	ExpiresAt  time.Time
	Wire       []byte

	elem *list.Element
}

// Index returns the entry's primary key, the object hash it was inserted
// under (the processor derives it from the object's name and payload).
func (e *CsEntry) Index() uint64 { return e.ObjectHash }

// StaleTime returns the time at which the entry stops being served.
func (e *CsEntry) StaleTime() time.Time { return e.ExpiresAt }

// Copy returns the entry's cached wire bytes, for resending to a new
// requester without touching the original buffer.
func (e *CsEntry) Copy() []byte {
	out := make([]byte, len(e.Wire))
	copy(out, e.Wire)
	return out
}

// ContentStore is a bounded LRU cache of ContentObjects, keyed primarily
// by object hash with auxiliary indices by name and by (name, keyid) so
// that Interests carrying either selector can be matched in O(1)
// (metis_ContentStore / metis_ContentStoreEntry).
type ContentStore struct {
	capacity int
	order    *list.List // front = MRU, back = LRU

	byHash      map[uint64]*CsEntry
	byName      map[uint64][]*CsEntry
	byNameKeyID map[uint64][]*CsEntry
}

// NewContentStore creates a content store with the given entry capacity.
// A capacity of 0 disables caching: Insert becomes a no-op and Match
// always misses.
func NewContentStore(capacity int) *ContentStore {
	return &ContentStore{
		capacity:    capacity,
		order:       list.New(),
		byHash:      make(map[uint64]*CsEntry),
		byName:      make(map[uint64][]*CsEntry),
		byNameKeyID: make(map[uint64][]*CsEntry),
	}
}

// Insert adds or refreshes a cached object. If the store is at capacity,
// the least-recently-used entry is evicted from every index first.
func (cs *ContentStore) Insert(objectHash uint64, n name.Name, keyID []byte, expiresAt time.Time, wire []byte) {
	if cs.capacity <= 0 {
		return
	}
	if existing, ok := cs.byHash[objectHash]; ok {
		existing.ExpiresAt = expiresAt
		existing.Wire = wire
		cs.order.MoveToFront(existing.elem)
		return
	}

	if len(cs.byHash) >= cs.capacity {
		cs.evictLRU()
	}

	e := &CsEntry{ObjectHash: objectHash, Name: n, KeyID: keyID, ExpiresAt: expiresAt, Wire: wire}
	e.elem = cs.order.PushFront(e)
	cs.byHash[objectHash] = e

	nameKey := n.Hash()
	cs.byName[nameKey] = append(cs.byName[nameKey], e)
	if len(keyID) > 0 {
		kidKey := combineHash(nameKey, keyID)
		cs.byNameKeyID[kidKey] = append(cs.byNameKeyID[kidKey], e)
	}
}

func (cs *ContentStore) evictLRU() {
	tail := cs.order.Back()
	if tail == nil {
		return
	}
	cs.removeEntry(tail.Value.(*CsEntry))
}

func (cs *ContentStore) removeEntry(e *CsEntry) {
	cs.order.Remove(e.elem)
	delete(cs.byHash, e.ObjectHash)

	nameKey := e.Name.Hash()
	cs.byName[nameKey] = removeFromSlice(cs.byName[nameKey], e)
	if len(cs.byName[nameKey]) == 0 {
		delete(cs.byName, nameKey)
	}
	if len(e.KeyID) > 0 {
		kidKey := combineHash(nameKey, e.KeyID)
		cs.byNameKeyID[kidKey] = removeFromSlice(cs.byNameKeyID[kidKey], e)
		if len(cs.byNameKeyID[kidKey]) == 0 {
			delete(cs.byNameKeyID, kidKey)
		}
	}
}

func removeFromSlice(s []*CsEntry, target *CsEntry) []*CsEntry {
	for i, e := range s {
		if e == target {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// Match selects the most-specific cached object for an Interest: by
// object-hash restriction first, then (name, keyid), then bare name.
// A matched entry already past its ExpiresAt is treated as a miss and
// evicted lazily. On a hit, the entry is promoted to MRU.
func (cs *ContentStore) Match(n name.Name, keyID, objectHash []byte, now time.Time) (*CsEntry, bool) {
	if len(objectHash) == 8 {
		if hash, ok := decodeObjectHash(objectHash); ok {
			if e, ok := cs.byHash[hash]; ok {
				return cs.checkFresh(e, now)
			}
		}
	}

	if len(keyID) > 0 {
		kidKey := combineHash(n.Hash(), keyID)
		for _, e := range cs.byNameKeyID[kidKey] {
			if e.Name.Equal(n) {
				return cs.checkFresh(e, now)
			}
		}
	}

	for _, e := range cs.byName[n.Hash()] {
		if e.Name.Equal(n) {
			return cs.checkFresh(e, now)
		}
	}
	return nil, false
}

func (cs *ContentStore) checkFresh(e *CsEntry, now time.Time) (*CsEntry, bool) {
	if !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt) {
		cs.removeEntry(e)
		return nil, false
	}
	cs.order.MoveToFront(e.elem)
	return e, true
}

// SetCapacity changes the store's maximum entry count, evicting from the
// LRU tail immediately if the new capacity is smaller than the current
// size.
func (cs *ContentStore) SetCapacity(capacity int) {
	cs.capacity = capacity
	for len(cs.byHash) > cs.capacity && cs.capacity > 0 {
		cs.evictLRU()
	}
	if cs.capacity <= 0 {
		for cs.order.Len() > 0 {
			cs.evictLRU()
		}
	}
}

// Size returns the number of cached entries.
func (cs *ContentStore) Size() int {
	return len(cs.byHash)
}

func decodeObjectHash(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, true
}
