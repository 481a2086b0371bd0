package table

import (
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
)

// PitInRecord is one arrival of an Interest for a PIT entry: which
// connection it came in on and when, so duplicate arrivals can be
// aggregated and satisfied Interests forwarded back to every asker.
type PitInRecord struct {
	Conn      defn.ConnID
	ArrivedAt time.Time
}

// PitOutRecord is one Interest the forwarder itself sent out on a given
// connection while trying to satisfy this PIT entry. When the matching
// ContentObject returns, each out-record's connection is reported to the
// strategy with an RTT measured from the entry's CreatedAt.
type PitOutRecord struct {
	Conn   defn.ConnID
	SentAt time.Time
}

// PitEntry is one pending Interest, aggregating every inbound arrival and
// outbound forward attempt for the same (name, selectors) tuple.
type PitEntry struct {
	Name       name.Name
	KeyID      []byte
	ObjectHash []byte

	CreatedAt time.Time
	ExpiresAt time.Time

	InRecords  map[defn.ConnID]*PitInRecord
	OutRecords map[defn.ConnID]*PitOutRecord

	// Strategy is the FibEntry strategy instance that chose this entry's
	// egress set, set once the processor actually forwards the Interest
	// (an entry that only aggregates never acquires one). Sweep and lazy
	// expiry call its OnTimeout for every outstanding out-record before
	// dropping the entry.
	Strategy Strategy
}

// SetStrategy records which strategy instance chose this entry's egress
// set, so that expiry can notify it.
func (e *PitEntry) SetStrategy(s Strategy) { e.Strategy = s }

func newPitEntry(n name.Name, keyID, objectHash []byte, createdAt, expiresAt time.Time) *PitEntry {
	return &PitEntry{
		Name:       n,
		KeyID:      keyID,
		ObjectHash: objectHash,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
		InRecords:  make(map[defn.ConnID]*PitInRecord),
		OutRecords: make(map[defn.ConnID]*PitOutRecord),
	}
}

// InsertInRecord records that conn is (re-)asking for this entry's name,
// returning the record and whether it already existed.
func (e *PitEntry) InsertInRecord(conn defn.ConnID, now time.Time) (rec *PitInRecord, alreadyExisted bool) {
	rec, alreadyExisted = e.InRecords[conn]
	if !alreadyExisted {
		rec = &PitInRecord{Conn: conn}
		e.InRecords[conn] = rec
	}
	rec.ArrivedAt = now
	return rec, alreadyExisted
}

// InsertOutRecord records that the entry's name was just forwarded out on
// conn, so that its strategy is notified when the entry is satisfied or
// expires.
func (e *PitEntry) InsertOutRecord(conn defn.ConnID, now time.Time) *PitOutRecord {
	rec := &PitOutRecord{Conn: conn, SentAt: now}
	e.OutRecords[conn] = rec
	return rec
}

func combineHash(base uint64, extra []byte) uint64 {
	if len(extra) == 0 {
		return base
	}
	return name.CombineForObjectHash(base, extra)
}

// Pit is the Pending Interest Table. It maintains three indices over the
// same set of entries - by name, by name+keyid, and by name+object-hash -
// mirroring the three restriction granularities an Interest can carry
// (metis_PIT / metis_PitEntry). Expiry is lazy: an entry already past its
// ExpiresAt is skipped and evicted the next time it is touched, backed up
// by a periodic Sweep the dispatcher calls once a second.
type Pit struct {
	byName      map[uint64][]*PitEntry
	byNameKeyID map[uint64][]*PitEntry
	byNameHash  map[uint64][]*PitEntry
	defaultTTL  time.Duration
}

// NewPit creates an empty PIT with the given default Interest lifetime,
// used when an Interest carries no explicit lifetime field.
func NewPit(defaultTTL time.Duration) *Pit {
	return &Pit{
		byName:      make(map[uint64][]*PitEntry),
		byNameKeyID: make(map[uint64][]*PitEntry),
		byNameHash:  make(map[uint64][]*PitEntry),
		defaultTTL:  defaultTTL,
	}
}

func (p *Pit) indexFor(keyID, objectHash []byte) map[uint64][]*PitEntry {
	switch {
	case len(objectHash) > 0:
		return p.byNameHash
	case len(keyID) > 0:
		return p.byNameKeyID
	default:
		return p.byName
	}
}

func (p *Pit) keyFor(n name.Name, keyID, objectHash []byte) uint64 {
	base := n.Hash()
	switch {
	case len(objectHash) > 0:
		return combineHash(base, objectHash)
	case len(keyID) > 0:
		return combineHash(base, keyID)
	default:
		return base
	}
}

func sameSelectors(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func findEntry(bucket []*PitEntry, n name.Name, keyID, objectHash []byte) *PitEntry {
	for _, e := range bucket {
		if e.Name.Equal(n) && sameSelectors(e.KeyID, keyID) && sameSelectors(e.ObjectHash, objectHash) {
			return e
		}
	}
	return nil
}

// ReceiveInterest aggregates an Interest into the PIT: if a matching
// live entry exists, the arrival is recorded against it (isNew=false); if
// none exists, or the existing one has expired, a fresh entry is created
// (isNew=true) and the forwarder should continue on to the FIB.
func (p *Pit) ReceiveInterest(conn defn.ConnID, n name.Name, keyID, objectHash []byte, lifetime time.Duration, now time.Time) (entry *PitEntry, isNew bool) {
	if lifetime <= 0 {
		lifetime = p.defaultTTL
	}
	index := p.indexFor(keyID, objectHash)
	key := p.keyFor(n, keyID, objectHash)
	bucket := index[key]

	// Lazy expiry: drop any entries in this bucket that are already dead.
	bucket = p.pruneBucket(bucket, now)

	if existing := findEntry(bucket, n, keyID, objectHash); existing != nil {
		existing.InsertInRecord(conn, now)
		if now.Add(lifetime).After(existing.ExpiresAt) {
			existing.ExpiresAt = now.Add(lifetime)
		}
		index[key] = bucket
		return existing, false
	}

	entry = newPitEntry(n, keyID, objectHash, now, now.Add(lifetime))
	entry.InsertInRecord(conn, now)
	index[key] = append(bucket, entry)
	return entry, true
}

// SatisfyInterest finds every live PIT entry matching the ContentObject's
// name and selectors, removes them from the table, and returns the set of
// connections waiting on them (every inbound asker, across every index),
// deduplicated.
func (p *Pit) SatisfyInterest(n name.Name, keyID, objectHash []byte, now time.Time) ([]*PitEntry, []defn.ConnID) {
	var matched []*PitEntry
	seen := make(map[defn.ConnID]bool)
	var egress []defn.ConnID

	// Object hash restriction entries match only an object with that exact hash.
	matched = append(matched, p.popMatching(p.byNameHash, n, func(e *PitEntry) bool {
		return len(e.ObjectHash) > 0 && sameSelectors(e.ObjectHash, objectHash)
	}, now)...)
	// KeyId restriction entries match any object signed by that keyid; we
	// cannot verify signatures here (out of scope), so any object under
	// the name satisfies them.
	matched = append(matched, p.popMatching(p.byNameKeyID, n, func(e *PitEntry) bool {
		return len(e.KeyID) > 0
	}, now)...)
	// Bare-name entries match any object under the name.
	matched = append(matched, p.popMatching(p.byName, n, func(e *PitEntry) bool {
		return len(e.KeyID) == 0 && len(e.ObjectHash) == 0
	}, now)...)

	for _, e := range matched {
		for connID := range e.InRecords {
			if !seen[connID] {
				seen[connID] = true
				egress = append(egress, connID)
			}
		}
	}
	return matched, egress
}

func (p *Pit) popMatching(index map[uint64][]*PitEntry, n name.Name, pred func(*PitEntry) bool, now time.Time) []*PitEntry {
	key := n.Hash()
	bucket := p.pruneBucket(index[key], now)

	var matched, remaining []*PitEntry
	for _, e := range bucket {
		if e.Name.Equal(n) && pred(e) {
			matched = append(matched, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == 0 {
		delete(index, key)
	} else {
		index[key] = remaining
	}
	return matched
}

// RemoveInterest unconditionally removes conn's interest in n from
// whichever single index (keyid, object-hash, or bare name) the selectors
// indicate, per metis_PIT's removeInterest semantics: it does not touch
// entries with the same name living in a different index.
func (p *Pit) RemoveInterest(n name.Name, keyID, objectHash []byte) {
	index := p.indexFor(keyID, objectHash)
	key := p.keyFor(n, keyID, objectHash)
	bucket := index[key]
	var remaining []*PitEntry
	for _, e := range bucket {
		if e.Name.Equal(n) && sameSelectors(e.KeyID, keyID) && sameSelectors(e.ObjectHash, objectHash) {
			continue
		}
		remaining = append(remaining, e)
	}
	if len(remaining) == 0 {
		delete(index, key)
	} else {
		index[key] = remaining
	}
}

func (p *Pit) pruneBucket(bucket []*PitEntry, now time.Time) []*PitEntry {
	var live []*PitEntry
	for _, e := range bucket {
		if now.Before(e.ExpiresAt) {
			live = append(live, e)
		} else {
			notifyTimeout(e)
		}
	}
	return live
}

func notifyTimeout(e *PitEntry) {
	if e.Strategy == nil {
		return
	}
	for conn := range e.OutRecords {
		e.Strategy.OnTimeout(conn)
	}
}

// Sweep drops every entry, in every index, that has expired as of now,
// notifying each entry's strategy of the timeout. Called once a second by
// the dispatcher as a backstop to lazy expiry, so that a name nobody asks
// about again does not linger forever.
func (p *Pit) Sweep(now time.Time) {
	for _, index := range []map[uint64][]*PitEntry{p.byName, p.byNameKeyID, p.byNameHash} {
		for key, bucket := range index {
			live := p.pruneBucket(bucket, now)
			if len(live) == 0 {
				delete(index, key)
			} else {
				index[key] = live
			}
		}
	}
}

// Size returns the total number of live entries across all three indices.
// A name pending under two selector granularities is held as two
// separate entries, one per index, and so counts twice.
func (p *Pit) Size() int {
	n := 0
	for _, index := range []map[uint64][]*PitEntry{p.byName, p.byNameKeyID, p.byNameHash} {
		for _, bucket := range index {
			n += len(bucket)
		}
	}
	return n
}
