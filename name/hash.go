package name

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashPrefix returns a stable 64-bit hash of the first k segments, so
// that two names agreeing on their first k segments always hash equal
// for that k (and the forwarder's PIT/FIB/CS index tables can bucket on
// it directly). HashPrefix(0) is the same well-known constant for every
// name, since it hashes zero bytes.
func (n Name) HashPrefix(k int) uint64 {
	if k > len(n.segs) {
		k = len(n.segs)
	}
	h := xxhash.New()
	var hdr [4]byte
	for i := 0; i < k; i++ {
		s := n.segs[i]
		binary.BigEndian.PutUint16(hdr[0:2], s.Typ)
		binary.BigEndian.PutUint16(hdr[2:4], uint16(len(s.Val)))
		h.Write(hdr[:])
		h.Write(s.Val)
	}
	return h.Sum64()
}

// Hash is shorthand for HashPrefix(SegmentCount()): the hash of the
// whole name.
func (n Name) Hash() uint64 {
	return n.HashPrefix(len(n.segs))
}

// CombineForObjectHash folds extra bytes into an existing hash, used by
// callers outside this package that need a stand-in object-hash identity
// (e.g. hashing a ContentObject's name together with its payload when no
// cryptographic digest is available).
func CombineForObjectHash(base uint64, extra []byte) uint64 {
	h := xxhash.New()
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], base)
	h.Write(b[:])
	h.Write(extra)
	return h.Sum64()
}
