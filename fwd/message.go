// Package fwd implements the message processor: the pipeline that ties
// the wire codec, PIT, FIB, Content Store, and strategy plane together
// into the single synchronous receive() entry point described in §4.9.
package fwd

import (
	"encoding/binary"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/tlv"
)

// message is the in-forwarder view of one parsed packet: its skeleton,
// the buffer the skeleton's extents alias, and the metadata assigned on
// receipt (ingress connection, arrival time).
type message struct {
	sk         *tlv.Skeleton
	buf        []byte
	conn       defn.ConnID
	receivedAt time.Time

	name name.Name
}

func newMessage(sk *tlv.Skeleton, buf []byte, conn defn.ConnID, now time.Time) (*message, error) {
	m := &message{sk: sk, buf: buf, conn: conn, receivedAt: now}
	if sk.Name.IsPresent() {
		n, err := name.FromWire(buf, sk.Name)
		if err != nil {
			return nil, err
		}
		m.name = n
	}
	return m, nil
}

func (m *message) keyID() []byte {
	return m.sk.KeyIdRestriction.Bytes(m.buf)
}

func (m *message) objectHash() []byte {
	return m.sk.ObjectHashRestriction.Bytes(m.buf)
}

func (m *message) payload() []byte {
	return m.sk.Payload.Bytes(m.buf)
}

// hopLimit returns the packet's hop-limit and whether the header was
// present at all (an absent hop-limit never blocks forwarding).
func (m *message) hopLimit() (uint8, bool) {
	b := m.sk.HopLimit.Bytes(m.buf)
	if len(b) != 1 {
		return 0, false
	}
	return b[0], true
}

func readU64Extent(ext tlv.Extent, buf []byte) (uint64, bool) {
	b := ext.Bytes(buf)
	if len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// interestLifetime returns the Interest's requested lifetime, or zero if
// absent (the PIT substitutes its own default in that case).
func (m *message) interestLifetime() time.Duration {
	ms, ok := readU64Extent(m.sk.InterestLifetime, m.buf)
	if !ok {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// recommendedCacheTime returns the ContentObject's recommended cache time
// in milliseconds and whether the field is present; a present field with
// value 0 asks for the object not to be cached.
func (m *message) recommendedCacheTime() (ms uint64, present bool) {
	return readU64Extent(m.sk.RecommendedCacheTime, m.buf)
}

// expiryTime returns the absolute freshness deadline, or the zero time if
// the field is absent (never stale).
func (m *message) expiryTime() time.Time {
	ms, ok := readU64Extent(m.sk.ExpiryTime, m.buf)
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}

// contentObjectHash computes the content-object-hash restriction's
// matching key for this ContentObject: the forwarder has no cryptographic
// digest available (signature verification is out of scope, §7), so it
// hashes the object's name and payload together as a stand-in identity
// for CS/PIT object-hash-restricted matching.
func (m *message) contentObjectHash() uint64 {
	h := m.name.Hash()
	payload := m.payload()
	if len(payload) == 0 {
		return h
	}
	return name.CombineForObjectHash(h, payload)
}
