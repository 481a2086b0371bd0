package face

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fragment(fragID uint16, index, total uint8, body []byte) []byte {
	hdr := make([]byte, fragHeaderLen+len(body))
	binary.BigEndian.PutUint16(hdr[0:2], fragID)
	hdr[2] = index
	hdr[3] = total
	copy(hdr[fragHeaderLen:], body)
	return hdr
}

func TestReassembleSingleFragment(t *testing.T) {
	tr := &EthernetTransport{groups: make(map[[6]byte]map[uint16]*fragGroup)}
	src := []byte{1, 2, 3, 4, 5, 6}
	now := time.Now()

	full, ok := tr.reassemble(src, fragment(1, 0, 1, []byte("hello")), now)
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), full)
}

func TestReassembleMultipleFragmentsInAnyOrder(t *testing.T) {
	tr := &EthernetTransport{groups: make(map[[6]byte]map[uint16]*fragGroup)}
	src := []byte{1, 2, 3, 4, 5, 6}
	now := time.Now()

	_, ok := tr.reassemble(src, fragment(7, 1, 2, []byte("world")), now)
	assert.False(t, ok)
	full, ok := tr.reassemble(src, fragment(7, 0, 2, []byte("hello ")), now)
	assert.True(t, ok)
	assert.Equal(t, []byte("hello world"), full)
}

func TestReassemblyGroupsAreIndependentPerSourceMAC(t *testing.T) {
	tr := &EthernetTransport{groups: make(map[[6]byte]map[uint16]*fragGroup)}
	srcA := []byte{1, 1, 1, 1, 1, 1}
	srcB := []byte{2, 2, 2, 2, 2, 2}
	now := time.Now()

	tr.reassemble(srcA, fragment(1, 0, 2, []byte("aaa")), now)
	_, ok := tr.reassemble(srcB, fragment(1, 1, 2, []byte("bbb")), now)
	assert.False(t, ok, "fragment index 1 from a different source must not complete A's group")
}

func TestStaleReassemblyGroupIsEvicted(t *testing.T) {
	tr := &EthernetTransport{groups: make(map[[6]byte]map[uint16]*fragGroup)}
	src := []byte{1, 2, 3, 4, 5, 6}
	now := time.Now()

	tr.reassemble(src, fragment(3, 0, 2, []byte("part0")), now)
	later := now.Add(reassemblyTimeout + time.Millisecond)
	// Touching the bucket again runs eviction; a late second fragment
	// for the same id now starts a brand new (incomplete) group.
	_, ok := tr.reassemble(src, fragment(3, 1, 2, []byte("part1")), later)
	assert.False(t, ok)
}

func TestReassemblyCapPerSourceMAC(t *testing.T) {
	tr := &EthernetTransport{groups: make(map[[6]byte]map[uint16]*fragGroup)}
	src := []byte{9, 9, 9, 9, 9, 9}
	now := time.Now()

	for i := 0; i < reassemblyCapPerSource; i++ {
		tr.reassemble(src, fragment(uint16(i), 0, 2, []byte("x")), now)
	}
	// The cap is already full of incomplete two-part groups; a brand new
	// fragment id should be refused rather than grow the map further.
	_, ok := tr.reassemble(src, fragment(uint16(reassemblyCapPerSource), 0, 2, []byte("x")), now)
	assert.False(t, ok)
	assert.Len(t, tr.groups[[6]byte{9, 9, 9, 9, 9, 9}], reassemblyCapPerSource)
}
