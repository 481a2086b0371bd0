package name

import (
	"testing"

	"github.com/go-icn/fwd/tlv"
	"github.com/stretchr/testify/assert"
)

func TestFromURIRoundTrip(t *testing.T) {
	n, err := FromURI("lci:/hello/world")
	assert.Nil(t, err)
	assert.Equal(t, 2, n.SegmentCount())
	assert.Equal(t, TypeGeneric, n.Segment(0).Typ)
	assert.Equal(t, []byte("hello"), n.Segment(0).Val)
	assert.Equal(t, "lci:/hello/world", n.String())
}

func TestFromURIExplicitLabelAndEscaping(t *testing.T) {
	n, err := FromURI("lci:/1=foo%2Fbar")
	assert.Nil(t, err)
	assert.Equal(t, 1, n.SegmentCount())
	assert.Equal(t, uint16(1), n.Segment(0).Typ)
	assert.Equal(t, []byte("foo/bar"), n.Segment(0).Val)
}

func TestFromURIRejectsMissingSlash(t *testing.T) {
	_, err := FromURI("lci:hello")
	assert.NotNil(t, err)
}

func TestEqualPrefix(t *testing.T) {
	a, _ := FromURI("lci:/a/b/c")
	b, _ := FromURI("lci:/a/b/d")
	assert.True(t, a.EqualPrefix(b, 2))
	assert.False(t, a.EqualPrefix(b, 3))
	assert.False(t, a.Equal(b))
}

func TestHashPrefixAgreesWithEqualPrefix(t *testing.T) {
	a, _ := FromURI("lci:/a/b/c")
	b, _ := FromURI("lci:/a/b/d")
	assert.Equal(t, a.HashPrefix(2), b.HashPrefix(2))
	assert.NotEqual(t, a.HashPrefix(3), b.HashPrefix(3))
}

func TestHashPrefixZeroIsWellKnown(t *testing.T) {
	a, _ := FromURI("lci:/a/b/c")
	b, _ := FromURI("lci:/x/y")
	assert.Equal(t, a.HashPrefix(0), b.HashPrefix(0))
	assert.Equal(t, Name{}.HashPrefix(0), a.HashPrefix(0))
}

func TestWireRoundTrip(t *testing.T) {
	n, _ := FromURI("lci:/a/b")
	wire := n.ToWire()

	buf := tlv.NewBuilder(tlv.PacketTypeInterest).
		SetName(wire).
		Encode()

	sk, err := tlv.Parse(buf)
	assert.Nil(t, err)

	decoded, err := FromWire(buf, sk.Name)
	assert.Nil(t, err)
	assert.True(t, decoded.Equal(n))
}
