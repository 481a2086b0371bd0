package tlv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Builds a minimal Interest, parses it, and checks that every extent the
// skeleton records points at the exact bytes the builder wrote.
func TestParseInterestRoundTrip(t *testing.T) {
	name := appendTLV(nil, 0x0001, []byte("hello"))
	wire := NewBuilder(PacketTypeInterest).
		SetName(name).
		SetHopLimit(32).
		SetInterestLifetime(4000).
		Encode()

	sk, err := Parse(wire)
	assert.Nil(t, err)
	assert.Equal(t, PacketTypeInterest, sk.PacketType)
	assert.Equal(t, name, sk.Name.Bytes(wire))
	assert.True(t, sk.HopLimit.IsPresent())
	assert.Equal(t, uint8(32), wire[sk.HopLimit.Offset])
	assert.True(t, sk.InterestLifetime.IsPresent())
}

// A ContentObject with a payload and expiry time round-trips and is
// distinguishable by packet type from an Interest.
func TestParseContentObjectRoundTrip(t *testing.T) {
	name := appendTLV(nil, 0x0001, []byte("/a/b"))
	wire := NewBuilder(PacketTypeContentObject).
		SetName(name).
		SetPayload([]byte("payload-bytes")).
		SetExpiryTime(123456).
		Encode()

	sk, err := Parse(wire)
	assert.Nil(t, err)
	assert.Equal(t, PacketTypeContentObject, sk.PacketType)
	assert.Equal(t, []byte("payload-bytes"), sk.Payload.Bytes(wire))
	assert.True(t, sk.ExpiryTime.IsPresent())
}

// A length field describing more bytes than remain in its container is
// rejected with BeyondPacketEnd rather than panicking or reading OOB.
func TestParseRejectsOverrun(t *testing.T) {
	wire := NewBuilder(PacketTypeInterest).
		SetName(appendTLV(nil, 0x0001, []byte("x"))).
		Encode()

	// Corrupt the message TLV's length field to claim more bytes than exist.
	msgLenOff := int(wire[7]) + 2
	wire[msgLenOff] = 0xff
	wire[msgLenOff+1] = 0xff

	_, err := Parse(wire)
	assert.NotNil(t, err)
	perr, ok := err.(*ParseError)
	assert.True(t, ok)
	assert.Equal(t, ErrBeyondPacketEnd, perr.Kind)
}

// An Interest with no Name TLV is rejected as missing a mandatory field.
func TestParseMissingMandatoryName(t *testing.T) {
	wire := NewBuilder(PacketTypeInterest).Encode()
	_, err := Parse(wire)
	assert.NotNil(t, err)
	perr, ok := err.(*ParseError)
	assert.True(t, ok)
	assert.Equal(t, ErrMissingMandatory, perr.Kind)
}

// A version byte other than 1 is rejected before any TLV walking occurs.
func TestParseVersionMismatch(t *testing.T) {
	wire := NewBuilder(PacketTypeInterest).
		SetName(appendTLV(nil, 0x0001, []byte("x"))).
		Encode()
	wire[0] = 2
	_, err := Parse(wire)
	assert.NotNil(t, err)
	perr, ok := err.(*ParseError)
	assert.True(t, ok)
	assert.Equal(t, ErrVersionMismatch, perr.Kind)
}
