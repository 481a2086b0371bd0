package tlv

import "encoding/binary"

// Builder assembles a new wire-format packet field by field. It mirrors
// Parse/Skeleton's structure in reverse: every container's value is
// assembled from its children first, and its header is then written
// with that finished length. No length field is patched afterwards.
type Builder struct {
	packetType PacketType
	hopLimit   *uint8

	name                  []byte
	keyIdRestriction      []byte
	objectHashRestriction []byte
	interestLifetimeMs    *uint64
	recommendedCacheMs    *uint64
	expiryTimeMs          *uint64
	payload               []byte
	returnCode            *uint8
}

// NewBuilder starts a packet of the given fixed-header packet type.
func NewBuilder(pt PacketType) *Builder {
	return &Builder{packetType: pt}
}

// SetHopLimit sets the per-hop HopLimit header (Interest only).
func (b *Builder) SetHopLimit(v uint8) *Builder { b.hopLimit = &v; return b }

// SetName sets the already-TLV-encoded name value.
func (b *Builder) SetName(nameWire []byte) *Builder { b.name = nameWire; return b }

// SetKeyIdRestriction sets the keyid restriction value.
func (b *Builder) SetKeyIdRestriction(v []byte) *Builder { b.keyIdRestriction = v; return b }

// SetObjectHashRestriction sets the content-object-hash restriction value.
func (b *Builder) SetObjectHashRestriction(v []byte) *Builder {
	b.objectHashRestriction = v
	return b
}

// SetInterestLifetime sets the lifetime in milliseconds.
func (b *Builder) SetInterestLifetime(ms uint64) *Builder { b.interestLifetimeMs = &ms; return b }

// SetRecommendedCacheTime sets the recommended cache time in milliseconds.
func (b *Builder) SetRecommendedCacheTime(ms uint64) *Builder { b.recommendedCacheMs = &ms; return b }

// SetExpiryTime sets the absolute expiry time in milliseconds since epoch.
func (b *Builder) SetExpiryTime(ms uint64) *Builder { b.expiryTimeMs = &ms; return b }

// SetPayload sets the payload bytes.
func (b *Builder) SetPayload(v []byte) *Builder { b.payload = v; return b }

// SetReturnCode sets the InterestReturn return-code header.
func (b *Builder) SetReturnCode(v uint8) *Builder { b.returnCode = &v; return b }

func appendTLV(buf []byte, typ Type, value []byte) []byte {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(typ))
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(value)))
	buf = append(buf, hdr[:]...)
	buf = append(buf, value...)
	return buf
}

func u64be(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// Encode assembles the full wire-format packet: fixed header, optional
// headers, and the message TLV (plus its nested fields).
func (b *Builder) Encode() []byte {
	var headers []byte
	if b.hopLimit != nil {
		headers = appendTLV(headers, TypeHopLimitHeader, []byte{*b.hopLimit})
	}
	if b.returnCode != nil {
		headers = appendTLV(headers, TypeReturnCode, []byte{*b.returnCode})
	}

	var msgValue []byte
	if b.name != nil {
		msgValue = appendTLV(msgValue, TypeName, b.name)
	}
	if b.keyIdRestriction != nil {
		inner := appendTLV(nil, TypeKeyId, b.keyIdRestriction)
		msgValue = appendTLV(msgValue, TypeKeyIdRestriction, inner)
	}
	if b.objectHashRestriction != nil {
		msgValue = appendTLV(msgValue, TypeObjectHashRestriction, b.objectHashRestriction)
	}
	if b.interestLifetimeMs != nil {
		msgValue = appendTLV(msgValue, TypeInterestLifetime, u64be(*b.interestLifetimeMs))
	}
	if b.recommendedCacheMs != nil {
		msgValue = appendTLV(msgValue, TypeRecommendedCacheTime, u64be(*b.recommendedCacheMs))
	}
	if b.expiryTimeMs != nil {
		msgValue = appendTLV(msgValue, TypeExpiryTime, u64be(*b.expiryTimeMs))
	}
	if b.payload != nil {
		msgValue = appendTLV(msgValue, TypePayload, b.payload)
	}

	msgType, _ := messageTypeFor(b.packetType)
	var body []byte
	body = appendTLV(body, msgType, msgValue)

	headerLen := FixedHeaderLen + len(headers)
	totalLen := headerLen + len(body)

	out := make([]byte, 0, totalLen)
	out = append(out, wireVersion, byte(b.packetType))
	var tl [2]byte
	binary.BigEndian.PutUint16(tl[:], uint16(totalLen))
	out = append(out, tl[:]...)
	out = append(out, 0, 0, 0) // reserved
	out = append(out, byte(headerLen))
	out = append(out, headers...)
	out = append(out, body...)
	return out
}
