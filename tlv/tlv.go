// Package tlv implements the forwarder's wire codec: a length-prefixed
// nested Type-Length-Value format with a fixed 8-byte header. Parsing
// walks the TLV tree once and records the byte extent of every
// well-known field it encounters into a Skeleton; it never copies or
// sub-allocates packet bytes. Encoding builds each container's value
// first and then writes its header with the finished length.
package tlv

import "fmt"

// Type is a two-byte TLV type code, network byte order on the wire.
type Type uint16

// Fixed-header packet types (§4.1). This is the coarse dispatch value
// the processor switches on; it is independent of the nested
// message-type TLV, which must agree with it (e.g. an Interest header
// must wrap a TypeInterest message TLV).
const (
	PacketTypeInterest PacketType = iota
	PacketTypeContentObject
	PacketTypeInterestReturn
	PacketTypeControl
)

// PacketType is the fixed header's one-byte packet type field.
type PacketType uint8

// Returns the lowercase wire-format name of the packet type, or "unknown" if it does not match any defined constant.
func (t PacketType) String() string {
	switch t {
	case PacketTypeInterest:
		return "interest"
	case PacketTypeContentObject:
		return "content-object"
	case PacketTypeInterestReturn:
		return "interest-return"
	case PacketTypeControl:
		return "control"
	default:
		return "unknown"
	}
}

// Top-level message-type TLVs (§4.1).
const (
	TypeInterest          Type = 0x0001
	TypeContentObject     Type = 0x0002
	TypeValidationAlg     Type = 0x0003
	TypeValidationPayload Type = 0x0004
	TypeManifest          Type = 0x0006
	TypeControl           Type = 0xBEEF
)

// Nested TLV types carried inside an Interest or ContentObject message.
const (
	TypeName                  Type = 0x0000
	TypeKeyIdRestriction      Type = 0x0002
	TypeKeyId                 Type = 0x0003
	TypeObjectHashRestriction Type = 0x0003
	TypeInterestLifetime      Type = 0x0004
	TypeHopLimitHeader        Type = 0x0005
	TypeRecommendedCacheTime  Type = 0x0008
	TypeExpiryTime            Type = 0x0006
	TypePayload               Type = 0x0001
	TypeReturnCode            Type = 0x0007
)

const FixedHeaderLen = 8
const wireVersion = 1

// ParseError describes a malformed packet and the byte offset of the
// first offending byte, as required by §4.1's error table.
type ParseError struct {
	Kind   ParseErrorKind
	Offset int
	Detail string
}

// Returns a human-readable description of the parse failure, including its error kind, byte offset, and any additional detail.
func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Detail)
	}
	return fmt.Sprintf("%s at offset %d", e.Kind, e.Offset)
}

// ParseErrorKind enumerates the decode failure modes named in §4.1.
type ParseErrorKind int

const (
	ErrVersionMismatch ParseErrorKind = iota
	ErrUnsupportedType
	ErrBeyondPacketEnd
	ErrOverrun
	ErrMissingMandatory
	ErrNotFixedSize
)

// Returns the lowercase hyphenated name of the parse error kind for use in error messages and log fields.
func (k ParseErrorKind) String() string {
	switch k {
	case ErrVersionMismatch:
		return "version-mismatch"
	case ErrUnsupportedType:
		return "unsupported-type"
	case ErrBeyondPacketEnd:
		return "beyond-packet-end"
	case ErrOverrun:
		return "overrun"
	case ErrMissingMandatory:
		return "missing-mandatory"
	case ErrNotFixedSize:
		return "not-fixed-size"
	default:
		return "unknown"
	}
}
