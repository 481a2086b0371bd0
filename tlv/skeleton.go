package tlv

import "encoding/binary"

// Skeleton is the parsed form of a packet: the byte extents of every
// field the forwarder cares about, plus the packet type that determines
// which extents are mandatory. It does not copy packet bytes - every
// Extent aliases the original buffer, which must outlive the Skeleton.
type Skeleton struct {
	PacketType PacketType

	Name                  Extent
	KeyIdRestriction      Extent
	ObjectHashRestriction Extent
	InterestLifetime      Extent
	RecommendedCacheTime  Extent
	ExpiryTime            Extent
	Payload               Extent
	HopLimit              Extent
	ReturnCode            Extent

	// HeaderLen and TotalLen record the fixed header's header-length and
	// packet-length fields as parsed.
	HeaderLen uint16
	TotalLen  uint16
}

// Parse walks a packet once and returns its Skeleton, or a ParseError
// describing the first offending byte. Parsing is bounded linear in
// len(buf); no sub-allocation occurs beyond the returned Skeleton value.
func Parse(buf []byte) (*Skeleton, error) {
	if len(buf) < FixedHeaderLen {
		return nil, &ParseError{Kind: ErrBeyondPacketEnd, Offset: len(buf), Detail: "buffer shorter than fixed header"}
	}

	version := buf[0]
	if version != wireVersion {
		return nil, &ParseError{Kind: ErrVersionMismatch, Offset: 0, Detail: "unsupported version"}
	}

	hdrPacketType := PacketType(buf[1])
	if hdrPacketType > PacketTypeControl {
		return nil, &ParseError{Kind: ErrUnsupportedType, Offset: 1, Detail: "unknown packet type"}
	}

	totalLen := binary.BigEndian.Uint16(buf[2:4])
	if int(totalLen) != len(buf) {
		return nil, &ParseError{Kind: ErrBeyondPacketEnd, Offset: 2, Detail: "total-length does not match buffer length"}
	}

	headerLen := buf[7]
	if headerLen < FixedHeaderLen || int(headerLen) > int(totalLen) {
		return nil, &ParseError{Kind: ErrBeyondPacketEnd, Offset: 7, Detail: "header-length out of range"}
	}

	sk := &Skeleton{
		PacketType: hdrPacketType,
		HeaderLen:  uint16(headerLen),
		TotalLen:   totalLen,
	}

	// Optional headers: a flat run of sibling TLVs between the fixed
	// header and the message body.
	if err := walkHeaders(buf, FixedHeaderLen, int(headerLen), sk); err != nil {
		return nil, err
	}

	// Message body: the message-type TLV, optionally followed by
	// sibling validation TLVs, all ending exactly at totalLen.
	if err := walkBody(buf, int(headerLen), int(totalLen), sk); err != nil {
		return nil, err
	}

	if err := checkMandatory(sk); err != nil {
		return nil, err
	}

	return sk, nil
}

func walkHeaders(buf []byte, start, end int, sk *Skeleton) error {
	pos := start
	for pos < end {
		typ, length, valueStart, next, err := readTlvHeader(buf, pos, end)
		if err != nil {
			return err
		}
		switch typ {
		case TypeHopLimitHeader:
			if length != 1 {
				return &ParseError{Kind: ErrNotFixedSize, Offset: valueStart, Detail: "hop-limit must be 1 byte"}
			}
			sk.HopLimit = Extent{Offset: uint16(valueStart), Length: uint16(length)}
		case TypeReturnCode:
			if length != 1 {
				return &ParseError{Kind: ErrNotFixedSize, Offset: valueStart, Detail: "return-code must be 1 byte"}
			}
			sk.ReturnCode = Extent{Offset: uint16(valueStart), Length: uint16(length)}
		default:
			// Unknown header TLVs are skipped by length, not an error.
		}
		pos = next
	}
	if pos != end {
		return &ParseError{Kind: ErrOverrun, Offset: pos, Detail: "optional headers do not exactly fill header-length"}
	}
	return nil
}

func walkBody(buf []byte, start, end int, sk *Skeleton) error {
	typ, length, valueStart, next, err := readTlvHeader(buf, start, end)
	if err != nil {
		return err
	}

	wantMsgType, ok := messageTypeFor(sk.PacketType)
	if !ok || typ != wantMsgType {
		return &ParseError{Kind: ErrUnsupportedType, Offset: start, Detail: "message TLV does not match header packet type"}
	}

	if err := walkMessageFields(buf, valueStart, valueStart+length, sk); err != nil {
		return err
	}

	pos := next
	for pos < end {
		// Sibling ValidationAlg / ValidationPayload TLVs: skipped by
		// length, their content is not consumed by the forwarder.
		_, _, _, next, err := readTlvHeader(buf, pos, end)
		if err != nil {
			return err
		}
		pos = next
	}
	if pos != end {
		return &ParseError{Kind: ErrOverrun, Offset: pos, Detail: "message body does not exactly fill total-length"}
	}
	return nil
}

func walkMessageFields(buf []byte, start, end int, sk *Skeleton) error {
	pos := start
	for pos < end {
		typ, length, valueStart, next, err := readTlvHeader(buf, pos, end)
		if err != nil {
			return err
		}

		switch {
		case typ == TypeName:
			sk.Name = Extent{Offset: uint16(valueStart), Length: uint16(length)}
		case sk.PacketType == PacketTypeInterest && typ == TypeKeyIdRestriction:
			inner, err := readSoleChild(buf, valueStart, valueStart+length, TypeKeyId)
			if err != nil {
				return err
			}
			sk.KeyIdRestriction = inner
		case sk.PacketType == PacketTypeInterest && typ == TypeObjectHashRestriction:
			sk.ObjectHashRestriction = Extent{Offset: uint16(valueStart), Length: uint16(length)}
		case sk.PacketType == PacketTypeInterest && typ == TypeInterestLifetime:
			if length != 8 {
				return &ParseError{Kind: ErrNotFixedSize, Offset: valueStart, Detail: "interest-lifetime must be 8 bytes"}
			}
			sk.InterestLifetime = Extent{Offset: uint16(valueStart), Length: uint16(length)}
		case sk.PacketType == PacketTypeContentObject && typ == TypeRecommendedCacheTime:
			if length != 8 {
				return &ParseError{Kind: ErrNotFixedSize, Offset: valueStart, Detail: "recommended-cache-time must be 8 bytes"}
			}
			sk.RecommendedCacheTime = Extent{Offset: uint16(valueStart), Length: uint16(length)}
		case sk.PacketType == PacketTypeContentObject && typ == TypeExpiryTime:
			if length != 8 {
				return &ParseError{Kind: ErrNotFixedSize, Offset: valueStart, Detail: "expiry-time must be 8 bytes"}
			}
			sk.ExpiryTime = Extent{Offset: uint16(valueStart), Length: uint16(length)}
		case typ == TypePayload:
			sk.Payload = Extent{Offset: uint16(valueStart), Length: uint16(length)}
		default:
			// Unknown or not-applicable-to-this-packet-type: skip.
		}

		pos = next
	}
	if pos != end {
		return &ParseError{Kind: ErrOverrun, Offset: pos, Detail: "message value does not exactly fill its container"}
	}
	return nil
}

// readSoleChild reads the one expected child TLV of a restriction
// container and returns its value extent.
func readSoleChild(buf []byte, start, end int, want Type) (Extent, error) {
	typ, length, valueStart, next, err := readTlvHeader(buf, start, end)
	if err != nil {
		return Extent{}, err
	}
	if typ != want {
		return Extent{}, &ParseError{Kind: ErrMissingMandatory, Offset: start, Detail: "restriction missing expected inner TLV"}
	}
	if next != end {
		return Extent{}, &ParseError{Kind: ErrOverrun, Offset: next, Detail: "restriction container has unexpected trailing bytes"}
	}
	return Extent{Offset: uint16(valueStart), Length: uint16(length)}, nil
}

// readTlvHeader reads one type(2)+length(2) TLV header at pos within
// [pos, end) and returns the decoded type, length, the offset where its
// value begins, and the offset immediately after the value.
func readTlvHeader(buf []byte, pos, end int) (typ Type, length int, valueStart int, next int, err error) {
	if pos+4 > end {
		return 0, 0, 0, 0, &ParseError{Kind: ErrBeyondPacketEnd, Offset: pos, Detail: "TLV header runs past container"}
	}
	typ = Type(binary.BigEndian.Uint16(buf[pos : pos+2]))
	length = int(binary.BigEndian.Uint16(buf[pos+2 : pos+4]))
	valueStart = pos + 4
	next = valueStart + length
	if next > end {
		return 0, 0, 0, 0, &ParseError{Kind: ErrBeyondPacketEnd, Offset: valueStart, Detail: "TLV length runs past container"}
	}
	return typ, length, valueStart, next, nil
}

func messageTypeFor(pt PacketType) (Type, bool) {
	switch pt {
	case PacketTypeInterest, PacketTypeInterestReturn:
		return TypeInterest, true
	case PacketTypeContentObject:
		return TypeContentObject, true
	case PacketTypeControl:
		return TypeControl, true
	default:
		return 0, false
	}
}

func checkMandatory(sk *Skeleton) error {
	switch sk.PacketType {
	case PacketTypeInterest, PacketTypeInterestReturn:
		if !sk.Name.IsPresent() {
			return &ParseError{Kind: ErrMissingMandatory, Detail: "interest missing name"}
		}
	case PacketTypeContentObject:
		if !sk.Name.IsPresent() {
			return &ParseError{Kind: ErrMissingMandatory, Detail: "content object missing name"}
		}
	}
	return nil
}
