package name

import (
	"encoding/binary"

	"github.com/go-icn/fwd/tlv"
)

// ToWire encodes the name as a flat run of type(2)+length(2)+value
// component TLVs, suitable for use as the value of a tlv.TypeName field.
func (n Name) ToWire() []byte {
	var out []byte
	for _, s := range n.segs {
		var hdr [4]byte
		binary.BigEndian.PutUint16(hdr[0:2], s.Typ)
		binary.BigEndian.PutUint16(hdr[2:4], uint16(len(s.Val)))
		out = append(out, hdr[:]...)
		out = append(out, s.Val...)
	}
	return out
}

// FromWire decodes a Name TLV's value extent directly out of a packet
// buffer, aliasing its bytes rather than copying them.
func FromWire(buf []byte, ext tlv.Extent) (Name, error) {
	value := ext.Bytes(buf)
	var segs []Segment
	pos := 0
	for pos < len(value) {
		if pos+4 > len(value) {
			return Name{}, &ParseError{Reason: "truncated name component header"}
		}
		typ := binary.BigEndian.Uint16(value[pos : pos+2])
		length := int(binary.BigEndian.Uint16(value[pos+2 : pos+4]))
		start := pos + 4
		end := start + length
		if end > len(value) {
			return Name{}, &ParseError{Reason: "name component runs past its container"}
		}
		segs = append(segs, Segment{Typ: typ, Val: value[start:end]})
		pos = end
	}
	return Name{segs: segs}, nil
}
