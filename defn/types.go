package defn

// ConnID is the unique, monotonically-increasing connection identifier
// assigned at creation time (§3 Connection).
type ConnID uint32

// ConnType identifies the transport family backing a Connection.
type ConnType uint8

const (
	ConnTypeUDP ConnType = iota
	ConnTypeTCP
	ConnTypeUnix
	ConnTypeEther
	ConnTypeLocalApp
)

// Returns the canonical lowercase name of the connection type, used in log lines and listener keys.
func (t ConnType) String() string {
	switch t {
	case ConnTypeUDP:
		return "udp"
	case ConnTypeTCP:
		return "tcp"
	case ConnTypeUnix:
		return "unix"
	case ConnTypeEther:
		return "ether"
	case ConnTypeLocalApp:
		return "local"
	default:
		return "unknown"
	}
}

// DropReason enumerates why the processor discarded a packet (§7).
type DropReason int

const (
	DropNone DropReason = iota
	DropParseError
	DropNoRoute
	DropHopLimitExceeded
	DropAggregated
	DropUnsolicited
	DropSignatureInvalid
	DropConnectionDown
)

// Returns the lowercase identifier used when logging why a packet was dropped.
func (r DropReason) String() string {
	switch r {
	case DropParseError:
		return "parse-error"
	case DropNoRoute:
		return "no-route"
	case DropHopLimitExceeded:
		return "hop-limit-exceeded"
	case DropAggregated:
		return "aggregated"
	case DropUnsolicited:
		return "unsolicited"
	case DropSignatureInvalid:
		return "signature-invalid"
	case DropConnectionDown:
		return "connection-down"
	default:
		return "none"
	}
}
