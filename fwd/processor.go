package fwd

import (
	"time"

	"github.com/go-icn/fwd/core"
	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/messenger"
	"github.com/go-icn/fwd/table"
	"github.com/go-icn/fwd/tlv"
)

// returnCodeNoRoute is the InterestReturn code sent back to a connection
// when the FIB has no route for an Interest's name. §6 leaves return
// codes otherwise unspecified; NoRoute is the only one this forwarder emits.
const returnCodeNoRoute uint8 = 1

// SendFunc hands a fully-encoded frame to the connection's transport.
// The processor never touches a transport directly - it is wired by the
// dispatcher, mirroring the same Submit-callback indirection the face
// package uses on the receive side.
type SendFunc func(conn defn.ConnID, frame []byte) error

// NonceSource produces the nonce value passed to a strategy's
// LookupNexthop; none of the shipped strategies currently consult it, but
// the processor still supplies a fresh one per Interest so a strategy
// added later (e.g. loop detection) has one available.
type NonceSource func() uint64

// Processor is the message processor (§4.9): the pipeline gluing the
// wire codec to the PIT, FIB, Content Store, and strategy plane. It is
// meant to be driven exclusively from the single dispatcher goroutine -
// none of its methods take locks.
type Processor struct {
	Conns *table.ConnTable
	Pit   *table.Pit
	Fib   *table.Fib
	Cs    *table.ContentStore
	Msgr  *messenger.Messenger

	send      SendFunc
	sendProbe SendFunc
	nonce     NonceSource
}

// probeCapable is implemented by strategies that periodically want to
// measure nexthop delay (loadbalancer-with-delay); checked with a plain
// interface assertion so fwd never has to import package strategy.
type probeCapable interface {
	ShouldProbe() bool
}

// NewProcessor wires a Processor to its four tables and the outbound send
// path. nonce may be nil, in which case a simple incrementing counter is
// used. sendProbe may be nil, in which case probes are sent through send
// like any other frame.
func NewProcessor(conns *table.ConnTable, pit *table.Pit, fib *table.Fib, cs *table.ContentStore, msgr *messenger.Messenger, send, sendProbe SendFunc, nonce NonceSource) *Processor {
	if nonce == nil {
		var n uint64
		nonce = func() uint64 { n++; return n }
	}
	if sendProbe == nil {
		sendProbe = send
	}
	return &Processor{Conns: conns, Pit: pit, Fib: fib, Cs: cs, Msgr: msgr, send: send, sendProbe: sendProbe, nonce: nonce}
}

// Receive is the forwarder's single entry point: it parses buffer, builds
// the in-memory message, and dispatches on packet type. No error is ever
// returned - every failure mode ends in a drop, logged at the level §7
// specifies (this is required because receive is driven from an I/O
// callback with no meaningful recovery path).
func (p *Processor) Receive(conn defn.ConnID, buffer []byte) {
	sk, err := tlv.Parse(buffer)
	if err != nil {
		p.drop(defn.DropParseError, conn, "err", err)
		return
	}

	now := time.Now()
	msg, err := newMessage(sk, buffer, conn, now)
	if err != nil {
		p.drop(defn.DropParseError, conn, "err", err)
		return
	}

	switch sk.PacketType {
	case tlv.PacketTypeInterest:
		p.processInterest(msg, now)
	case tlv.PacketTypeContentObject:
		p.processContentObject(msg, now)
	case tlv.PacketTypeInterestReturn:
		p.processInterestReturn(msg)
	case tlv.PacketTypeControl:
		p.processControl(msg)
	}
}

func (p *Processor) drop(reason defn.DropReason, conn defn.ConnID, kv ...any) {
	args := append([]any{"reason", reason.String(), "conn", conn}, kv...)
	if reason == defn.DropSignatureInvalid {
		core.Log.Info(core.Named("fwd"), "dropped packet", args...)
		return
	}
	core.Log.Debug(core.Named("fwd"), "dropped packet", args...)
}

// processInterest implements §4.9's process_interest pipeline, steps 1-7.
func (p *Processor) processInterest(msg *message, now time.Time) {
	connEntry := p.Conns.FindByID(msg.conn)
	isLocal := connEntry != nil && connEntry.IsLocal

	// Step 1: hop-limit-zero drop, waived for local connections.
	if hop, present := msg.hopLimit(); present && hop == 0 && !isLocal {
		p.drop(defn.DropHopLimitExceeded, msg.conn)
		return
	}

	// Step 2: signature verification is an external collaborator call
	// (§1 non-goals); the processor itself performs no verification here.

	// Step 3: Content Store lookup.
	if entry, ok := p.Cs.Match(msg.name, msg.keyID(), msg.objectHash(), now); ok {
		if err := p.send(msg.conn, entry.Copy()); err != nil {
			core.Log.Warn(core.Named("fwd"), "cs hit send failed", "conn", msg.conn, "err", err)
		}
		return
	}

	// Step 4: PIT aggregation.
	lifetime := msg.interestLifetime()
	pitEntry, isNew := p.Pit.ReceiveInterest(msg.conn, msg.name, msg.keyID(), msg.objectHash(), lifetime, now)
	if !isNew {
		p.drop(defn.DropAggregated, msg.conn)
		return
	}

	// Step 5: FIB match.
	fibEntry := p.Fib.Match(msg.name)
	if fibEntry == nil {
		p.drop(defn.DropNoRoute, msg.conn)
		p.sendInterestReturnIfLocal(connEntry, msg, returnCodeNoRoute)
		return
	}
	pitEntry.SetStrategy(fibEntry.GetStrategy())

	// Step 6: strategy nexthop selection.
	egress := fibEntry.LookupNexthop(msg.name, p.nonce())

	// loadbalancer-with-delay periodically asks to probe every candidate
	// nexthop of this FIB entry to refresh its RTT estimate (§4.8).
	if pc, ok := fibEntry.GetStrategy().(probeCapable); ok && pc.ShouldProbe() {
		for _, nh := range fibEntry.GetNextHops() {
			if err := p.sendProbe(nh.Nexthop, msg.buf); err != nil {
				core.Log.Warn(core.Named("fwd"), "probe send failed", "conn", nh.Nexthop, "err", err)
			}
		}
	}

	// Step 7: forward to every selected nexthop, decrementing hop-limit.
	for _, nh := range egress {
		out := msg.buf
		if hop, present := msg.hopLimit(); present {
			out = decrementHopLimit(msg.buf, msg.sk, hop)
		}
		if err := p.send(nh, out); err != nil {
			core.Log.Warn(core.Named("fwd"), "forward failed", "conn", nh, "err", err)
			continue
		}
		pitEntry.InsertOutRecord(nh, now)
	}
}

// processContentObject implements §4.9's process_content_object pipeline.
func (p *Processor) processContentObject(msg *message, now time.Time) {
	matched, egress := p.Pit.SatisfyInterest(msg.name, msg.keyID(), msg.objectHash(), now)
	if len(matched) == 0 {
		p.drop(defn.DropUnsolicited, msg.conn)
		return
	}

	// Signature verification against the originating Interest's keyid
	// restriction is an external collaborator call (§1 non-goals).

	if ms, present := msg.recommendedCacheTime(); !present || ms != 0 {
		p.Cs.Insert(msg.contentObjectHash(), msg.name, msg.keyID(), msg.expiryTime(), msg.buf)
	}

	for _, e := range matched {
		if e.Strategy == nil {
			continue
		}
		rttMs := now.Sub(e.CreatedAt).Milliseconds()
		for outConn := range e.OutRecords {
			e.Strategy.OnContentObjectEgress(outConn, rttMs)
		}
	}

	for _, conn := range egress {
		if err := p.send(conn, msg.buf); err != nil {
			core.Log.Warn(core.Named("fwd"), "content-object send failed", "conn", conn, "err", err)
		}
	}
}

// processInterestReturn implements §4.9's process_interest_return: drop
// the matching PitEntry and forward nothing further.
func (p *Processor) processInterestReturn(msg *message) {
	p.Pit.RemoveInterest(msg.name, msg.keyID(), msg.objectHash())
}

// processControl dispatches to the configuration subsystem, which is out
// of scope for this processor (§4.9); the mgmt package instead drives
// FIB/CS/strategy changes through direct Go method calls rather than wire
// Control packets, so a received Control packet is simply logged.
func (p *Processor) processControl(msg *message) {
	core.Log.Debug(core.Named("fwd"), "control packet received, not handled on the wire", "conn", msg.conn)
}

func (p *Processor) sendInterestReturnIfLocal(connEntry *table.ConnEntry, msg *message, code uint8) {
	if connEntry == nil || !connEntry.Up || !connEntry.IsLocal {
		return
	}
	wire := tlv.NewBuilder(tlv.PacketTypeInterestReturn).
		SetName(msg.sk.Name.Bytes(msg.buf)).
		SetReturnCode(code).
		Encode()
	if err := p.send(msg.conn, wire); err != nil {
		core.Log.Warn(core.Named("fwd"), "interest-return send failed", "conn", msg.conn, "err", err)
	}
}

func decrementHopLimit(buf []byte, sk *tlv.Skeleton, hop uint8) []byte {
	out := make([]byte, len(buf))
	copy(out, buf)
	if hop > 0 {
		out[sk.HopLimit.Offset] = hop - 1
	}
	return out
}
