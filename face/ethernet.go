package face

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"

	"github.com/go-icn/fwd/core"
	"github.com/go-icn/fwd/defn"
)

// etherType is the experimental EtherType this forwarder uses to tag its
// own frames on the wire, distinguishing them from IP traffic sharing the
// same link.
const etherType = 0x88b6

// ethernetMTU is the largest ICN fragment payload that fits in one
// Ethernet frame alongside our headers, leaving room for the 14-byte MAC
// header and a little slack below the common 1500-byte link MTU.
const ethernetMTU = 1400

// fragHeaderLen is the size of the hop-by-hop fragmentation header
// prefixed to every Ethernet frame's payload: a 2-byte fragment id, a
// 1-byte fragment index, and a 1-byte fragment count.
const fragHeaderLen = 4

// reassemblyCapPerSource bounds the number of fragment groups the
// transport will track concurrently per source MAC address, so a
// misbehaving or malicious peer cannot grow unbounded reassembly state.
const reassemblyCapPerSource = 64

// reassemblyTimeout is how long an incomplete fragment group is kept
// before being dropped.
const reassemblyTimeout = 250 * time.Millisecond

// EthernetTransport sends and receives ICN packets as raw Ethernet
// frames over AF_PACKET, fragmenting packets larger than the link MTU
// and reassembling them on receipt (the original Metis forwarder's
// Ethernet IoOperations, generalized from NDN onto this spec's TLV
// framing).
type EthernetTransport struct {
	transportBase

	handle     *afpacket.TPacket
	remoteMAC  [6]byte
	srcMAC     [6]byte
	nextFragID uint16

	mu     sync.Mutex
	groups map[[6]byte]map[uint16]*fragGroup
}

type fragGroup struct {
	parts    [][]byte
	received int
	total    int
	lastSeen time.Time
}

// OpenEthernet opens a raw AF_PACKET socket on the named interface. If
// remoteMAC is not all zeros, the transport is unicast to that address;
// otherwise it broadcasts to ff:ff:ff:ff:ff:ff (link-local discovery).
// In either case, received frames with the forwarder's EtherType are
// accepted from any source MAC.
func OpenEthernet(id defn.ConnID, ifaceName string, srcMAC, remoteMAC [6]byte) (*EthernetTransport, error) {
	if remoteMAC == ([6]byte{}) {
		remoteMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	}
	handle, err := afpacket.NewTPacket(
		afpacket.OptInterface(ifaceName),
		afpacket.OptFrameSize(65536),
		afpacket.OptBlockSize(65536*32),
		afpacket.OptNumBlocks(4),
		afpacket.OptPollTimeout(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("open af_packet on %s: %w", ifaceName, err)
	}

	t := &EthernetTransport{
		handle:    handle,
		srcMAC:    srcMAC,
		remoteMAC: remoteMAC,
		groups:    make(map[[6]byte]map[uint16]*fragGroup),
	}
	t.init(id, false, macString(srcMAC), macString(remoteMAC))
	t.running.Store(true)
	return t, nil
}

func macString(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

func (t *EthernetTransport) String() string {
	return fmt.Sprintf("ethernet-transport(conn=%d remote=%s)", t.conn, t.remoteAddr)
}

// Send fragments frame into ethernetMTU-sized pieces if necessary and
// writes each as its own Ethernet frame.
func (t *EthernetTransport) Send(frame []byte) error {
	if !t.running.Load() {
		return defn.ErrFaceDown
	}

	fragID := t.nextFragID
	t.nextFragID++

	total := (len(frame) + ethernetMTU - 1) / ethernetMTU
	if total == 0 {
		total = 1
	}
	if total > 255 {
		return defn.ErrCapacityExceeded
	}

	for i := 0; i < total; i++ {
		start := i * ethernetMTU
		end := start + ethernetMTU
		if end > len(frame) {
			end = len(frame)
		}
		if err := t.sendFragment(fragID, uint8(i), uint8(total), frame[start:end]); err != nil {
			return err
		}
	}
	t.nOutBytes.Add(uint64(len(frame)))
	return nil
}

func (t *EthernetTransport) sendFragment(fragID uint16, index, total uint8, payload []byte) error {
	hdr := make([]byte, fragHeaderLen+len(payload))
	binary.BigEndian.PutUint16(hdr[0:2], fragID)
	hdr[2] = index
	hdr[3] = total
	copy(hdr[fragHeaderLen:], payload)

	eth := &layers.Ethernet{
		SrcMAC:       t.srcMAC[:],
		DstMAC:       t.remoteMAC[:],
		EthernetType: layers.EthernetType(etherType),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(hdr)); err != nil {
		return fmt.Errorf("serialize ethernet frame: %w", err)
	}
	return t.handle.WritePacketData(buf.Bytes())
}

// SendProbe sends a minimal single-fragment frame; probes are never
// larger than ethernetMTU.
func (t *EthernetTransport) SendProbe(frame []byte) error { return t.Send(frame) }

// RunReceive reads raw Ethernet frames, reassembles fragmented packets
// per source MAC, and submits each fully reassembled packet.
func (t *EthernetTransport) RunReceive(submit Submit) {
	defer t.Close()
	for t.running.Load() {
		data, _, err := t.handle.ZeroCopyReadPacketData()
		if err != nil {
			if t.running.Load() {
				core.Log.Warn(t, "ethernet read failed", "err", err)
			}
			continue
		}
		pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
		ethLayer, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
		if !ok || ethLayer.EthernetType != layers.EthernetType(etherType) {
			continue
		}
		t.nInBytes.Add(uint64(len(ethLayer.Payload)))
		if full, ok := t.reassemble(ethLayer.SrcMAC, ethLayer.Payload, time.Now()); ok {
			submit(t.conn, full)
		}
	}
}

// reassemble consumes one fragment of payload and returns the full
// packet once every fragment in its group has arrived.
func (t *EthernetTransport) reassemble(src []byte, payload []byte, now time.Time) ([]byte, bool) {
	if len(payload) < fragHeaderLen {
		return nil, false
	}
	var srcMAC [6]byte
	copy(srcMAC[:], src)

	fragID := binary.BigEndian.Uint16(payload[0:2])
	index := payload[2]
	total := payload[3]
	body := payload[fragHeaderLen:]

	t.mu.Lock()
	defer t.mu.Unlock()

	bySource, ok := t.groups[srcMAC]
	if !ok {
		bySource = make(map[uint16]*fragGroup)
		t.groups[srcMAC] = bySource
	}
	t.evictStale(bySource, now)

	group, ok := bySource[fragID]
	if !ok {
		if len(bySource) >= reassemblyCapPerSource {
			return nil, false
		}
		group = &fragGroup{parts: make([][]byte, total), total: int(total)}
		bySource[fragID] = group
	}

	if int(index) >= len(group.parts) || group.parts[index] != nil {
		group.lastSeen = now
		return nil, false
	}
	cp := make([]byte, len(body))
	copy(cp, body)
	group.parts[index] = cp
	group.received++
	group.lastSeen = now

	if group.received < group.total {
		return nil, false
	}

	delete(bySource, fragID)
	full := make([]byte, 0, len(body)*group.total)
	for _, p := range group.parts {
		full = append(full, p...)
	}
	return full, true
}

func (t *EthernetTransport) evictStale(bySource map[uint16]*fragGroup, now time.Time) {
	for id, g := range bySource {
		if now.Sub(g.lastSeen) > reassemblyTimeout {
			delete(bySource, id)
		}
	}
}

func (t *EthernetTransport) Close() {
	if t.running.Swap(false) {
		t.handle.Close()
	}
}
