package face

import (
	"fmt"
	"net"

	"github.com/go-icn/fwd/core"
	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/face/impl"
)

// MaxPacketSize bounds a single read from a datagram transport; larger
// packets are truncated by the kernel before we ever see them, so this is
// purely a receive-buffer size.
const MaxPacketSize = 9000

// UnicastUDPTransport is a point-to-point UDP transport, dialed once at
// creation (YaNFD's UnicastUDPTransport, generalized off its NDN URI type
// onto plain host:port strings since name-based addressing is out of
// scope here).
type UnicastUDPTransport struct {
	transportBase
	sock *net.UDPConn
}

// DialUnicastUDP creates a UDP transport connected to remoteAddr, bound
// to localAddr if non-empty.
func DialUnicastUDP(id defn.ConnID, localAddr, remoteAddr string) (*UnicastUDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve remote: %w", err)
	}
	var laddr *net.UDPAddr
	if localAddr != "" {
		laddr, err = net.ResolveUDPAddr("udp", localAddr)
		if err != nil {
			return nil, fmt.Errorf("resolve local: %w", err)
		}
	}

	dialer := &net.Dialer{LocalAddr: laddr, Control: impl.SyscallReuseAddr}
	conn, err := dialer.Dial("udp", raddr.String())
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	sock := conn.(*net.UDPConn)

	t := &UnicastUDPTransport{sock: sock}
	t.init(id, raddr.IP.IsLoopback(), sock.LocalAddr().String(), raddr.String())
	t.running.Store(true)
	return t, nil
}

func (t *UnicastUDPTransport) String() string {
	return fmt.Sprintf("udp-transport(conn=%d local=%s remote=%s)", t.conn, t.localAddr, t.remoteAddr)
}

// Send writes frame on the connected UDP socket, closing the transport
// on any write error since UDP surfaces a dead peer only via ICMP.
func (t *UnicastUDPTransport) Send(frame []byte) error {
	if !t.running.Load() {
		return defn.ErrFaceDown
	}
	if _, err := t.sock.Write(frame); err != nil {
		core.Log.Warn(t, "udp write failed, closing", "err", err)
		t.Close()
		return err
	}
	t.nOutBytes.Add(uint64(len(frame)))
	return nil
}

// SendProbe is identical to Send: a UDP probe packet is just a normal
// datagram whose RTT the strategy layer happens to be timing.
func (t *UnicastUDPTransport) SendProbe(frame []byte) error { return t.Send(frame) }

// RunReceive reads datagrams until the socket is closed, submitting each
// whole datagram as one frame (UDP already preserves message boundaries).
func (t *UnicastUDPTransport) RunReceive(submit Submit) {
	buf := make([]byte, MaxPacketSize)
	for t.running.Load() {
		n, err := t.sock.Read(buf)
		if err != nil {
			if t.running.Load() {
				core.Log.Warn(t, "udp read failed, closing", "err", err)
			}
			t.Close()
			return
		}
		t.nInBytes.Add(uint64(n))
		frame := make([]byte, n)
		copy(frame, buf[:n])
		submit(t.conn, frame)
	}
}

func (t *UnicastUDPTransport) Close() {
	if t.running.Swap(false) {
		t.sock.Close()
	}
}

// MulticastUDPTransport joins a multicast group and exchanges frames with
// every member, used for link-local producer/consumer discovery on a
// broadcast-capable network.
type MulticastUDPTransport struct {
	transportBase
	sock      *net.UDPConn
	groupAddr *net.UDPAddr
}

// JoinMulticastUDP opens a UDP socket listening on the group address and
// joins the multicast group at groupAddr on the named interface.
// localAddr is only recorded as the transport's local address; the
// socket is not bound to it.
func JoinMulticastUDP(id defn.ConnID, ifaceName, localAddr, groupAddr string) (*MulticastUDPTransport, error) {
	gaddr, err := net.ResolveUDPAddr("udp", groupAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve group: %w", err)
	}
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("lookup interface: %w", err)
	}

	sock, err := net.ListenMulticastUDP("udp", iface, gaddr)
	if err != nil {
		return nil, fmt.Errorf("join multicast group: %w", err)
	}

	t := &MulticastUDPTransport{sock: sock, groupAddr: gaddr}
	t.init(id, false, localAddr, groupAddr)
	t.running.Store(true)
	return t, nil
}

func (t *MulticastUDPTransport) String() string {
	return fmt.Sprintf("multicast-udp-transport(conn=%d group=%s)", t.conn, t.remoteAddr)
}

// Send broadcasts frame to the multicast group.
func (t *MulticastUDPTransport) Send(frame []byte) error {
	if !t.running.Load() {
		return defn.ErrFaceDown
	}
	if _, err := t.sock.WriteToUDP(frame, t.groupAddr); err != nil {
		return err
	}
	t.nOutBytes.Add(uint64(len(frame)))
	return nil
}

func (t *MulticastUDPTransport) SendProbe(frame []byte) error { return t.Send(frame) }

// RunReceive reads datagrams from the multicast group, ignoring our own
// transmissions by relying on the caller to treat loopback delivery as a
// harmless retransmission (connectionless multicast has no peer identity
// to filter on more precisely without IP_PKTINFO, which is out of scope
// for this transport).
func (t *MulticastUDPTransport) RunReceive(submit Submit) {
	buf := make([]byte, MaxPacketSize)
	for t.running.Load() {
		n, _, err := t.sock.ReadFromUDP(buf)
		if err != nil {
			if t.running.Load() {
				core.Log.Warn(t, "multicast read failed, closing", "err", err)
			}
			t.Close()
			return
		}
		t.nInBytes.Add(uint64(n))
		frame := make([]byte, n)
		copy(frame, buf[:n])
		submit(t.conn, frame)
	}
}

func (t *MulticastUDPTransport) Close() {
	if t.running.Swap(false) {
		t.sock.Close()
	}
}
