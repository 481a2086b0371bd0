package face

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/go-icn/fwd/core"
	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/face/impl"
)

// lengthPrefixLen is the size of the length prefix TCP framing adds in
// front of every TLV packet, since TCP is a byte stream with no message
// boundaries of its own.
const lengthPrefixLen = 2

// TCPTransport is a reliable stream transport, framed with a 2-byte
// big-endian length prefix per packet (YaNFD's unicast-tcp-transport,
// generalized off NDNLP's own length-agnostic framing).
type TCPTransport struct {
	transportBase
	sock net.Conn
}

// DialTCP connects to remoteAddr over TCP.
func DialTCP(id defn.ConnID, remoteAddr string) (*TCPTransport, error) {
	dialer := &net.Dialer{Control: impl.SyscallReuseAddr}
	conn, err := dialer.Dial("tcp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp: %w", err)
	}
	t := &TCPTransport{sock: conn}
	t.init(id, isLoopbackAddr(conn.RemoteAddr()), conn.LocalAddr().String(), conn.RemoteAddr().String())
	t.running.Store(true)
	return t, nil
}

// AcceptTCP wraps an already-accepted connection from a TCPListener.
func AcceptTCP(id defn.ConnID, conn net.Conn) *TCPTransport {
	t := &TCPTransport{sock: conn}
	t.init(id, isLoopbackAddr(conn.RemoteAddr()), conn.LocalAddr().String(), conn.RemoteAddr().String())
	t.running.Store(true)
	return t
}

func isLoopbackAddr(addr net.Addr) bool {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (t *TCPTransport) String() string {
	return fmt.Sprintf("tcp-transport(conn=%d remote=%s)", t.conn, t.remoteAddr)
}

// Send writes frame prefixed with its 2-byte length.
func (t *TCPTransport) Send(frame []byte) error {
	if !t.running.Load() {
		return defn.ErrFaceDown
	}
	if len(frame) > 0xffff {
		return defn.ErrCapacityExceeded
	}
	var hdr [lengthPrefixLen]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(frame)))
	if _, err := t.sock.Write(append(hdr[:], frame...)); err != nil {
		core.Log.Warn(t, "tcp write failed, closing", "err", err)
		t.Close()
		return err
	}
	t.nOutBytes.Add(uint64(len(frame)))
	return nil
}

func (t *TCPTransport) SendProbe(frame []byte) error { return t.Send(frame) }

// RunReceive reads the length-prefixed stream until EOF or error.
func (t *TCPTransport) RunReceive(submit Submit) {
	defer t.Close()
	var hdr [lengthPrefixLen]byte
	for t.running.Load() {
		if _, err := io.ReadFull(t.sock, hdr[:]); err != nil {
			if t.running.Load() && err != io.EOF {
				core.Log.Warn(t, "tcp read failed, closing", "err", err)
			}
			return
		}
		n := binary.BigEndian.Uint16(hdr[:])
		frame := make([]byte, n)
		if _, err := io.ReadFull(t.sock, frame); err != nil {
			core.Log.Warn(t, "tcp short read, closing", "err", err)
			return
		}
		t.nInBytes.Add(uint64(n))
		submit(t.conn, frame)
	}
}

func (t *TCPTransport) Close() {
	if t.running.Swap(false) {
		t.sock.Close()
	}
}

// TCPListener accepts inbound TCP connections and hands each one to
// onAccept, which is responsible for registering it in the ConnTable and
// starting its receive loop (mirrors YaNFD's TCPListener.Run).
type TCPListener struct {
	localAddr string
	listener  net.Listener
	stopped   chan struct{}
}

// ListenTCP starts listening on localAddr.
func ListenTCP(localAddr string) (*TCPListener, error) {
	lc := &net.ListenConfig{Control: impl.SyscallReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp: %w", err)
	}
	return &TCPListener{localAddr: localAddr, listener: ln, stopped: make(chan struct{})}, nil
}

func (l *TCPListener) String() string {
	return fmt.Sprintf("tcp-listener(%s)", l.localAddr)
}

// Run accepts connections until Close is called, invoking onAccept for
// each. Intended to run on its own goroutine.
func (l *TCPListener) Run(onAccept func(net.Conn)) {
	defer close(l.stopped)
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			return
		}
		onAccept(conn)
	}
}

// Close stops the listener and waits for Run to return.
func (l *TCPListener) Close() {
	l.listener.Close()
	<-l.stopped
}
