package face

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/go-icn/fwd/core"
	"github.com/go-icn/fwd/defn"
)

// UnixTransport is a stream transport over a local Unix domain socket,
// framed identically to TCPTransport, used for local applications that
// want a direct (non-multiplexed) face (YaNFD's unix-stream-transport).
type UnixTransport struct {
	transportBase
	sock net.Conn
}

// DialUnix connects to a Unix domain socket path.
func DialUnix(id defn.ConnID, path string) (*UnixTransport, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial unix: %w", err)
	}
	t := &UnixTransport{sock: conn}
	t.init(id, true, conn.LocalAddr().String(), conn.RemoteAddr().String())
	t.running.Store(true)
	return t, nil
}

// AcceptUnix wraps an already-accepted Unix domain connection.
func AcceptUnix(id defn.ConnID, conn net.Conn) *UnixTransport {
	t := &UnixTransport{sock: conn}
	t.init(id, true, conn.LocalAddr().String(), conn.RemoteAddr().String())
	t.running.Store(true)
	return t
}

func (t *UnixTransport) String() string {
	return fmt.Sprintf("unix-transport(conn=%d remote=%s)", t.conn, t.remoteAddr)
}

func (t *UnixTransport) Send(frame []byte) error {
	if !t.running.Load() {
		return defn.ErrFaceDown
	}
	if len(frame) > 0xffff {
		return defn.ErrCapacityExceeded
	}
	var hdr [lengthPrefixLen]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(frame)))
	if _, err := t.sock.Write(append(hdr[:], frame...)); err != nil {
		core.Log.Warn(t, "unix write failed, closing", "err", err)
		t.Close()
		return err
	}
	t.nOutBytes.Add(uint64(len(frame)))
	return nil
}

func (t *UnixTransport) SendProbe(frame []byte) error { return t.Send(frame) }

func (t *UnixTransport) RunReceive(submit Submit) {
	defer t.Close()
	var hdr [lengthPrefixLen]byte
	for t.running.Load() {
		if _, err := io.ReadFull(t.sock, hdr[:]); err != nil {
			if t.running.Load() && err != io.EOF {
				core.Log.Warn(t, "unix read failed, closing", "err", err)
			}
			return
		}
		n := binary.BigEndian.Uint16(hdr[:])
		frame := make([]byte, n)
		if _, err := io.ReadFull(t.sock, frame); err != nil {
			core.Log.Warn(t, "unix short read, closing", "err", err)
			return
		}
		t.nInBytes.Add(uint64(n))
		submit(t.conn, frame)
	}
}

func (t *UnixTransport) Close() {
	if t.running.Swap(false) {
		t.sock.Close()
	}
}

// UnixListener accepts inbound connections on a Unix domain socket path,
// used for local application faces.
type UnixListener struct {
	path     string
	listener net.Listener
	stopped  chan struct{}
}

// ListenUnix starts listening on a Unix domain socket at path.
func ListenUnix(path string) (*UnixListener, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix: %w", err)
	}
	return &UnixListener{path: path, listener: ln, stopped: make(chan struct{})}, nil
}

func (l *UnixListener) String() string { return fmt.Sprintf("unix-listener(%s)", l.path) }

// Run accepts connections until Close is called.
func (l *UnixListener) Run(onAccept func(net.Conn)) {
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
func (l *UnixListener) Close() {
	l.listener.Close()
	<-l.stopped
}
