// Package face implements the forwarder's I/O layer: the concrete
// transports that move wire-format bytes between the network and the
// dispatcher. Every transport submits inbound frames through a Submit
// callback rather than touching forwarding tables directly, so that
// PIT/FIB/CS mutation stays confined to the single dispatcher goroutine.
package face

import (
	"sync/atomic"

	"github.com/go-icn/fwd/defn"
)

// Submit delivers one inbound frame, read on a transport's own
// goroutine, to the dispatcher for processing.
type Submit func(conn defn.ConnID, frame []byte)

// Transport is the I/O operations the rest of the forwarder needs from a
// connection, independent of its concrete medium (metis_IoOperations).
type Transport interface {
	String() string

	// Send transmits a single already-encoded wire packet. Safe to call
	// from the dispatcher goroutine only.
	Send(frame []byte) error
	// SendProbe sends a minimal packet whose only purpose is to let the
	// caller measure round-trip delay; semantically identical to Send for
	// every transport that doesn't need to special-case it.
	SendProbe(frame []byte) error

	// RunReceive blocks, reading frames and handing them to submit,
	// until the transport is closed. Runs on its own goroutine.
	RunReceive(submit Submit)

	IsUp() bool
	IsLocal() bool
	Close()

	LocalAddr() string
	RemoteAddr() string

	NInBytes() uint64
	NOutBytes() uint64
}

// transportBase factors out the bookkeeping every concrete transport
// needs: running state, byte counters, and the ConnID it was assigned
// once registered in the ConnTable.
type transportBase struct {
	conn    defn.ConnID
	local   bool
	running atomic.Bool

	localAddr  string
	remoteAddr string

	nInBytes  atomic.Uint64
	nOutBytes atomic.Uint64
}

func (t *transportBase) init(conn defn.ConnID, local bool, localAddr, remoteAddr string) {
	t.conn = conn
	t.local = local
	t.localAddr = localAddr
	t.remoteAddr = remoteAddr
}

func (t *transportBase) IsUp() bool    { return t.running.Load() }
func (t *transportBase) IsLocal() bool { return t.local }

func (t *transportBase) LocalAddr() string  { return t.localAddr }
func (t *transportBase) RemoteAddr() string { return t.remoteAddr }

func (t *transportBase) NInBytes() uint64  { return t.nInBytes.Load() }
func (t *transportBase) NOutBytes() uint64 { return t.nOutBytes.Load() }
