// Package dispatch hosts the single goroutine that owns every PIT/FIB/CS/
// strategy mutation, preserving §5's single-writer invariant while using
// Go's channel-and-goroutine I/O model instead of the original
// forwarder's libevent reactor.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/face"
	"github.com/go-icn/fwd/fwd"
	"github.com/go-icn/fwd/messenger"
	"github.com/go-icn/fwd/table"
)

// pitSweepInterval is how often the dispatcher sweeps the PIT for
// expired entries, backstopping lazy expiry-at-lookup (§4.5, §9).
const pitSweepInterval = time.Second

type inboundFrame struct {
	conn  defn.ConnID
	frame []byte
}

// Dispatcher is the forwarder's single reactor goroutine. Every
// transport's read loop runs on its own goroutine but only ever submits
// frames here; all table mutation happens inside Run.
type Dispatcher struct {
	Conns *table.ConnTable
	Proc  *fwd.Processor
	msgr  *messenger.Messenger

	mu         sync.Mutex
	transports map[defn.ConnID]face.Transport

	inbound chan inboundFrame
	wg      sync.WaitGroup
}

// New creates a Dispatcher with no processor attached yet. Set d.Proc
// once a fwd.Processor has been built with NewProcessorFor - the two are
// mutually referential (the processor sends through the dispatcher's
// transports; the dispatcher hands received frames to the processor), so
// construction happens in two steps.
func New(conns *table.ConnTable, msgr *messenger.Messenger) *Dispatcher {
	return &Dispatcher{
		Conns:      conns,
		msgr:       msgr,
		transports: make(map[defn.ConnID]face.Transport),
		inbound:    make(chan inboundFrame, 256),
	}
}

// NewProcessorFor builds a fwd.Processor whose send/sendProbe callbacks
// route through d's transport table.
func NewProcessorFor(d *Dispatcher, conns *table.ConnTable, pit *table.Pit, fib *table.Fib, cs *table.ContentStore, msgr *messenger.Messenger) *fwd.Processor {
	return fwd.NewProcessor(conns, pit, fib, cs, msgr, d.Send, d.SendProbe, nil)
}

// Send transmits frame on conn's transport, or returns defn.ErrUnknownConnection.
func (d *Dispatcher) Send(conn defn.ConnID, frame []byte) error {
	t := d.transportFor(conn)
	if t == nil {
		return defn.ErrUnknownConnection
	}
	return t.Send(frame)
}

// SendProbe sends a delay-measurement probe on conn's transport.
func (d *Dispatcher) SendProbe(conn defn.ConnID, frame []byte) error {
	t := d.transportFor(conn)
	if t == nil {
		return defn.ErrUnknownConnection
	}
	return t.SendProbe(frame)
}

func (d *Dispatcher) transportFor(conn defn.ConnID) face.Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[conn]
}

// submit is handed to every transport as its Submit callback; it is the
// only thing a transport's read-loop goroutine is allowed to call.
func (d *Dispatcher) submit(conn defn.ConnID, frame []byte) {
	d.inbound <- inboundFrame{conn: conn, frame: frame}
}

// Adopt registers an already-open transport, reserving its ConnID ahead
// of the call (transports need their ConnID at construction time to tag
// every Submit), and starts its receive loop on a new goroutine.
func (d *Dispatcher) Adopt(id defn.ConnID, typ defn.ConnType, t face.Transport) {
	d.mu.Lock()
	d.transports[id] = t
	d.mu.Unlock()

	d.Conns.AddWithID(id, typ, t.LocalAddr(), t.RemoteAddr(), t.IsUp(), t.IsLocal())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		t.RunReceive(d.submit)
		d.closeConn(id)
	}()
}

func (d *Dispatcher) closeConn(id defn.ConnID) {
	d.mu.Lock()
	delete(d.transports, id)
	d.mu.Unlock()

	d.Conns.RemoveByID(id)
	d.Proc.Fib.RemoveConnectionFromAllRoutes(id)
}

// RemoveConnection closes and deregisters a connection by id, used by the
// management API's remove_connection operation.
func (d *Dispatcher) RemoveConnection(id defn.ConnID) error {
	t := d.transportFor(id)
	if t == nil {
		return defn.ErrUnknownConnection
	}
	t.Close() // RunReceive unblocks and closeConn runs on its own goroutine
	return nil
}

// Run drives the dispatcher until ctx is cancelled: processing inbound
// frames, sweeping the PIT once a second, and draining the messenger
// queue once per iteration so deferred connection-lifecycle missives are
// delivered without re-entrancy into the raising call (§4.4).
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(pitSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.msgr.Drain()
			return
		case frm := <-d.inbound:
			d.Proc.Receive(frm.conn, frm.frame)
		case now := <-ticker.C:
			d.Proc.Pit.Sweep(now)
		}
		d.msgr.Drain()
	}
}

// Close closes every adopted transport and waits for their receive loops
// to exit. Call after Run's ctx has been cancelled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	transports := make([]face.Transport, 0, len(d.transports))
	for _, t := range d.transports {
		transports = append(transports, t)
	}
	d.mu.Unlock()

	for _, t := range transports {
		t.Close()
	}
	d.wg.Wait()
}

// String identifies the dispatcher for log lines.
func (d *Dispatcher) String() string { return "dispatcher" }
