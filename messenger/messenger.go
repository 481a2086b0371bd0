// Package messenger broadcasts connection lifecycle events to the rest of
// the forwarder. Recipients register a callback; delivery is deferred one
// tick so that a listener's own reaction to an event never runs inside the
// dispatcher call stack that raised it (ccnx metis_Messenger/metis_Missive).
package messenger

import (
	"sync"

	"github.com/go-icn/fwd/defn"
)

// MissiveType is the kind of connection lifecycle event being reported.
type MissiveType int

const (
	// ConnectionCreate is raised when a new connection is registered in the ConnTable.
	ConnectionCreate MissiveType = iota
	// ConnectionUp is raised when a connection transitions from down to up.
	ConnectionUp
	// ConnectionDown is raised when a connection transitions from up to down.
	ConnectionDown
	// ConnectionClosed is raised once a connection is removed from the ConnTable.
	ConnectionClosed
)

// Returns the name of the missive type, for logging.
func (t MissiveType) String() string {
	switch t {
	case ConnectionCreate:
		return "ConnectionCreate"
	case ConnectionUp:
		return "ConnectionUp"
	case ConnectionDown:
		return "ConnectionDown"
	case ConnectionClosed:
		return "ConnectionClosed"
	default:
		return "Unknown"
	}
}

// Missive is a single broadcast event, naming the connection it concerns.
type Missive struct {
	Type MissiveType
	Conn defn.ConnID
}

// Messenger is the deferred-delivery event bus. All methods are safe to
// call from any goroutine; actual callback delivery happens in Drain,
// which must be called by the single dispatcher
// goroutine that also owns the PIT/FIB/CS tables.
type Messenger struct {
	queue chan Missive

	mu        sync.Mutex
	nextHndl  int
	listeners map[int]func(Missive)
}

// New creates a Messenger with the given pending-delivery queue depth.
func New(queueDepth int) *Messenger {
	return &Messenger{
		queue:     make(chan Missive, queueDepth),
		listeners: make(map[int]func(Missive)),
	}
}

// Register adds a recipient and returns a function that unregisters it.
func (m *Messenger) Register(recv func(Missive)) (cancel func()) {
	m.mu.Lock()
	hndl := m.nextHndl
	m.nextHndl++
	m.listeners[hndl] = recv
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, hndl)
		m.mu.Unlock()
	}
}

// Send enqueues a missive for deferred delivery. If the queue is full the
// missive is dropped rather than blocking the caller; lifecycle events are
// advisory, not delivery-guaranteed.
func (m *Messenger) Send(miss Missive) {
	select {
	case m.queue <- miss:
	default:
	}
}

// Drain delivers every currently queued missive to all registered
// recipients. It must be called from the dispatcher's own goroutine, once
// per event loop tick, so that recipients never observe a missive from
// inside the stack frame that raised it.
func (m *Messenger) Drain() {
	for {
		select {
		case miss := <-m.queue:
			m.deliver(miss)
		default:
			return
		}
	}
}

func (m *Messenger) deliver(miss Missive) {
	m.mu.Lock()
	recvs := make([]func(Missive), 0, len(m.listeners))
	for _, recv := range m.listeners {
		recvs = append(recvs, recv)
	}
	m.mu.Unlock()

	for _, recv := range recvs {
		recv(miss)
	}
}
