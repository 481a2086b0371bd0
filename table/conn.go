// Package table holds the forwarder's per-process state: the connection
// table, PIT, FIB, and content store. All tables are designed to be owned
// and mutated exclusively by the single dispatcher goroutine described in
// §9 of the design notes; none of the types here take their own locks.
package table

import (
	"fmt"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/messenger"
)

// ConnEntry is the forwarder's record of one connection: its type, local
// app/network address pair, and up/down state. Transports register and
// deregister themselves here; everything else in the forwarder addresses
// connections only by ConnID.
type ConnEntry struct {
	ID      defn.ConnID
	Type    defn.ConnType
	Local   string
	Remote  string
	Up      bool
	IsLocal bool
}

// ConnTable is the arena of live connections, indexed by ConnID for O(1)
// lookup and by (local, remote) address pair for demultiplexing inbound
// datagrams from connectionless transports (UDP).
type ConnTable struct {
	messenger *messenger.Messenger

	byID      map[defn.ConnID]*ConnEntry
	byAddrs   map[string]*ConnEntry
	nextID    defn.ConnID
}

// NewConnTable creates an empty connection table that raises lifecycle
// missives on the given bus.
func NewConnTable(m *messenger.Messenger) *ConnTable {
	return &ConnTable{
		messenger: m,
		byID:      make(map[defn.ConnID]*ConnEntry),
		byAddrs:   make(map[string]*ConnEntry),
		nextID:    1,
	}
}

func addrKey(local, remote string) string {
	return local + "|" + remote
}

// ReserveID allocates the ConnID a connection will be registered under
// without yet adding it to the table. Transports need their ConnID at
// construction time (to hand to Submit on every inbound frame), but the
// table cannot register a connection before its transport has actually
// opened - ReserveID plus AddWithID splits allocation from registration
// to break that ordering cycle.
func (t *ConnTable) ReserveID() defn.ConnID {
	id := t.nextID
	t.nextID++
	return id
}

// Add allocates a new ConnID and registers the connection, raising a
// ConnectionCreate missive. isLocal marks a connection whose remote
// endpoint is on this same host (§4.9 step 1 exempts such connections
// from the hop-limit-zero drop).
func (t *ConnTable) Add(typ defn.ConnType, local, remote string, up, isLocal bool) *ConnEntry {
	return t.AddWithID(t.ReserveID(), typ, local, remote, up, isLocal)
}

// AddWithID registers a connection under a ConnID obtained earlier from
// ReserveID, raising the same missives as Add. Panics if id is already
// registered.
func (t *ConnTable) AddWithID(id defn.ConnID, typ defn.ConnType, local, remote string, up, isLocal bool) *ConnEntry {
	if _, exists := t.byID[id]; exists {
		panic(fmt.Sprintf("table: AddWithID of already-registered connection %d", id))
	}

	e := &ConnEntry{ID: id, Type: typ, Local: local, Remote: remote, Up: up, IsLocal: isLocal}
	t.byID[id] = e
	if remote != "" {
		t.byAddrs[addrKey(local, remote)] = e
	}

	t.messenger.Send(messenger.Missive{Type: messenger.ConnectionCreate, Conn: id})
	if up {
		t.messenger.Send(messenger.Missive{Type: messenger.ConnectionUp, Conn: id})
	}
	return e
}

// RemoveByID unconditionally removes a connection, raising a
// ConnectionClosed missive. Panics if the id is unknown: callers are
// expected to know the lifetime of connections they created.
func (t *ConnTable) RemoveByID(id defn.ConnID) {
	e, ok := t.byID[id]
	if !ok {
		panic(fmt.Sprintf("table: RemoveByID of unknown connection %d", id))
	}
	delete(t.byID, id)
	if e.Remote != "" {
		delete(t.byAddrs, addrKey(e.Local, e.Remote))
	}
	t.messenger.Send(messenger.Missive{Type: messenger.ConnectionClosed, Conn: id})
}

// FindByID returns the connection entry, or nil if it doesn't exist.
func (t *ConnTable) FindByID(id defn.ConnID) *ConnEntry {
	return t.byID[id]
}

// FindByAddressPair returns the connection matching the given local and
// remote addresses, used to demultiplex inbound packets on connectionless
// transports.
func (t *ConnTable) FindByAddressPair(local, remote string) *ConnEntry {
	return t.byAddrs[addrKey(local, remote)]
}

// SetUp flips a connection's up/down state, raising the corresponding
// missive only on an actual transition.
func (t *ConnTable) SetUp(id defn.ConnID, up bool) {
	e, ok := t.byID[id]
	if !ok || e.Up == up {
		return
	}
	e.Up = up
	if up {
		t.messenger.Send(messenger.Missive{Type: messenger.ConnectionUp, Conn: id})
	} else {
		t.messenger.Send(messenger.Missive{Type: messenger.ConnectionDown, Conn: id})
	}
}

// Snapshot returns a stable copy of all connection entries, for use by
// management introspection (mgmt.Controller) where callers must not
// observe table mutations mid-iteration.
func (t *ConnTable) Snapshot() []*ConnEntry {
	out := make([]*ConnEntry, 0, len(t.byID))
	for _, e := range t.byID {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// Len returns the number of live connections.
func (t *ConnTable) Len() int {
	return len(t.byID)
}
