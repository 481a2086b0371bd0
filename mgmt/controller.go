// Package mgmt exposes the forwarder's external connection and routing
// API as plain Go method calls rather than a wire management protocol
// (FIBModule/RIBModule/StrategyChoiceModule/CSModule-style request
// handlers over NDN Interests) - since app-layer framing and a
// name-based routing protocol are both out of scope here, a
// configuration collaborator drives these methods directly instead of
// sending Control packets on the wire.
package mgmt

import (
	"sync"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/dispatch"
	"github.com/go-icn/fwd/name"
)

// Controller is the forwarder's connection and routing control surface,
// named after the operation set the external interface specifies:
// add_listener, add_connection, remove_connection, add_route,
// remove_route, set_cs_capacity, set_strategy.
type Controller interface {
	AddListener(typ defn.ConnType, localAddr string) error
	AddConnection(typ defn.ConnType, localAddr, remoteAddr string) (defn.ConnID, error)
	RemoveConnection(id defn.ConnID) error
	AddRoute(prefix name.Name, conn defn.ConnID, cost int, strategyName string) error
	RemoveRoute(prefix name.Name, conn defn.ConnID) error
	SetCsCapacity(capacity int) error
	SetStrategy(prefix name.Name, strategyName string) error
}

// listener is the subset of face.TCPListener/face.UnixListener that the
// manager needs to stop one on RemoveListener.
type listener interface {
	Close()
}

// Manager is the Controller implementation: a thin adapter from the
// external operation names onto *dispatch.Dispatcher (connection
// lifecycle) and its attached fwd.Processor's Fib/Cs (routing and cache
// sizing) - one object fronting every module, the same shape a wire
// management protocol's handler dispatcher would have.
type Manager struct {
	d *dispatch.Dispatcher

	mu        sync.Mutex
	listeners map[string]listener
}

// New creates a Manager driving d.
func New(d *dispatch.Dispatcher) *Manager {
	return &Manager{d: d, listeners: make(map[string]listener)}
}
