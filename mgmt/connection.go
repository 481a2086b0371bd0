package mgmt

import (
	"fmt"
	"net"

	"github.com/go-icn/fwd/core"
	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/face"
)

// AddListener opens a listening socket of the given type and adopts
// every connection it accepts, wiring each one's receive loop into the
// dispatcher the same way a single dialed connection is adopted.
// A second call for a local address that already has a listener opens
// nothing and returns defn.ErrDuplicateListener.
func (m *Manager) AddListener(typ defn.ConnType, localAddr string) error {
	m.mu.Lock()
	_, exists := m.listeners[localAddr]
	m.mu.Unlock()
	if exists {
		return defn.ErrDuplicateListener
	}
	switch typ {
	case defn.ConnTypeTCP:
		ln, err := face.ListenTCP(localAddr)
		if err != nil {
			return err
		}
		m.trackListener(localAddr, ln)
		go ln.Run(func(conn net.Conn) { m.adoptTCP(conn) })
		return nil
	case defn.ConnTypeUnix:
		ln, err := face.ListenUnix(localAddr)
		if err != nil {
			return err
		}
		m.trackListener(localAddr, ln)
		go ln.Run(func(conn net.Conn) { m.adoptUnix(conn) })
		return nil
	default:
		return fmt.Errorf("mgmt: add_listener: unsupported connection type %s", typ)
	}
}

func (m *Manager) trackListener(key string, l listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[key] = l
}

// RemoveListener stops accepting on a previously added listener.
func (m *Manager) RemoveListener(localAddr string) error {
	m.mu.Lock()
	l, ok := m.listeners[localAddr]
	if ok {
		delete(m.listeners, localAddr)
	}
	m.mu.Unlock()
	if !ok {
		return defn.ErrUnknownConnection
	}
	l.Close()
	return nil
}

func (m *Manager) adoptTCP(conn net.Conn) {
	id := m.d.Conns.ReserveID()
	t := face.AcceptTCP(id, conn)
	m.d.Adopt(id, defn.ConnTypeTCP, t)
	core.Log.Info(core.Named("mgmt"), "accepted connection", "conn", id, "remote", conn.RemoteAddr())
}

func (m *Manager) adoptUnix(conn net.Conn) {
	id := m.d.Conns.ReserveID()
	t := face.AcceptUnix(id, conn)
	m.d.Adopt(id, defn.ConnTypeUnix, t)
	core.Log.Info(core.Named("mgmt"), "accepted connection", "conn", id, "remote", conn.RemoteAddr())
}

// AddConnection opens an outbound connection of the given type and
// registers it with the dispatcher, returning the ConnID it was
// assigned so a caller can immediately AddRoute against it.
func (m *Manager) AddConnection(typ defn.ConnType, localAddr, remoteAddr string) (defn.ConnID, error) {
	id := m.d.Conns.ReserveID()
	switch typ {
	case defn.ConnTypeTCP:
		t, err := face.DialTCP(id, remoteAddr)
		if err != nil {
			return 0, err
		}
		m.d.Adopt(id, defn.ConnTypeTCP, t)
	case defn.ConnTypeUnix:
		t, err := face.DialUnix(id, remoteAddr)
		if err != nil {
			return 0, err
		}
		m.d.Adopt(id, defn.ConnTypeUnix, t)
	case defn.ConnTypeUDP:
		t, err := face.DialUnicastUDP(id, localAddr, remoteAddr)
		if err != nil {
			return 0, err
		}
		m.d.Adopt(id, defn.ConnTypeUDP, t)
	default:
		return 0, fmt.Errorf("mgmt: add_connection: unsupported connection type %s", typ)
	}
	return id, nil
}

// RemoveConnection closes a connection by id.
func (m *Manager) RemoveConnection(id defn.ConnID) error {
	return m.d.RemoveConnection(id)
}
