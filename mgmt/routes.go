package mgmt

import (
	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/name"
)

// AddRoute installs or updates a FIB nexthop, creating the entry (and
// its strategy instance) on first use.
func (m *Manager) AddRoute(prefix name.Name, conn defn.ConnID, cost int, strategyName string) error {
	_, err := m.d.Proc.Fib.AddOrUpdate(prefix, conn, cost, strategyName)
	return err
}

// RemoveRoute removes a single nexthop from prefix's FIB entry.
func (m *Manager) RemoveRoute(prefix name.Name, conn defn.ConnID) error {
	m.d.Proc.Fib.Remove(prefix, conn)
	return nil
}

// SetCsCapacity resizes the Content Store, evicting down to the new
// capacity if it shrank.
func (m *Manager) SetCsCapacity(capacity int) error {
	m.d.Proc.Cs.SetCapacity(capacity)
	return nil
}

// SetStrategy changes the forwarding strategy used for a FIB entry.
func (m *Manager) SetStrategy(prefix name.Name, strategyName string) error {
	return m.d.Proc.Fib.SetStrategy(prefix, strategyName)
}

var _ Controller = (*Manager)(nil)
