package table

import (
	"testing"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/messenger"
	"github.com/stretchr/testify/assert"
)

func TestConnTableAddAssignsIDsAndRaisesCreateAndUp(t *testing.T) {
	m := messenger.New(8)
	var events []messenger.Missive
	m.Register(func(miss messenger.Missive) { events = append(events, miss) })

	ct := NewConnTable(m)
	e := ct.Add(defn.ConnTypeUDP, "127.0.0.1:9000", "127.0.0.1:9001", true, false)
	assert.Equal(t, defn.ConnID(1), e.ID)

	m.Drain()
	assert.Equal(t, []messenger.Missive{
		{Type: messenger.ConnectionCreate, Conn: e.ID},
		{Type: messenger.ConnectionUp, Conn: e.ID},
	}, events)
}

func TestConnTableFindByAddressPair(t *testing.T) {
	ct := NewConnTable(messenger.New(8))
	e := ct.Add(defn.ConnTypeUDP, "127.0.0.1:9000", "10.0.0.1:5000", true, false)
	assert.Equal(t, e, ct.FindByAddressPair("127.0.0.1:9000", "10.0.0.1:5000"))
	assert.Nil(t, ct.FindByAddressPair("127.0.0.1:9000", "10.0.0.1:9999"))
}

func TestConnTableRemoveByIDRaisesClosedAndPanicsOnUnknown(t *testing.T) {
	m := messenger.New(8)
	var events []messenger.Missive
	m.Register(func(miss messenger.Missive) { events = append(events, miss) })
	ct := NewConnTable(m)
	e := ct.Add(defn.ConnTypeTCP, "a", "b", true, false)

	ct.RemoveByID(e.ID)
	assert.Nil(t, ct.FindByID(e.ID))
	m.Drain()
	assert.Contains(t, events, messenger.Missive{Type: messenger.ConnectionClosed, Conn: e.ID})

	assert.Panics(t, func() { ct.RemoveByID(e.ID) })
}

func TestConnTableSetUpOnlyRaisesOnTransition(t *testing.T) {
	m := messenger.New(8)
	ct := NewConnTable(m)
	e := ct.Add(defn.ConnTypeTCP, "a", "b", false, false)
	m.Drain()

	var events []messenger.Missive
	m.Register(func(miss messenger.Missive) { events = append(events, miss) })

	ct.SetUp(e.ID, false) // no-op, already down
	ct.SetUp(e.ID, true)
	ct.SetUp(e.ID, true) // no-op, already up
	m.Drain()

	assert.Equal(t, []messenger.Missive{{Type: messenger.ConnectionUp, Conn: e.ID}}, events)
}
