package messenger

import (
	"testing"

	"github.com/go-icn/fwd/defn"
	"github.com/stretchr/testify/assert"
)

func TestSendIsDeferredUntilDrain(t *testing.T) {
	m := New(8)
	var got []Missive
	m.Register(func(miss Missive) { got = append(got, miss) })

	m.Send(Missive{Type: ConnectionUp, Conn: defn.ConnID(1)})
	assert.Empty(t, got)

	m.Drain()
	assert.Equal(t, []Missive{{Type: ConnectionUp, Conn: defn.ConnID(1)}}, got)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	m := New(8)
	var count int
	cancel := m.Register(func(Missive) { count++ })

	m.Send(Missive{Type: ConnectionClosed, Conn: defn.ConnID(1)})
	m.Drain()
	assert.Equal(t, 1, count)

	cancel()
	m.Send(Missive{Type: ConnectionClosed, Conn: defn.ConnID(1)})
	m.Drain()
	assert.Equal(t, 1, count)
}

func TestFullQueueDropsRatherThanBlocks(t *testing.T) {
	m := New(1)
	m.Send(Missive{Type: ConnectionUp, Conn: defn.ConnID(1)})
	m.Send(Missive{Type: ConnectionUp, Conn: defn.ConnID(2)}) // dropped, queue depth 1

	var got []Missive
	m.Register(func(miss Missive) { got = append(got, miss) })
	m.Drain()
	assert.Len(t, got, 1)
}
