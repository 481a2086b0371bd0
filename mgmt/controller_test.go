package mgmt

import (
	"testing"
	"time"

	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/dispatch"
	"github.com/go-icn/fwd/messenger"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*Manager, *dispatch.Dispatcher) {
	t.Helper()
	msgr := messenger.New(16)
	conns := table.NewConnTable(msgr)
	pit := table.NewPit(4 * time.Second)
	fib := table.NewFib(func(strategyName string) (table.Strategy, error) {
		return nil, defn.ErrUnknownStrategy{Name: strategyName}
	})
	cs := table.NewContentStore(1)

	d := dispatch.New(conns, msgr)
	d.Proc = dispatch.NewProcessorFor(d, conns, pit, fib, cs, msgr)

	return New(d), d
}

func TestAddRouteRejectsUnknownStrategy(t *testing.T) {
	m, _ := newManager(t)
	prefix, err := name.FromURI("lci:/a")
	require.NoError(t, err)

	err = m.AddRoute(prefix, defn.ConnID(1), 1, "bogus")
	assert.Error(t, err)
}

func TestSetCsCapacityShrinksStore(t *testing.T) {
	m, d := newManager(t)
	n1, _ := name.FromURI("lci:/a/1")
	n2, _ := name.FromURI("lci:/a/2")

	now := time.Now()
	d.Proc.Cs.Insert(1, n1, nil, now.Add(time.Minute), []byte("one"))
	assert.Equal(t, 1, d.Proc.Cs.Size())

	require.NoError(t, m.SetCsCapacity(2))
	d.Proc.Cs.Insert(2, n2, nil, now.Add(time.Minute), []byte("two"))
	assert.Equal(t, 2, d.Proc.Cs.Size())

	require.NoError(t, m.SetCsCapacity(1))
	assert.Equal(t, 1, d.Proc.Cs.Size())
}

func TestRemoveListenerOfUnknownAddrFails(t *testing.T) {
	m, _ := newManager(t)
	err := m.RemoveListener("127.0.0.1:0")
	assert.ErrorIs(t, err, defn.ErrUnknownConnection)
}
