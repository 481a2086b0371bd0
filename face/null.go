package face

import (
	"fmt"

	"github.com/go-icn/fwd/defn"
)

// NullTransport discards every frame sent to it and never delivers any;
// used as a placeholder nexthop and in tests (YaNFD's NullTransport).
type NullTransport struct {
	transportBase
	closeCh chan struct{}
}

// NewNullTransport creates a NullTransport already marked up.
func NewNullTransport(id defn.ConnID) *NullTransport {
	t := &NullTransport{closeCh: make(chan struct{})}
	t.init(id, true, "null", "null")
	t.running.Store(true)
	return t
}

func (t *NullTransport) String() string {
	return fmt.Sprintf("null-transport(conn=%d)", t.conn)
}

func (t *NullTransport) Send(frame []byte) error {
	if !t.running.Load() {
		return defn.ErrFaceDown
	}
	t.nOutBytes.Add(uint64(len(frame)))
	return nil
}

func (t *NullTransport) SendProbe(frame []byte) error { return t.Send(frame) }

// RunReceive blocks until Close is called; a null face never has
// anything to submit.
func (t *NullTransport) RunReceive(_ Submit) {
	<-t.closeCh
}

func (t *NullTransport) Close() {
	if t.running.Swap(false) {
		close(t.closeCh)
	}
}
