package backendtest

import (
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// peer is one connected client.
type peer struct {
	conn     net.Conn
	reader   io.Reader
	writeMu  sync.Mutex
	username string
}

func (p *peer) Read(b []byte) (int, error) {
	return p.reader.Read(b)
}

// Write serializes frame writes with control replies from the read loop.
func (p *peer) Write(b []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.Write(b)
}

func (p *peer) send(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return wsutil.WriteServerText(p.conn, data)
}

func (p *peer) close(code ws.StatusCode) {
	if code != 0 {
		p.writeMu.Lock()
		_ = wsutil.WriteServerMessage(p.conn, ws.OpClose, ws.NewCloseFrameBody(code, ""))
		p.writeMu.Unlock()
	}
	_ = p.conn.Close()
}

// hub tracks connected peers and fans frames out to them.
type hub struct {
	peers map[*peer]bool
	mu    sync.RWMutex
}

func newHub() *hub {
	return &hub{peers: make(map[*peer]bool)}
}

func (h *hub) register(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p] = true
}

func (h *hub) unregister(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, p)
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *hub) snapshot() []*peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		out = append(out, p)
	}
	return out
}

// broadcast sends data to every peer, the sender included.
func (h *hub) broadcast(data []byte) {
	for _, p := range h.snapshot() {
		_ = p.send(data)
	}
}
