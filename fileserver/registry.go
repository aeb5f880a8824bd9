package fileserver

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// Peer is one registered client connection.
type Peer struct {
	ID   string
	Addr string
	conn net.Conn
}

// Registry tracks live connections. It is only mutated on connect and
// disconnect, which may race across accepted connections.
type Registry struct {
	mu    sync.Mutex
	peers map[string]*Peer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]*Peer)}
}

// Add registers conn under a fresh session id.
func (r *Registry) Add(conn net.Conn) *Peer {
	peer := &Peer{
		ID:   uuid.NewString(),
		Addr: conn.RemoteAddr().String(),
		conn: conn,
	}

	r.mu.Lock()
	r.peers[peer.ID] = peer
	r.mu.Unlock()
	return peer
}

// Remove drops the peer and returns how many remain.
func (r *Registry) Remove(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
	return len(r.peers)
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// Each calls fn for every peer registered at the time of the call. fn runs
// without the registry lock held.
func (r *Registry) Each(fn func(*Peer)) {
	r.mu.Lock()
	peers := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p)
	}
	r.mu.Unlock()

	for _, p := range peers {
		fn(p)
	}
}

// CloseAll closes every registered connection.
func (r *Registry) CloseAll() {
	r.Each(func(p *Peer) {
		p.conn.Close()
	})
}
