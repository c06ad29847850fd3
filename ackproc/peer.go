package ackproc

import (
	"sync"

	"github.com/gyuho/zab/zxid"
)

// PeerHandler is the external, per-peer collaborator the processor
// reads from and writes to. It is owned and driven by the network
// layer (not specified here); the processor only ever holds a
// reference to it.
type PeerHandler interface {
	ServerID() string

	// LastAckedZxid returns the peer's most recently acknowledged
	// zxid, or nil if the peer has never ACKed.
	LastAckedZxid() *zxid.Zxid
	SetLastAckedZxid(zxid.Zxid)

	// QueueMessage hands msg to the peer's outbound path. It may
	// block; failures are the peer handler's own responsibility.
	QueueMessage(Message)
}

// PeerRegistry is quorum_set_original: the canonical map of every
// known peer, mutated by an external orchestrator as peers connect
// and disconnect. AckProcessor only ever reads from it.
//
// (gyuho-db rafthttp/10_transport.go Transport.Get: RWMutex-guarded
// map read under a peer-lookup interface)
type PeerRegistry struct {
	mu    sync.RWMutex
	peers map[string]PeerHandler
}

// NewPeerRegistry returns an empty, ready-to-use PeerRegistry.
func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{peers: make(map[string]PeerHandler)}
}

// Get looks up a peer by server ID.
func (r *PeerRegistry) Get(serverID string) (PeerHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ph, ok := r.peers[serverID]
	return ph, ok
}

// Set installs or replaces the handler for serverID.
func (r *PeerRegistry) Set(serverID string, ph PeerHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[serverID] = ph
}

// Delete removes serverID from the registry.
func (r *PeerRegistry) Delete(serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, serverID)
}

// Snapshot returns a shallow copy of the registry's current contents.
func (r *PeerRegistry) Snapshot() map[string]PeerHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]PeerHandler, len(r.peers))
	for id, ph := range r.peers {
		out[id] = ph
	}
	return out
}
