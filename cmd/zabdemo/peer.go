package main

import (
	"sync"

	"github.com/gyuho/zab/ackproc"
	"github.com/gyuho/zab/zxid"
)

// loggingPeer is a stand-in PeerHandler for a peer that would, in a
// real deployment, live behind a network connection (out of scope
// here). It just records the last acked zxid and logs every COMMIT it
// is handed.
type loggingPeer struct {
	id string

	mu      sync.Mutex
	lastAck *zxid.Zxid
}

func newLoggingPeer(id string) *loggingPeer {
	return &loggingPeer{id: id}
}

func (p *loggingPeer) ServerID() string { return p.id }

func (p *loggingPeer) LastAckedZxid() *zxid.Zxid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAck
}

func (p *loggingPeer) SetLastAckedZxid(z zxid.Zxid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastAck = &z
}

func (p *loggingPeer) QueueMessage(m ackproc.Message) {
	if m.Type == ackproc.COMMIT {
		logger.Infof("peer %s notified of COMMIT %v", p.id, m.Zxid)
	}
}
