// Package ackproc implements the leader-side commit-decision loop of
// a ZAB-style ensemble: a single-consumer worker that folds ACK, JOIN,
// ACK_EPOCH, DISCONNECTED and REMOVE events into per-peer state,
// recomputes the commit point on every ACK, and drives single-step
// reconfiguration behind a change-of-peers safety barrier.
package ackproc

import (
	"sort"

	"github.com/gyuho/zab/cluster"
	"github.com/gyuho/zab/pkg/xlog"
	"github.com/gyuho/zab/zxid"
)

var logger = xlog.NewLogger("ackproc", xlog.INFO)

// SetLogger overrides the package-wide logger.
func SetLogger(l *xlog.Logger) { logger = l }

// sentinelServerID marks the "request of death" MessageTuple that
// tells the worker to stop after draining everything queued ahead of
// it. It is not a legal server ID an orchestrator would ever assign.
const sentinelServerID = "\x00ackproc-request-of-death"

// AckProcessor is the leader's commit-decision loop. Every field
// below is touched only by the worker goroutine started by Start;
// there is no internal locking because there is only one writer.
//
// (etcd raft.raft: allProgresses + quorum() + maybeCommit generalized
// from a fixed raft term into a ZAB-style versioned reconfiguration
// with a change-of-peers safety barrier)
type AckProcessor struct {
	quorumSetOriginal *PeerRegistry
	quorumSet         map[string]PeerHandler

	clusterConfig *cluster.Configuration
	pendingConfig *cluster.Configuration

	lastCommittedZxid zxid.Zxid

	inbox chan MessageTuple
	done  chan struct{}
	err   error
}

// New builds an AckProcessor rooted at initialConfig, with its working
// quorum_set seeded from whatever quorumSetOriginal already holds.
// quorumSetOriginal may keep growing after New returns; JOIN and
// ACK_EPOCH lift newly appeared entries into the working set as they
// arrive.
func New(quorumSetOriginal *PeerRegistry, initialConfig *cluster.Configuration) *AckProcessor {
	return &AckProcessor{
		quorumSetOriginal: quorumSetOriginal,
		quorumSet:         quorumSetOriginal.Snapshot(),
		clusterConfig:     initialConfig,
		lastCommittedZxid: zxid.NotExist,
		inbox:             make(chan MessageTuple),
	}
}

// Start launches the worker goroutine. Callers must not call Start
// twice on the same AckProcessor.
func (p *AckProcessor) Start() {
	p.done = make(chan struct{})
	go p.run()
}

// ProcessRequest enqueues an event. It blocks until the worker
// receives it, matching the blocking-queue model many producers share.
func (p *AckProcessor) ProcessRequest(mt MessageTuple) {
	p.inbox <- mt
}

// Shutdown enqueues the sentinel request-of-death behind whatever is
// already queued, waits for the worker to drain and exit, and
// surfaces any fatal error it terminated with.
func (p *AckProcessor) Shutdown() error {
	select {
	case p.inbox <- MessageTuple{ServerID: sentinelServerID}:
	case <-p.done:
		// the worker already exited on a fatal error
	}
	<-p.done
	return p.err
}

func (p *AckProcessor) run() {
	defer close(p.done)

	for mt := range p.inbox {
		if mt.ServerID == sentinelServerID {
			return
		}

		var err error
		switch mt.Message.Type {
		case ACK:
			p.handleAck(mt.ServerID, mt.Zxid)
			p.recomputeCommitPoint()
		case JOIN:
			err = p.handleJoin(mt.ServerID, mt.Zxid)
		case ACK_EPOCH:
			p.handleAckEpoch(mt.ServerID)
		case DISCONNECTED:
			p.handleDisconnected(mt.ServerID)
		case REMOVE:
			err = p.handleRemove(mt.ServerID, mt.Zxid)
		default:
			logger.Warningf("ignoring message of unknown type %v from %q", mt.Message.Type, mt.ServerID)
		}

		if err != nil {
			p.err = err
			return
		}
	}
}

func (p *AckProcessor) handleAck(serverID string, z zxid.Zxid) {
	ph, ok := p.quorumSet[serverID]
	if !ok {
		logger.Warningf("ACK from %q which is not in the working quorum set", serverID)
		return
	}
	logger.Debugf("%q last acked zxid now %v", serverID, z)
	ph.SetLastAckedZxid(z)
}

func (p *AckProcessor) handleJoin(newPeer string, version zxid.Zxid) error {
	if p.pendingConfig != nil {
		return ErrConcurrentReconfig
	}
	if ph, ok := p.quorumSetOriginal.Get(newPeer); ok {
		p.quorumSet[newPeer] = ph
	}
	p.pendingConfig = p.clusterConfig.WithAddedPeer(version, newPeer)
	return nil
}

func (p *AckProcessor) handleAckEpoch(peer string) {
	if ph, ok := p.quorumSetOriginal.Get(peer); ok {
		p.quorumSet[peer] = ph
	}
}

func (p *AckProcessor) handleDisconnected(peer string) {
	delete(p.quorumSet, peer)
}

func (p *AckProcessor) handleRemove(peer string, version zxid.Zxid) error {
	if p.pendingConfig != nil {
		return ErrConcurrentReconfig
	}
	p.pendingConfig = p.clusterConfig.WithRemovedPeer(version, peer)
	return nil
}

// recomputeCommitPoint implements the three-step commit-point
// procedure: try the pending configuration first, fall back to the
// current one while capping at the change-of-peers barrier, then
// broadcast if progress was made.
func (p *AckProcessor) recomputeCommitPoint() {
	var z zxid.Zxid

	if p.pendingConfig != nil {
		z = p.committedZxid(p.pendingConfig)
		if z.GreaterOrEqual(p.pendingConfig.Version) {
			p.clusterConfig = p.pendingConfig
			p.pendingConfig = nil
		} else {
			z = p.committedZxid(p.clusterConfig)
			if p.pendingConfig != nil && z.GreaterOrEqual(p.pendingConfig.Version) {
				z = p.pendingConfig.Version.Prev()
			}
		}
	} else {
		z = p.committedZxid(p.clusterConfig)
	}

	if z.Greater(p.lastCommittedZxid) {
		p.broadcastCommit(z)
		p.lastCommittedZxid = z
	}
}

// committedZxid returns the quorum_size-th largest last-acked zxid
// among cfg's members that are currently in the working quorum set
// and have ACKed at least once, or last_committed_zxid unchanged if
// fewer than quorum_size such values exist.
func (p *AckProcessor) committedZxid(cfg *cluster.Configuration) zxid.Zxid {
	acked := make(zxid.Slice, 0, len(p.quorumSet))
	for id, ph := range p.quorumSet {
		if !cfg.Contains(id) {
			continue
		}
		if z := ph.LastAckedZxid(); z != nil {
			acked = append(acked, *z)
		}
	}

	if len(acked) < cfg.QuorumSize() {
		return p.lastCommittedZxid
	}

	sort.Sort(acked)
	return acked[len(acked)-cfg.QuorumSize()]
}

func (p *AckProcessor) broadcastCommit(z zxid.Zxid) {
	for _, ph := range p.quorumSet {
		ph.QueueMessage(Message{Type: COMMIT, Zxid: z})
	}
}

// LastCommittedZxid returns the greatest zxid committed so far. Safe
// to call only after Shutdown, or from within the worker itself; it
// is exported for tests that drive the processor synchronously.
func (p *AckProcessor) LastCommittedZxid() zxid.Zxid {
	return p.lastCommittedZxid
}
