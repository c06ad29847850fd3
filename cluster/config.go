// Package cluster tracks the membership of a ZAB ensemble: the set of
// server IDs participating in quorum, each Configuration stamped with
// the zxid of the reconfiguration that produced it.
package cluster

import (
	"sort"

	"github.com/gyuho/zab/zxid"
)

// Configuration is one version of an ensemble's membership. Version is
// the zxid of the reconfiguration transaction that produced this
// membership; the initial static configuration uses zxid.NotExist.
//
// (etcd raft.raft.quorum, generalized from a single implicit
// membership to an explicit versioned Configuration)
type Configuration struct {
	Version zxid.Zxid
	Members map[string]struct{}
}

// New builds a Configuration from a set of server IDs.
func New(version zxid.Zxid, members ...string) *Configuration {
	c := &Configuration{
		Version: version,
		Members: make(map[string]struct{}, len(members)),
	}
	for _, m := range members {
		c.Members[m] = struct{}{}
	}
	return c
}

// Contains reports whether id is a member of this configuration.
func (c *Configuration) Contains(id string) bool {
	_, ok := c.Members[id]
	return ok
}

// Size returns the number of members.
func (c *Configuration) Size() int {
	return len(c.Members)
}

// QuorumSize returns floor(n/2)+1 for this configuration's member
// count: the minimum number of acknowledging members needed to commit
// a transaction.
//
// (etcd raft.raft.quorum: len(allProgresses)/2 + 1)
func (c *Configuration) QuorumSize() int {
	return c.Size()/2 + 1
}

// IDs returns the member IDs in sorted order, for deterministic
// iteration.
func (c *Configuration) IDs() []string {
	ids := make([]string, 0, len(c.Members))
	for id := range c.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of c stamped with a new version.
func (c *Configuration) Clone(version zxid.Zxid) *Configuration {
	nc := &Configuration{
		Version: version,
		Members: make(map[string]struct{}, len(c.Members)),
	}
	for m := range c.Members {
		nc.Members[m] = struct{}{}
	}
	return nc
}

// WithAddedPeer returns a new Configuration equal to c plus id,
// stamped with version. c is not modified.
func (c *Configuration) WithAddedPeer(version zxid.Zxid, id string) *Configuration {
	nc := c.Clone(version)
	nc.Members[id] = struct{}{}
	return nc
}

// WithRemovedPeer returns a new Configuration equal to c minus id,
// stamped with version. c is not modified.
func (c *Configuration) WithRemovedPeer(version zxid.Zxid, id string) *Configuration {
	nc := c.Clone(version)
	delete(nc.Members, id)
	return nc
}
