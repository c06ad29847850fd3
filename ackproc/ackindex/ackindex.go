// Package ackindex maintains an ordered multiset of last-acked zxids,
// one per ensemble member, and answers "what is the k-th greatest
// value" in O(log n) instead of the O(n log n) full sort a naive
// implementation would redo on every ack.
//
// (gyuho-db mvcc/01_tree_index.go: an ordered index backed by
// github.com/google/btree, generalized from a keyIndex-by-key tree to
// a zxid-by-count multiset)
package ackindex

import (
	"sync"

	"github.com/google/btree"

	"github.com/gyuho/zab/zxid"
)

const btreeDegree = 32

// item is a single distinct zxid value in the multiset, with the
// number of members currently holding it as their last-acked zxid.
type item struct {
	z     zxid.Zxid
	count int
}

func (a *item) Less(b btree.Item) bool {
	return a.z.Less(b.(*item).z)
}

// Index is an ordered multiset of zxid values, one entry per ensemble
// member's last-acked zxid, supporting an O(log n) query for the
// k-th greatest value, counting duplicates. Index is safe for
// concurrent use.
type Index struct {
	mu   sync.RWMutex
	tree *btree.BTree
	// current holds each member's current value, so Update can find
	// and retire its previous contribution to the multiset.
	current map[string]zxid.Zxid
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		tree:    btree.New(btreeDegree),
		current: make(map[string]zxid.Zxid),
	}
}

// Update records that member's last-acked zxid is now z, replacing
// whatever value it held before. Calling Update with the same z the
// member already holds is a no-op.
func (idx *Index) Update(member string, z zxid.Zxid) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if prev, ok := idx.current[member]; ok {
		if prev.Equal(z) {
			return
		}
		idx.decrement(prev)
	}
	idx.current[member] = z
	idx.increment(z)
}

// Remove drops member from the multiset entirely, e.g. because it
// disconnected or was removed from the ensemble.
func (idx *Index) Remove(member string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	prev, ok := idx.current[member]
	if !ok {
		return
	}
	delete(idx.current, member)
	idx.decrement(prev)
}

func (idx *Index) increment(z zxid.Zxid) {
	key := &item{z: z}
	if existing := idx.tree.Get(key); existing != nil {
		existing.(*item).count++
		return
	}
	key.count = 1
	idx.tree.ReplaceOrInsert(key)
}

func (idx *Index) decrement(z zxid.Zxid) {
	key := &item{z: z}
	existing := idx.tree.Get(key)
	if existing == nil {
		return
	}
	it := existing.(*item)
	it.count--
	if it.count <= 0 {
		idx.tree.Delete(key)
	}
}

// Nth returns the k-th greatest zxid in the multiset (k=1 is
// the maximum), and true if at least k members are present. Members
// sharing the same zxid each count individually toward k.
//
// (etcd raft.raft.leaderMaybeCommitWithQuorumMatchIndex: sorts all
// match indexes descending and takes the quorum-th; Nth answers the
// same question without a full sort on every call)
func (idx *Index) Nth(k int) (zxid.Zxid, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if k <= 0 {
		return zxid.Zxid{}, false
	}

	remaining := k
	var found zxid.Zxid
	ok := false
	idx.tree.Descend(func(i btree.Item) bool {
		it := i.(*item)
		remaining -= it.count
		if remaining <= 0 {
			found = it.z
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// Len returns the number of members currently tracked.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.current)
}
