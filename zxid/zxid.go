// Package zxid implements the 128-bit composite transaction identifier
// used to totally order transactions in the replicated log.
package zxid

import (
	"encoding/binary"
	"fmt"
)

// Size is the fixed serialized width of a Zxid, in bytes.
const Size = 16

// Zxid is a (epoch, xid) pair. Transactions are totally ordered
// lexicographically on (epoch, xid).
type Zxid struct {
	Epoch int64
	Xid   int64
}

// NotExist is the sentinel identifier that compares strictly less
// than every real Zxid. It represents "no transaction has been seen".
var NotExist = Zxid{Epoch: -1, Xid: -1}

// New returns the Zxid for the given epoch and xid.
func New(epoch, xid int64) Zxid {
	return Zxid{Epoch: epoch, Xid: xid}
}

// Compare returns -1, 0 or 1 as z is less than, equal to, or
// greater than other, using lexicographic order on (Epoch, Xid).
func (z Zxid) Compare(other Zxid) int {
	switch {
	case z.Epoch < other.Epoch:
		return -1
	case z.Epoch > other.Epoch:
		return 1
	case z.Xid < other.Xid:
		return -1
	case z.Xid > other.Xid:
		return 1
	default:
		return 0
	}
}

// Less reports whether z sorts before other.
func (z Zxid) Less(other Zxid) bool { return z.Compare(other) < 0 }

// LessOrEqual reports whether z sorts before or equal to other.
func (z Zxid) LessOrEqual(other Zxid) bool { return z.Compare(other) <= 0 }

// Greater reports whether z sorts after other.
func (z Zxid) Greater(other Zxid) bool { return z.Compare(other) > 0 }

// GreaterOrEqual reports whether z sorts after or equal to other.
func (z Zxid) GreaterOrEqual(other Zxid) bool { return z.Compare(other) >= 0 }

// Equal reports whether z and other identify the same transaction.
func (z Zxid) Equal(other Zxid) bool { return z.Compare(other) == 0 }

// Prev returns the Zxid immediately preceding z within the same epoch.
// Used by the COP safety cap, which must express "one before the
// reconfiguration transaction".
func (z Zxid) Prev() Zxid {
	return Zxid{Epoch: z.Epoch, Xid: z.Xid - 1}
}

// String returns "(epoch, xid)".
func (z Zxid) String() string {
	return fmt.Sprintf("(%d, %d)", z.Epoch, z.Xid)
}

// Encode writes the big-endian, fixed-width (16 byte) encoding of z into b.
// b must have length >= Size.
func Encode(z Zxid, b []byte) {
	binary.BigEndian.PutUint64(b[0:8], uint64(z.Epoch))
	binary.BigEndian.PutUint64(b[8:16], uint64(z.Xid))
}

// Decode reads a Zxid from the first Size bytes of b.
func Decode(b []byte) Zxid {
	return Zxid{
		Epoch: int64(binary.BigEndian.Uint64(b[0:8])),
		Xid:   int64(binary.BigEndian.Uint64(b[8:16])),
	}
}

// Slice implements sort.Interface for a slice of Zxid, ascending.
//
// (etcd raft.raft.uint64Slice, generalized from a single uint64 field
// to the (epoch, xid) pair)
type Slice []Zxid

func (s Slice) Len() int           { return len(s) }
func (s Slice) Less(i, j int) bool { return s[i].Less(s[j]) }
func (s Slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
