// Package checkpoint maintains a sparse, durable zxid -> file-offset
// index for a TransactionLog, backed by boltdb. It never changes the
// meaning of a lookup: it only lets a caller start its linear scan
// closer to the target zxid instead of at byte 0 of a potentially
// large log file.
package checkpoint

import (
	"encoding/binary"
	"time"

	"github.com/boltdb/bolt"

	"github.com/gyuho/zab/zxid"
)

var bucketName = []byte("checkpoints")

// Index is a durable, ordered map from zxid to the file offset of the
// record with that zxid.
type Index struct {
	db *bolt.DB
}

// Open opens (or creates) the boltdb file at path.
//
// (etcd mvcc/backend.backend, minus the batching layer: checkpoints
// are written one at a time and are strictly an optimization, so
// there is nothing to batch for correctness)
func Open(path string) (*Index, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func encodeKey(z zxid.Zxid) []byte {
	b := make([]byte, zxid.Size)
	zxid.Encode(z, b)
	return b
}

func encodeOffset(offset int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(offset))
	return b
}

// Put records that the record with zxid z begins at offset.
func (idx *Index) Put(z zxid.Zxid, offset int64) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(encodeKey(z), encodeOffset(offset))
	})
}

// Nearest returns the offset of the checkpoint with the greatest zxid
// less than or equal to target, and true if one exists. Because keys
// are the big-endian encoding of (epoch, xid), bolt's byte-ordered
// cursor also orders them by Zxid.Compare.
func (idx *Index) Nearest(target zxid.Zxid) (offset int64, found bool, err error) {
	if target.Equal(zxid.NotExist) {
		// nothing sorts before NotExist; the caller must scan from
		// the start of the file.
		return 0, false, nil
	}

	err = idx.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		k, v := c.Seek(encodeKey(target))

		if k == nil {
			// past the last checkpoint; use it if one exists.
			k, v = c.Last()
			if k == nil {
				return nil
			}
			offset = int64(binary.BigEndian.Uint64(v))
			found = true
			return nil
		}

		if zxid.Decode(k).Equal(target) {
			offset = int64(binary.BigEndian.Uint64(v))
			found = true
			return nil
		}

		// k is the first checkpoint >= target; step back one to get
		// the greatest checkpoint <= target.
		k, v = c.Prev()
		if k == nil {
			return nil
		}
		offset = int64(binary.BigEndian.Uint64(v))
		found = true
		return nil
	})
	return offset, found, err
}

// DeleteAfter removes every checkpoint with zxid greater than target.
// Called after Truncate, so the index never points past the current
// end of the log file.
func (idx *Index) DeleteAfter(target zxid.Zxid) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		c := b.Cursor()

		var stale [][]byte
		k, _ := c.Seek(encodeKey(target))
		if target.Equal(zxid.NotExist) {
			// NotExist encodes as all 0xff bytes, which sorts after
			// every real key: every checkpoint is stale.
			k, _ = c.First()
		}
		for ; k != nil; k, _ = c.Next() {
			if zxid.Decode(k).Greater(target) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying boltdb file.
func (idx *Index) Close() error {
	return idx.db.Close()
}
