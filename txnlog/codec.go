package txnlog

import (
	"encoding/binary"
	"io"

	"github.com/gyuho/zab/txn"
	"github.com/gyuho/zab/zxid"
)

// headerN is the fixed-width record prefix: epoch(8) + xid(8) + type(4) + bodyLen(4).
const headerN = zxid.Size + 4 + 4

// encodeRecord writes the bit-exact on-disk representation of tx to w:
//
//	epoch:i64 xid:i64 type:i32 body_len:i32 body:body_len bytes
//
// big-endian, no padding, no checksum.
func encodeRecord(w io.Writer, tx txn.Transaction) (recordN int, err error) {
	buf := make([]byte, headerN)
	binary.BigEndian.PutUint64(buf[0:8], uint64(tx.Zxid.Epoch))
	binary.BigEndian.PutUint64(buf[8:16], uint64(tx.Zxid.Xid))
	binary.BigEndian.PutUint32(buf[16:20], uint32(tx.Type))
	binary.BigEndian.PutUint32(buf[20:24], uint32(len(tx.Body)))

	if _, err = w.Write(buf); err != nil {
		return 0, err
	}
	if len(tx.Body) > 0 {
		if _, err = w.Write(tx.Body); err != nil {
			return 0, err
		}
	}
	return headerN + len(tx.Body), nil
}

// decodeRecord reads one record from r. recordN is the total number of
// bytes consumed (headerN + body length).
//
// A short read of the fixed header, or of the body, is reported as
// ErrUnexpectedEOF, so that Truncate can repair a partial tail. A
// negative body length in the header is reported as ErrMalformed.
func decodeRecord(r io.Reader) (tx txn.Transaction, recordN int, err error) {
	buf := make([]byte, headerN)
	if _, err = io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			return txn.Transaction{}, 0, io.EOF
		}
		return txn.Transaction{}, 0, ErrUnexpectedEOF
	}

	epoch := int64(binary.BigEndian.Uint64(buf[0:8]))
	xid := int64(binary.BigEndian.Uint64(buf[8:16]))
	txnType := int32(binary.BigEndian.Uint32(buf[16:20]))
	bodyLen := int32(binary.BigEndian.Uint32(buf[20:24]))
	if bodyLen < 0 {
		return txn.Transaction{}, 0, ErrMalformed
	}

	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err = io.ReadFull(r, body); err != nil {
			return txn.Transaction{}, 0, ErrUnexpectedEOF
		}
	}

	tx = txn.New(zxid.New(epoch, xid), txnType, body)
	return tx, headerN + int(bodyLen), nil
}
