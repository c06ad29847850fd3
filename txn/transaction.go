// Package txn defines the transaction record stored in the log.
package txn

import "github.com/gyuho/zab/zxid"

// Transaction is an immutable, totally-ordered unit of replicated state.
// It is opaque to the log: Type and Body are interpreted by the caller.
type Transaction struct {
	Zxid zxid.Zxid
	Type int32
	Body []byte
}

// New returns a Transaction. Body is not copied; callers must not
// mutate it after passing it in.
func New(zx zxid.Zxid, txnType int32, body []byte) Transaction {
	return Transaction{Zxid: zx, Type: txnType, Body: body}
}
