package txnlog

import "errors"

var (
	// ErrOutOfOrder is returned by Append when the transaction's zxid
	// is not strictly greater than the log's last seen zxid.
	ErrOutOfOrder = errors.New("txnlog: transaction zxid is not greater than last seen zxid")

	// ErrUnexpectedEOF is returned by decode and iteration when the
	// reader hits EOF in the middle of a record. It signals a partial
	// trailing record that Truncate can repair.
	ErrUnexpectedEOF = errors.New("txnlog: unexpected EOF reading record")

	// ErrMalformed is returned when a record header describes an
	// impossible record, such as a negative body length.
	ErrMalformed = errors.New("txnlog: malformed record header")

	// ErrUnsupported is returned by Trim, which is reserved for a
	// future compaction design.
	ErrUnsupported = errors.New("txnlog: operation not supported")

	// ErrCorrupt is returned by Open when recovering the latest zxid
	// runs into a partial trailing record.
	ErrCorrupt = errors.New("txnlog: log file has a partial trailing record")

	// ErrBackwardTwice is returned by Iterator.Backward when called
	// twice in a row without an intervening Next.
	ErrBackwardTwice = errors.New("txnlog: backward called without a preceding next")
)
