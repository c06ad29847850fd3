package txnlog

import (
	"bufio"
	"io"
	"os"

	"github.com/gyuho/zab/pkg/fileutil"
	"github.com/gyuho/zab/txn"
)

// Iterator reads transactions from a log file in order, starting from
// wherever it was positioned at open time. It sees a snapshot of the
// file as of open: it does not observe writes made through the log's
// own append handle afterward. This is acceptable because callers
// only use an Iterator during recovery or truncation, when appends
// are quiesced.
type Iterator struct {
	f *os.File
	r *bufio.Reader

	fileLen int64

	position         int64
	lastRecordLength int64
	backwardArmed    bool
}

func newIterator(fpath string) (*Iterator, error) {
	f, err := fileutil.OpenToRead(fpath)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Iterator{
		f:       f,
		r:       bufio.NewReader(f),
		fileLen: fi.Size(),
	}, nil
}

// HasNext reports whether the iterator has not yet reached the end of
// the file, as measured at iterator-open time.
func (it *Iterator) HasNext() bool {
	return it.position < it.fileLen
}

// Next decodes one record, advances the iterator past it, and returns
// the decoded transaction. It fails with ErrUnexpectedEOF on a partial
// trailing record.
func (it *Iterator) Next() (txn.Transaction, error) {
	if !it.HasNext() {
		return txn.Transaction{}, io.EOF
	}

	tx, n, err := decodeRecord(it.r)
	if err != nil {
		return txn.Transaction{}, err
	}

	it.lastRecordLength = int64(n)
	it.position += int64(n)
	it.backwardArmed = true
	return tx, nil
}

// Backward steps the iterator back by the length of the record most
// recently returned by Next, so that the next call to Next returns it
// again. It may only be called once per Next; a second call without an
// intervening Next fails with ErrBackwardTwice.
func (it *Iterator) Backward() error {
	if !it.backwardArmed {
		return ErrBackwardTwice
	}
	it.backwardArmed = false

	it.position -= it.lastRecordLength
	if _, err := it.f.Seek(it.position, io.SeekStart); err != nil {
		return err
	}
	it.r.Reset(it.f)
	it.lastRecordLength = 0
	return nil
}

// seek jumps the iterator directly to offset, skipping the records in
// between. offset must be the start of a record, e.g. one returned by
// a checkpoint index; it is never exposed outside the package.
func (it *Iterator) seek(offset int64) error {
	if _, err := it.f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	it.r.Reset(it.f)
	it.position = offset
	it.lastRecordLength = 0
	it.backwardArmed = false
	return nil
}

// Close releases the iterator's read handle.
func (it *Iterator) Close() error {
	return it.f.Close()
}
