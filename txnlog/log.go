package txnlog

import (
	"bufio"
	"io"
	"os"

	"github.com/gyuho/zab/pkg/fileutil"
	"github.com/gyuho/zab/pkg/xlog"
	"github.com/gyuho/zab/txn"
	"github.com/gyuho/zab/txnlog/checkpoint"
	"github.com/gyuho/zab/zxid"
)

var logger = xlog.NewLogger("txnlog", xlog.INFO)

// SetLogger overrides the package-wide logger, e.g. to raise verbosity
// or redirect output in a host process.
func SetLogger(l *xlog.Logger) { logger = l }

// defaultCheckpointInterval is how many records are appended between
// two checkpoint entries, when a checkpoint index is enabled.
const defaultCheckpointInterval = 64

// Options configures Open.
type Options struct {
	// LastSeenZxid, if non-nil, is trusted as the log's last appended
	// zxid, skipping the recovery scan. Equivalent to the plain Open's
	// lastSeenZxid parameter.
	LastSeenZxid *zxid.Zxid

	// IndexPath, if non-empty, enables a boltdb-backed checkpoint
	// index at that path. GetIterator consults it to start its linear
	// scan closer to the target zxid instead of at the beginning of a
	// potentially large log file; Truncate scans from the beginning and
	// drops index entries past the new end of file. This is purely
	// an acceleration: behavior is identical with or without it.
	IndexPath string

	// CheckpointInterval overrides defaultCheckpointInterval.
	CheckpointInterval int
}

// TransactionLog is an append-only, crash-safe journal of totally
// ordered transactions. A TransactionLog owns a single log file and
// is single-writer: callers must serialize Append.
type TransactionLog struct {
	file *fileutil.LockedFile
	w    *bufio.Writer

	lastSeenZxid zxid.Zxid
	writeOffset  int64
	closed       bool

	idx                *checkpoint.Index
	checkpointInterval int
	appendsSinceIndex  int
}

// Open opens path in append mode, preserving any existing contents,
// and takes an exclusive advisory lock on it to enforce single-writer
// access. If lastSeenZxid is nil, the log is scanned once to its end
// to recover the last appended zxid; an empty file recovers to
// zxid.NotExist. A partial trailing record found during recovery is
// reported as ErrCorrupt: callers must repair with Truncate before
// appending.
func Open(path string, lastSeenZxid *zxid.Zxid) (*TransactionLog, error) {
	return OpenWithOptions(path, Options{LastSeenZxid: lastSeenZxid})
}

// OpenWithOptions is Open with the acceleration and tuning knobs in
// Options.
func OpenWithOptions(path string, opts Options) (*TransactionLog, error) {
	f, err := fileutil.OpenFileWithLock(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, fileutil.PrivateFileMode)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	l := &TransactionLog{
		file:               f,
		w:                  bufio.NewWriter(f),
		writeOffset:        fi.Size(),
		checkpointInterval: opts.CheckpointInterval,
	}
	if l.checkpointInterval <= 0 {
		l.checkpointInterval = defaultCheckpointInterval
	}

	if opts.IndexPath != "" {
		idx, err := checkpoint.Open(opts.IndexPath)
		if err != nil {
			f.Close()
			return nil, err
		}
		l.idx = idx
	}

	if opts.LastSeenZxid != nil {
		l.lastSeenZxid = *opts.LastSeenZxid
		return l, nil
	}

	last, err := recoverLastZxid(f.Name())
	if err != nil {
		l.Close()
		return nil, err
	}
	l.lastSeenZxid = last
	logger.Debugf("opened %q with lastSeenZxid %v", path, l.lastSeenZxid)
	return l, nil
}

// recoverLastZxid scans the log file at fpath to its end and returns
// the zxid of the last complete record, or zxid.NotExist if the file
// is empty. A partial trailing record is reported as ErrCorrupt.
func recoverLastZxid(fpath string) (zxid.Zxid, error) {
	f, err := fileutil.OpenToRead(fpath)
	if err != nil {
		return zxid.Zxid{}, err
	}
	defer f.Close()

	last := zxid.NotExist
	r := bufio.NewReader(f)
	for {
		tx, _, err := decodeRecord(r)
		switch err {
		case nil:
			last = tx.Zxid
		case io.EOF:
			return last, nil
		case ErrUnexpectedEOF:
			return zxid.Zxid{}, ErrCorrupt
		default:
			return zxid.Zxid{}, err
		}
	}
}

// Append encodes tx and writes it to the log. tx.Zxid must be strictly
// greater than the last appended zxid, otherwise ErrOutOfOrder is
// returned and the log is left unchanged. Append does not itself
// fsync; call Sync for durability. On I/O failure mid-record, the log
// is considered corrupt at the suffix and the writer is closed so no
// further writes can be attempted against the broken stream.
func (l *TransactionLog) Append(tx txn.Transaction) error {
	if l.closed {
		return io.ErrClosedPipe
	}
	if !tx.Zxid.Greater(l.lastSeenZxid) {
		return ErrOutOfOrder
	}

	recordOffset := l.writeOffset
	n, err := encodeRecord(l.w, tx)
	if err != nil {
		l.closed = true
		l.file.Close()
		return err
	}
	l.writeOffset += int64(n)
	l.lastSeenZxid = tx.Zxid

	if l.idx != nil {
		l.appendsSinceIndex++
		if l.appendsSinceIndex >= l.checkpointInterval {
			if err := l.idx.Put(tx.Zxid, recordOffset); err != nil {
				logger.Warningf("checkpoint Put(%v) failed: %v", tx.Zxid, err)
			}
			l.appendsSinceIndex = 0
		}
	}
	return nil
}

// Sync flushes user-space buffers and issues a data sync to the
// underlying device. After Sync returns nil, every record previously
// appended is durable.
func (l *TransactionLog) Sync() error {
	if err := l.w.Flush(); err != nil {
		return err
	}
	return fileutil.Fdatasync(l.file.File)
}

// GetLatestZxid returns the cached last seen zxid.
func (l *TransactionLog) GetLatestZxid() zxid.Zxid {
	return l.lastSeenZxid
}

// GetIterator returns an Iterator positioned so that the next record
// it produces has a zxid >= target, or is at EOF if no such record
// exists. The iterator opens its own read handle and does not observe
// appends made after it was created.
func (l *TransactionLog) GetIterator(target zxid.Zxid) (*Iterator, error) {
	// make records appended so far visible to the new read handle
	if err := l.w.Flush(); err != nil {
		return nil, err
	}
	it, err := newIterator(l.file.Name())
	if err != nil {
		return nil, err
	}

	if l.idx != nil {
		if offset, found, err := l.idx.Nearest(target); err != nil {
			logger.Warningf("checkpoint Nearest(%v) failed: %v", target, err)
		} else if found && offset > it.position {
			if err := it.seek(offset); err != nil {
				it.Close()
				return nil, err
			}
		}
	}

	for it.HasNext() {
		tx, err := it.Next()
		if err != nil {
			it.Close()
			return nil, err
		}
		if tx.Zxid.GreaterOrEqual(target) {
			if err := it.Backward(); err != nil {
				it.Close()
				return nil, err
			}
			break
		}
	}
	return it, nil
}

// Truncate removes every record whose zxid is greater than target,
// keeping the record equal to target (if any). last_seen_zxid becomes
// the greatest kept zxid, or zxid.NotExist if nothing is kept. This is
// an offline/recovery operation: it is not crash-atomic, and callers
// must ensure no concurrent Append is in flight.
func (l *TransactionLog) Truncate(target zxid.Zxid) error {
	if err := l.w.Flush(); err != nil {
		return err
	}
	it, err := newIterator(l.file.Name())
	if err != nil {
		return err
	}
	defer it.Close()

	kept := zxid.NotExist
	for it.HasNext() {
		tx, err := it.Next()
		if err != nil {
			return err
		}

		switch {
		case tx.Zxid.Equal(target):
			kept = tx.Zxid
		case tx.Zxid.Greater(target):
			if err := it.Backward(); err != nil {
				return err
			}
		default:
			kept = tx.Zxid
			continue
		}
		break
	}

	if err := l.file.Truncate(it.position); err != nil {
		return err
	}
	if err := fileutil.Fsync(l.file.File); err != nil {
		return err
	}

	if _, err := l.file.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	l.w = bufio.NewWriter(l.file)
	l.lastSeenZxid = kept
	l.writeOffset = it.position

	if l.idx != nil {
		if err := l.idx.DeleteAfter(kept); err != nil {
			logger.Warningf("checkpoint DeleteAfter(%v) failed: %v", kept, err)
		}
	}
	return nil
}

// Trim is reserved for a future log-compaction design and always
// fails with ErrUnsupported.
func (l *TransactionLog) Trim(target zxid.Zxid) error {
	return ErrUnsupported
}

// Length returns the current size of the log file, in bytes.
func (l *TransactionLog) Length() (int64, error) {
	fi, err := l.file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Name returns the log file's path.
func (l *TransactionLog) Name() string { return l.file.Name() }

// Close closes the underlying file handle. Close flushes no data:
// callers must Sync first if durability of unsynced appends matters.
func (l *TransactionLog) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if l.idx != nil {
		if err := l.idx.Close(); err != nil {
			logger.Warningf("checkpoint index close failed: %v", err)
		}
	}
	return l.file.Close()
}
