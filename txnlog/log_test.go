package txnlog

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/gyuho/zab/txn"
	"github.com/gyuho/zab/zxid"
)

func tempLogPath(t *testing.T) string {
	dir, err := ioutil.TempDir("", "txnlog")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "test.log")
}

func mustAppend(t *testing.T, l *TransactionLog, z zxid.Zxid, body string) {
	t.Helper()
	if err := l.Append(txn.New(z, 0, []byte(body))); err != nil {
		t.Fatalf("Append(%v) failed: %v", z, err)
	}
}

func drain(t *testing.T, l *TransactionLog, from zxid.Zxid) []txn.Transaction {
	t.Helper()
	it, err := l.GetIterator(from)
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	var out []txn.Transaction
	for it.HasNext() {
		tx, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, tx)
	}
	return out
}

// S1: simple append & recover.
func TestS1AppendAndRecover(t *testing.T) {
	path := tempLogPath(t)

	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	mustAppend(t, l, zxid.New(0, 1), "a")
	mustAppend(t, l, zxid.New(0, 2), "b")
	mustAppend(t, l, zxid.New(0, 3), "c")
	if err := l.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	l2, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()

	if got := l2.GetLatestZxid(); !got.Equal(zxid.New(0, 3)) {
		t.Fatalf("GetLatestZxid() = %v, want (0,3)", got)
	}

	got := drain(t, l2, zxid.NotExist)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(got), len(want))
	}
	for i, tx := range got {
		if string(tx.Body) != want[i] {
			t.Fatalf("transaction %d body = %q, want %q", i, tx.Body, want[i])
		}
	}
}

// S2: truncate suffix.
func TestS2TruncateSuffix(t *testing.T) {
	path := tempLogPath(t)

	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	mustAppend(t, l, zxid.New(0, 1), "a")
	mustAppend(t, l, zxid.New(0, 2), "b")
	mustAppend(t, l, zxid.New(0, 3), "c")
	if err := l.Sync(); err != nil {
		t.Fatal(err)
	}

	if err := l.Truncate(zxid.New(0, 2)); err != nil {
		t.Fatal(err)
	}

	length, err := l.Length()
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(2 * (headerN + 1)); length != want {
		t.Fatalf("Length() = %d, want %d", length, want)
	}
	if got := l.GetLatestZxid(); !got.Equal(zxid.New(0, 2)) {
		t.Fatalf("GetLatestZxid() = %v, want (0,2)", got)
	}

	got := drain(t, l, zxid.NotExist)
	if len(got) != 2 || string(got[0].Body) != "a" || string(got[1].Body) != "b" {
		t.Fatalf("unexpected records after truncate: %+v", got)
	}
}

func TestAppendOutOfOrderFails(t *testing.T) {
	path := tempLogPath(t)
	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	mustAppend(t, l, zxid.New(0, 5), "a")

	for _, z := range []zxid.Zxid{zxid.New(0, 5), zxid.New(0, 4), zxid.New(0, 1)} {
		if err := l.Append(txn.New(z, 0, nil)); err != ErrOutOfOrder {
			t.Fatalf("Append(%v) err = %v, want ErrOutOfOrder", z, err)
		}
	}

	if got := l.GetLatestZxid(); !got.Equal(zxid.New(0, 5)) {
		t.Fatalf("GetLatestZxid() = %v, want (0,5) after rejected appends", got)
	}
}

func TestGetIteratorPositioning(t *testing.T) {
	path := tempLogPath(t)
	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	mustAppend(t, l, zxid.New(0, 2), "a")
	mustAppend(t, l, zxid.New(0, 4), "b")
	mustAppend(t, l, zxid.New(0, 6), "c")

	tests := []struct {
		from zxid.Zxid
		want string
		none bool
	}{
		{zxid.NotExist, "a", false},
		{zxid.New(0, 2), "a", false},
		{zxid.New(0, 3), "b", false},
		{zxid.New(0, 6), "c", false},
		{zxid.New(0, 7), "", true},
	}
	for _, tt := range tests {
		it, err := l.GetIterator(tt.from)
		if err != nil {
			t.Fatal(err)
		}
		if tt.none {
			if it.HasNext() {
				t.Errorf("GetIterator(%v): expected no more records", tt.from)
			}
			it.Close()
			continue
		}
		if !it.HasNext() {
			t.Fatalf("GetIterator(%v): expected a record", tt.from)
		}
		tx, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if string(tx.Body) != tt.want {
			t.Errorf("GetIterator(%v) first body = %q, want %q", tt.from, tx.Body, tt.want)
		}
		it.Close()
	}
}

func TestIteratorBackwardIdempotence(t *testing.T) {
	path := tempLogPath(t)
	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	mustAppend(t, l, zxid.New(0, 1), "a")
	mustAppend(t, l, zxid.New(0, 2), "b")

	it, err := l.GetIterator(zxid.NotExist)
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	first, err := it.Next()
	if err != nil {
		t.Fatal(err)
	}
	if err := it.Backward(); err != nil {
		t.Fatal(err)
	}
	again, err := it.Next()
	if err != nil {
		t.Fatal(err)
	}
	if !again.Zxid.Equal(first.Zxid) {
		t.Fatalf("after backward+next got %v, want %v", again.Zxid, first.Zxid)
	}

	if err := it.Backward(); err != nil {
		t.Fatal(err)
	}
	if err := it.Backward(); err != ErrBackwardTwice {
		t.Fatalf("second consecutive Backward() err = %v, want ErrBackwardTwice", err)
	}
}

func TestOpenRecoversFromEmptyFile(t *testing.T) {
	path := tempLogPath(t)
	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if got := l.GetLatestZxid(); !got.Equal(zxid.NotExist) {
		t.Fatalf("GetLatestZxid() = %v, want NotExist", got)
	}
}

func TestOpenWithSuppliedHintSkipsScan(t *testing.T) {
	path := tempLogPath(t)
	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	mustAppend(t, l, zxid.New(0, 1), "a")
	if err := l.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	hint := zxid.New(0, 1)
	l2, err := Open(path, &hint)
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()

	if got := l2.GetLatestZxid(); !got.Equal(hint) {
		t.Fatalf("GetLatestZxid() = %v, want %v", got, hint)
	}
}

func TestOpenDetectsPartialTrailingRecord(t *testing.T) {
	path := tempLogPath(t)
	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	mustAppend(t, l, zxid.New(0, 1), "hello")
	if err := l.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, fi.Size()-2); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, nil); err != ErrCorrupt {
		t.Fatalf("Open() err = %v, want ErrCorrupt", err)
	}
}

func TestOpenWithOptionsUsesCheckpointIndex(t *testing.T) {
	path := tempLogPath(t)
	idxPath := path + ".idx"

	l, err := OpenWithOptions(path, Options{IndexPath: idxPath, CheckpointInterval: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	for i := int64(1); i <= 6; i++ {
		mustAppend(t, l, zxid.New(0, i), "x")
	}
	if err := l.Sync(); err != nil {
		t.Fatal(err)
	}

	// a checkpoint should exist at or before (0,5): the index is purely
	// an acceleration, so results must match the unindexed scan.
	got := drain(t, l, zxid.New(0, 5))
	if len(got) != 2 {
		t.Fatalf("got %d records from (0,5), want 2", len(got))
	}
	if !got[0].Zxid.Equal(zxid.New(0, 5)) || !got[1].Zxid.Equal(zxid.New(0, 6)) {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestTruncateDeletesStaleCheckpoints(t *testing.T) {
	path := tempLogPath(t)
	idxPath := path + ".idx"

	l, err := OpenWithOptions(path, Options{IndexPath: idxPath, CheckpointInterval: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	mustAppend(t, l, zxid.New(0, 1), "a")
	mustAppend(t, l, zxid.New(0, 2), "b")
	mustAppend(t, l, zxid.New(0, 3), "c")
	if err := l.Sync(); err != nil {
		t.Fatal(err)
	}

	if err := l.Truncate(zxid.New(0, 1)); err != nil {
		t.Fatal(err)
	}

	got := drain(t, l, zxid.NotExist)
	if len(got) != 1 || string(got[0].Body) != "a" {
		t.Fatalf("unexpected records after truncate: %+v", got)
	}
}

func TestTrimUnsupported(t *testing.T) {
	path := tempLogPath(t)
	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.Trim(zxid.New(0, 1)); err != ErrUnsupported {
		t.Fatalf("Trim() err = %v, want ErrUnsupported", err)
	}
}
