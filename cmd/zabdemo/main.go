// Command zabdemo runs a leader-side commit core against fake, in
// memory peers, for exercising TransactionLog and AckProcessor
// end-to-end outside of a test binary.
//
// (gyuho-db raft-example/main.go: temp-dir-per-run setup, global log
// level set from init)
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/gyuho/zab/ackproc"
	"github.com/gyuho/zab/cluster"
	"github.com/gyuho/zab/pkg/xlog"
	"github.com/gyuho/zab/pkg/xlog/rotate"
	"github.com/gyuho/zab/txn"
	"github.com/gyuho/zab/txnlog"
	"github.com/gyuho/zab/zxid"
)

var logger = xlog.NewLogger("zabdemo", xlog.INFO)

func init() {
	xlog.SetGlobalMaxLogLevel(xlog.INFO)
}

func main() {
	logDir := flag.String("log-dir", "", "if set, rotate logs to files under this directory instead of stderr")
	flag.Parse()

	if *logDir != "" {
		ft, err := rotate.NewFormatter(rotate.Config{
			Dir:            *logDir,
			RotateFileSize: 10 << 20, // 10MB
		})
		if err != nil {
			logger.Fatalf("failed to set up log rotation: %v", err)
		}
		xlog.SetFormatter(ft)
	}

	dir, err := ioutil.TempDir(os.TempDir(), "zabdemo")
	if err != nil {
		logger.Fatalf("failed to create scratch dir: %v", err)
	}
	defer os.RemoveAll(dir)

	log, err := txnlog.OpenWithOptions(dir+"/txn.log", txnlog.Options{
		IndexPath:          dir + "/txn.idx",
		CheckpointInterval: 8,
	})
	if err != nil {
		logger.Fatalf("failed to open transaction log: %v", err)
	}
	defer log.Close()

	registry := ackproc.NewPeerRegistry()
	peerIDs := []string{"s1", "s2", "s3"}
	for _, id := range peerIDs {
		registry.Set(id, newLoggingPeer(id))
	}

	proc := ackproc.New(registry, cluster.New(zxid.NotExist, peerIDs...))
	proc.Start()

	epoch := int64(1)
	for i, body := range []string{"create /a", "set /a v1", "set /a v2", "delete /a"} {
		z := zxid.New(epoch, int64(i+1))
		tx := txn.New(z, 0, []byte(body))
		if err := log.Append(tx); err != nil {
			logger.Fatalf("append %v failed: %v", z, err)
		}
		if err := log.Sync(); err != nil {
			logger.Fatalf("sync failed: %v", err)
		}

		for _, id := range peerIDs {
			proc.ProcessRequest(ackproc.MessageTuple{
				ServerID: id,
				Message:  ackproc.Message{Type: ackproc.ACK},
				Zxid:     z,
			})
		}
	}

	if err := proc.Shutdown(); err != nil {
		logger.Fatalf("processor terminated with error: %v", err)
	}

	fmt.Printf("log has %d bytes, latest zxid %v\n", mustLength(log), log.GetLatestZxid())
}

func mustLength(log *txnlog.TransactionLog) int64 {
	n, err := log.Length()
	if err != nil {
		logger.Fatalf("length failed: %v", err)
	}
	return n
}
