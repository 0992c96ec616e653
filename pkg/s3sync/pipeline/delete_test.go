package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store/localstore"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, &bytes.Buffer{})
}

func TestTapSeenKeysRecordsEveryKeyAndForwardsUnchanged(t *testing.T) {
	ctx := context.Background()
	in := make(chan objectref.ObjectRef, 2)
	in <- objectref.ObjectRef{Key: "a.txt"}
	in <- objectref.ObjectRef{Key: "b.txt"}
	close(in)

	seen := NewSeenKeys()
	out := TapSeenKeys(ctx, in, seen)

	var forwarded []string
	for ref := range out {
		forwarded = append(forwarded, ref.Key)
	}

	if len(forwarded) != 2 {
		t.Fatalf("expected 2 forwarded refs, got %d", len(forwarded))
	}
	if !seen.contains("a.txt") || !seen.contains("b.txt") {
		t.Error("expected both keys to be recorded as seen")
	}
	if seen.contains("c.txt") {
		t.Error("did not expect an unrecorded key to be seen")
	}
}

func TestRunDeleteWorkerSkipsWhenDisabled(t *testing.T) {
	fp := objectref.NewTargetFingerprint()
	fp.Insert("target-only.txt", objectref.FingerprintEntry{})
	fp.Freeze()

	events := make(chan stats.Event, 4)
	err := RunDeleteWorker(context.Background(), config.Config{SyncWithDelete: false}, Endpoint{}, fp, NewSeenKeys(), events, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	close(events)
	if len(events) != 0 {
		t.Error("expected no events when sync_with_delete is disabled")
	}
}

func TestRunDeleteWorkerDeletesOnlyUnseenKeys(t *testing.T) {
	dir := t.TempDir()
	local := localstore.New(testLogger())
	ctx := context.Background()

	if _, err := local.WriteAtomic(ctx, dir, "keep.txt", strings.NewReader("x"), 1, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if _, err := local.WriteAtomic(ctx, dir, "stale.txt", strings.NewReader("y"), 1, time.Time{}); err != nil {
		t.Fatal(err)
	}

	fp := objectref.NewTargetFingerprint()
	fp.Insert("keep.txt", objectref.FingerprintEntry{})
	fp.Insert("stale.txt", objectref.FingerprintEntry{})
	fp.Freeze()

	seen := NewSeenKeys()
	seen.record("keep.txt")

	target := Endpoint{Path: s3path.Path{Remote: false, Local: dir}, Local: local}
	events := make(chan stats.Event, 8)

	if err := RunDeleteWorker(ctx, config.Config{SyncWithDelete: true}, target, fp, seen, events, testLogger()); err != nil {
		t.Fatal(err)
	}
	close(events)

	var deletedKeys []string
	for event := range events {
		if event.Kind == stats.SyncDelete {
			deletedKeys = append(deletedKeys, event.Key)
		}
	}
	if len(deletedKeys) != 1 || deletedKeys[0] != "stale.txt" {
		t.Fatalf("expected only stale.txt to be deleted, got %v", deletedKeys)
	}

	if _, err := local.Stat(ctx, dir, "keep.txt"); err != nil {
		t.Error("expected keep.txt to survive:", err)
	}
	if _, err := local.Stat(ctx, dir, "stale.txt"); err == nil {
		t.Error("expected stale.txt to have been deleted")
	}
}

func TestRunDeleteWorkerDryRunDoesNotDelete(t *testing.T) {
	dir := t.TempDir()
	local := localstore.New(testLogger())
	ctx := context.Background()

	if _, err := local.WriteAtomic(ctx, dir, "stale.txt", strings.NewReader("y"), 1, time.Time{}); err != nil {
		t.Fatal(err)
	}

	fp := objectref.NewTargetFingerprint()
	fp.Insert("stale.txt", objectref.FingerprintEntry{})
	fp.Freeze()

	target := Endpoint{Path: s3path.Path{Remote: false, Local: dir}, Local: local}
	events := make(chan stats.Event, 8)

	cfg := config.Config{SyncWithDelete: true, Transfer: config.TransferConfig{DryRun: true}}
	if err := RunDeleteWorker(ctx, cfg, target, fp, NewSeenKeys(), events, testLogger()); err != nil {
		t.Fatal(err)
	}
	close(events)

	if _, err := local.Stat(ctx, dir, "stale.txt"); err != nil {
		t.Error("expected dry_run to leave stale.txt in place:", err)
	}

	found := false
	for event := range events {
		if event.Kind == stats.SyncDelete && event.Key == "stale.txt" {
			found = true
		}
	}
	if !found {
		t.Error("expected a SyncDelete event to still be recorded under dry_run")
	}
}
