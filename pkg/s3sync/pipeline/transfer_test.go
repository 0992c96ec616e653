package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store/localstore"
)

func TestCoalesceReturnsFirstNonEmpty(t *testing.T) {
	if got := coalesce("", "", "b", "c"); got != "b" {
		t.Errorf("coalesce = %q, want %q", got, "b")
	}
	if got := coalesce("", ""); got != "" {
		t.Errorf("coalesce of all-empty = %q, want empty", got)
	}
}

func TestMetadataForNoOverridesReturnsNil(t *testing.T) {
	if got := metadataFor(config.Config{}, time.Now()); got != nil {
		t.Errorf("expected nil metadata with no cfg.Metadata and put_last_modified_metadata disabled, got %v", got)
	}
}

func TestMetadataForPutLastModifiedMetadata(t *testing.T) {
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cfg := config.Config{PutLastModifiedMetadata: true}
	got := metadataFor(cfg, mtime)
	if got["s3sync-last-modified"] != mtime.Format(time.RFC3339Nano) {
		t.Errorf("metadataFor = %v, want s3sync-last-modified = %s", got, mtime.Format(time.RFC3339Nano))
	}
}

func TestMetadataForMergesConfiguredMetadata(t *testing.T) {
	cfg := config.Config{Metadata: map[string]string{"team": "infra"}}
	got := metadataFor(cfg, time.Time{})
	if got["team"] != "infra" {
		t.Errorf("expected configured metadata to be preserved, got %v", got)
	}
}

func TestPutOptionsForCarriesStorageAndContentFields(t *testing.T) {
	cfg := config.Config{
		ContentType: "text/plain",
		Transfer:    config.TransferConfig{StorageClass: "STANDARD_IA"},
	}
	opts := putOptionsFor(cfg)
	if opts.StorageClass != "STANDARD_IA" {
		t.Errorf("StorageClass = %q, want STANDARD_IA", opts.StorageClass)
	}
	if opts.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, want text/plain", opts.ContentType)
	}
}

func TestVerifySingleObjectIntegrityMatchingETag(t *testing.T) {
	ctx := context.Background()
	events := make(chan stats.Event, 4)
	ref := objectref.ObjectRef{Key: "a.txt", ETag: `"abc"`}

	verifySingleObjectIntegrity(ctx, config.Config{}, ref, `"abc"`, "", "", events, testLogger())
	close(events)

	var kinds []stats.EventKind
	for e := range events {
		kinds = append(kinds, e.Kind)
	}
	if len(kinds) != 1 || kinds[0] != stats.ETagVerified {
		t.Errorf("expected a single ETagVerified event, got %v", kinds)
	}
}

func TestVerifySingleObjectIntegrityMismatchedETag(t *testing.T) {
	ctx := context.Background()
	events := make(chan stats.Event, 4)
	ref := objectref.ObjectRef{Key: "a.txt", ETag: `"abc"`}

	verifySingleObjectIntegrity(ctx, config.Config{}, ref, `"xyz"`, "", "", events, testLogger())
	close(events)

	var warnings int
	for e := range events {
		if e.Kind == stats.SyncWarning {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("expected exactly one SyncWarning on etag mismatch, got %d", warnings)
	}
}

func TestVerifySingleObjectIntegrityDisabled(t *testing.T) {
	ctx := context.Background()
	events := make(chan stats.Event, 4)
	ref := objectref.ObjectRef{Key: "a.txt", ETag: `"abc"`}

	cfg := config.Config{Transfer: config.TransferConfig{DisableEtagVerify: true}}
	verifySingleObjectIntegrity(ctx, cfg, ref, `"xyz"`, "", "", events, testLogger())
	close(events)

	if len(events) != 0 {
		t.Error("expected no events when etag verification is disabled")
	}
}

func TestChecksumHasherAdapterSum(t *testing.T) {
	adapter, err := newChecksumReaderHasher(checksum.AlgorithmSHA256)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := adapter.Write([]byte("payload")); err != nil {
		t.Fatal(err)
	}

	want, err := checksum.Sum(checksum.AlgorithmSHA256, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if got := adapter.Sum(); string(got) != string(want) {
		t.Errorf("adapter.Sum() = %x, want %x", got, want)
	}
}

func TestTransferSingleLocalToLocal(t *testing.T) {
	sourceDir, targetDir := t.TempDir(), t.TempDir()
	local := localstore.New(testLogger())
	ctx := context.Background()

	if _, err := local.WriteAtomic(ctx, sourceDir, "a.txt", strings.NewReader("hello world"), 11, time.Time{}); err != nil {
		t.Fatal(err)
	}

	source := Endpoint{Path: s3path.Path{Remote: false, Local: sourceDir}, Local: local}
	target := Endpoint{Path: s3path.Path{Remote: false, Local: targetDir}, Local: local}
	ref := objectref.ObjectRef{Key: "a.txt", Size: 11}

	events := make(chan stats.Event, 8)
	if err := transferSingle(ctx, config.Config{}, source, target, ref, events, testLogger()); err != nil {
		t.Fatal(err)
	}
	close(events)

	var sawComplete bool
	for e := range events {
		if e.Kind == stats.SyncComplete {
			sawComplete = true
		}
	}
	if !sawComplete {
		t.Error("expected a SyncComplete event")
	}

	head, err := local.Stat(ctx, targetDir, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if head.Size != 11 {
		t.Errorf("target size = %d, want 11", head.Size)
	}
}

func TestTransferSingleDryRunWritesNothing(t *testing.T) {
	sourceDir, targetDir := t.TempDir(), t.TempDir()
	local := localstore.New(testLogger())
	ctx := context.Background()

	if _, err := local.WriteAtomic(ctx, sourceDir, "a.txt", strings.NewReader("hello"), 5, time.Time{}); err != nil {
		t.Fatal(err)
	}

	source := Endpoint{Path: s3path.Path{Remote: false, Local: sourceDir}, Local: local}
	target := Endpoint{Path: s3path.Path{Remote: false, Local: targetDir}, Local: local}
	ref := objectref.ObjectRef{Key: "a.txt", Size: 5}

	events := make(chan stats.Event, 8)
	cfg := config.Config{Transfer: config.TransferConfig{DryRun: true}}
	if err := transferSingle(ctx, cfg, source, target, ref, events, testLogger()); err != nil {
		t.Fatal(err)
	}
	close(events)

	if _, err := local.Stat(ctx, targetDir, "a.txt"); err == nil {
		t.Error("expected dry_run to leave the target untouched")
	}
}
