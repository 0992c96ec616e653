package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store/localstore"
)

func TestListSourceLocalFlat(t *testing.T) {
	dir := t.TempDir()
	local := localstore.New(testLogger())
	ctx := context.Background()

	if _, err := local.WriteAtomic(ctx, dir, "a.txt", strings.NewReader("hello"), 5, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if _, err := local.WriteAtomic(ctx, dir, "b.txt", strings.NewReader("world"), 5, time.Time{}); err != nil {
		t.Fatal(err)
	}

	source := Endpoint{Path: s3path.Path{Remote: false, Local: dir}, Local: local}
	out, errs := ListSource(ctx, config.Config{}, source, testLogger())

	var keys []string
	for ref := range out {
		keys = append(keys, ref.Key)
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}

	if len(keys) != 2 {
		t.Fatalf("expected 2 refs, got %d (%v)", len(keys), keys)
	}
}

func TestRestrictToPointInTimeZeroReturnsAllVersions(t *testing.T) {
	versions := []store.Entry{
		{Key: "a.txt", LastModified: time.Unix(1, 0)},
		{Key: "a.txt", LastModified: time.Unix(2, 0)},
	}
	got := restrictToPointInTime(versions, time.Time{})
	if len(got) != 2 {
		t.Fatalf("expected both versions to pass through unrestricted, got %d", len(got))
	}
}

func TestRestrictToPointInTimeKeepsMostRecentAtOrBefore(t *testing.T) {
	versions := []store.Entry{
		{Key: "a.txt", VersionID: "v1", LastModified: time.Unix(1, 0)},
		{Key: "a.txt", VersionID: "v2", LastModified: time.Unix(5, 0)},
		{Key: "a.txt", VersionID: "v3", LastModified: time.Unix(10, 0)},
	}
	got := restrictToPointInTime(versions, time.Unix(7, 0))
	if len(got) != 1 || got[0].VersionID != "v2" {
		t.Fatalf("expected only v2 to survive, got %+v", got)
	}
}

func TestRestrictToPointInTimeBeforeAllVersionsReturnsNone(t *testing.T) {
	versions := []store.Entry{
		{Key: "a.txt", VersionID: "v1", LastModified: time.Unix(5, 0)},
	}
	got := restrictToPointInTime(versions, time.Unix(1, 0))
	if got != nil {
		t.Fatalf("expected no versions before the earliest one, got %+v", got)
	}
}
