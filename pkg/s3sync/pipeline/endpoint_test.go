package pipeline

import (
	"testing"

	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
)

func TestEndpointBucketAndPrefixRemote(t *testing.T) {
	endpoint := Endpoint{Path: s3path.Path{Remote: true, Bucket: "my-bucket", Prefix: "in/bound"}}
	if got := endpoint.Bucket(); got != "my-bucket" {
		t.Errorf("Bucket() = %q, want %q", got, "my-bucket")
	}
	if got := endpoint.Prefix(); got != "in/bound" {
		t.Errorf("Prefix() = %q, want %q", got, "in/bound")
	}
}

func TestEndpointBucketAndPrefixLocal(t *testing.T) {
	endpoint := Endpoint{Path: s3path.Path{Remote: false, Local: "/var/data"}}
	if got := endpoint.Bucket(); got != "" {
		t.Errorf("Bucket() = %q, want empty for a local endpoint", got)
	}
	if got := endpoint.Prefix(); got != "/var/data" {
		t.Errorf("Prefix() = %q, want %q", got, "/var/data")
	}
}

func TestStripPrefixAndJoinKeyRoundTrip(t *testing.T) {
	cases := []struct {
		prefix, relativeKey string
	}{
		{"", "a.txt"},
		{"in", "a.txt"},
		{"in/", "a.txt"},
		{"in/bound", "dir/a.txt"},
	}

	for _, c := range cases {
		full := joinKey(c.prefix, c.relativeKey)
		if got := stripPrefix(c.prefix, full); got != c.relativeKey {
			t.Errorf("stripPrefix(%q, joinKey(%q, %q)=%q) = %q, want %q",
				c.prefix, c.prefix, c.relativeKey, full, got, c.relativeKey)
		}
	}
}

func TestStripPrefixLeavesUnrelatedKeyUnchanged(t *testing.T) {
	if got := stripPrefix("in/bound", "other/a.txt"); got != "other/a.txt" {
		t.Errorf("expected a key outside the prefix to pass through unchanged, got %q", got)
	}
}
