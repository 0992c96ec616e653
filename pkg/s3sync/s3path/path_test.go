package s3path

import "testing"

func TestParseLocal(t *testing.T) {
	p, err := Parse("/var/data/case1")
	if err != nil {
		t.Fatal("Parse failed:", err)
	}
	if p.Remote {
		t.Error("expected local path")
	}
	if p.Local != "/var/data/case1" {
		t.Error("local path mismatch:", p.Local)
	}
}

func TestParseRemoteWithPrefix(t *testing.T) {
	p, err := Parse("s3://my-bucket/some/prefix")
	if err != nil {
		t.Fatal("Parse failed:", err)
	}
	if !p.Remote {
		t.Error("expected remote path")
	}
	if p.Bucket != "my-bucket" || p.Prefix != "some/prefix" {
		t.Error("bucket/prefix mismatch:", p.Bucket, p.Prefix)
	}
}

func TestParseRemoteWithoutPrefix(t *testing.T) {
	p, err := Parse("s3://my-bucket")
	if err != nil {
		t.Fatal("Parse failed:", err)
	}
	if p.Bucket != "my-bucket" || p.Prefix != "" {
		t.Error("bucket/prefix mismatch:", p.Bucket, p.Prefix)
	}
}

func TestParseRemoteMissingBucket(t *testing.T) {
	if _, err := Parse("s3://"); err == nil {
		t.Error("expected error for missing bucket name")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestValidateRequiresOneRemote(t *testing.T) {
	local := Path{Remote: false, Local: "/a"}
	other := Path{Remote: false, Local: "/b"}
	if err := Validate(local, other); err == nil {
		t.Error("expected error when neither path is remote")
	}

	remote := Path{Remote: true, Bucket: "b"}
	if err := Validate(local, remote); err != nil {
		t.Error("unexpected error:", err)
	}
}

func TestString(t *testing.T) {
	p := Path{Remote: true, Bucket: "b", Prefix: "p/q"}
	if p.String() != "s3://b/p/q" {
		t.Error("String mismatch:", p.String())
	}
	p2 := Path{Remote: false, Local: "/tmp/x"}
	if p2.String() != "/tmp/x" {
		t.Error("String mismatch:", p2.String())
	}
}
