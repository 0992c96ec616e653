package config

import (
	"testing"

	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
)

func baseConfig() Config {
	return Config{
		Source:     s3path.Path{Remote: false, Local: "/tmp/src"},
		Target:     s3path.Path{Remote: true, Bucket: "dest"},
		Transfer:   DefaultTransferConfig(),
		ForceRetry: DefaultForceRetryConfig(),
		WorkerSize: DefaultWorkerSize,
		MaxKeys:    DefaultMaxKeys,
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	if err := baseConfig().Validate(); err != nil {
		t.Error("unexpected error:", err)
	}
}

func TestValidateRequiresRemoteSourceOrTarget(t *testing.T) {
	c := baseConfig()
	c.Target = s3path.Path{Remote: false, Local: "/tmp/dst"}
	if err := c.Validate(); err == nil {
		t.Error("expected error when neither side is remote")
	}
}

func TestValidateVersioningRequiresBothRemote(t *testing.T) {
	c := baseConfig()
	c.EnableVersioning = true
	if err := c.Validate(); err == nil {
		t.Error("expected error: enable_versioning requires both remote")
	}

	c.Source = s3path.Path{Remote: true, Bucket: "src"}
	if err := c.Validate(); err != nil {
		t.Error("unexpected error:", err)
	}
}

func TestValidateAdditionalChecksumRequiresRemoteSource(t *testing.T) {
	c := baseConfig()
	c.Transfer.EnableAdditionalChecksum = true
	if err := c.Validate(); err == nil {
		t.Error("expected error: enable_additional_checksum requires remote source")
	}
}

func TestValidateSSEKMSKeyIDRequiresKMSMode(t *testing.T) {
	c := baseConfig()
	c.Transfer.SSEKMSKeyID = "key-id"
	if err := c.Validate(); err == nil {
		t.Error("expected error: sse_kms_key_id requires sse=aws:kms")
	}

	c.Transfer.SSE = SSEKMS
	if err := c.Validate(); err != nil {
		t.Error("unexpected error:", err)
	}
}

func TestValidateCheckSizeWithRemoveModifiedFilterRequiresHeadEachTarget(t *testing.T) {
	c := baseConfig()
	c.Filter.CheckSize = true
	c.Filter.RemoveModifiedFilter = true
	if err := c.Validate(); err == nil {
		t.Error("expected error requiring head_each_target")
	}

	c.HeadEachTarget = true
	if err := c.Validate(); err != nil {
		t.Error("unexpected error:", err)
	}
}

func TestValidateWorkerSizeRange(t *testing.T) {
	c := baseConfig()
	c.WorkerSize = 0
	if err := c.Validate(); err == nil {
		t.Error("expected error for worker_size below range")
	}
}

func TestIsMultipartUploadRequired(t *testing.T) {
	tc := TransferConfig{MultipartThreshold: 8 * 1024 * 1024}
	if !tc.IsMultipartUploadRequired(8 * 1024 * 1024) {
		t.Error("expected multipart required at threshold")
	}
	if !tc.IsMultipartUploadRequired(8*1024*1024 + 1) {
		t.Error("expected multipart required above threshold")
	}
	if tc.IsMultipartUploadRequired(8*1024*1024 - 1) {
		t.Error("expected multipart not required below threshold")
	}
}
