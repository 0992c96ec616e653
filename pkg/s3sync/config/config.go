// Package config defines the Config surface a run is built from and the
// conflict-validation rules §6 requires to fail fast before the pipeline
// starts.
package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
)

// StorageClass enumerates the canned storage classes §6 accepts.
type StorageClass string

const (
	StorageClassStandard           StorageClass = "STANDARD"
	StorageClassReducedRedundancy  StorageClass = "REDUCED_REDUNDANCY"
	StorageClassStandardIA         StorageClass = "STANDARD_IA"
	StorageClassOneZoneIA          StorageClass = "ONEZONE_IA"
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"
	StorageClassGlacier            StorageClass = "GLACIER"
	StorageClassDeepArchive        StorageClass = "DEEP_ARCHIVE"
	StorageClassGlacierIR          StorageClass = "GLACIER_IR"
	StorageClassExpressOneZone     StorageClass = "EXPRESS_ONEZONE"
)

// SSEMode enumerates the server-side encryption modes §6 accepts.
type SSEMode string

const (
	SSENone       SSEMode = ""
	SSEAES256     SSEMode = "AES256"
	SSEKMS        SSEMode = "aws:kms"
	SSEKMSDSSE    SSEMode = "aws:kms:dsse"
)

// RetryConfig governs the inner, transport-tier retries owned by the
// ObjectStoreClient (§4.5.5).
type RetryConfig struct {
	AWSMaxAttempts             int
	InitialBackoffMilliseconds int64
}

// DefaultRetryConfig returns the §6 defaults (aws_max_attempts=10,
// initial_backoff_milliseconds=100).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{AWSMaxAttempts: 10, InitialBackoffMilliseconds: 100}
}

// ForceRetryConfig governs the outer, operation-tier retries owned by the
// transfer worker (§4.5.5).
type ForceRetryConfig struct {
	ForceRetryCount                 int
	ForceRetryIntervalMilliseconds  int64
}

// DefaultForceRetryConfig returns the §6 defaults (force_retry_count=5,
// force_retry_interval_milliseconds=1000).
func DefaultForceRetryConfig() ForceRetryConfig {
	return ForceRetryConfig{ForceRetryCount: 5, ForceRetryIntervalMilliseconds: 1000}
}

// ClientConfig configures one side's ObjectStoreClient (source or target can
// each point at a different account/region/endpoint).
type ClientConfig struct {
	Region                          string
	EndpointURL                     string
	ForcePathStyle                  bool
	Retry                           RetryConfig
	HTTPSProxy                      string
	HTTPProxy                       string
	NoVerifySSL                     bool
	DisableStalledStreamProtection  bool
}

// TransferConfig governs the size/chunking/verification/transport decisions
// the transfer worker pool makes (§3: TransferConfig, §6).
type TransferConfig struct {
	MultipartThreshold int64
	MultipartChunksize int64
	AutoChunksize      bool
	StorageClass       StorageClass
	SSE                SSEMode
	SSEKMSKeyID        string
	SourceSSEC         string
	SourceSSECKey      string
	SourceSSECKeyMD5   string
	TargetSSEC         string
	TargetSSECKey      string
	TargetSSECKeyMD5   string
	CannedACL          string

	AdditionalChecksumAlgorithm checksum.Algorithm
	EnableAdditionalChecksum    bool
	FullObjectChecksum          bool

	DisableMultipartVerify bool
	DisableEtagVerify      bool

	DryRun bool

	InflightPartsLimit int

	// ServerSideCopy requests a CopySourceIfMatch precondition on S3→S3
	// copies (original_source tests/options/copy_source_if_match.rs,
	// SPEC_FULL §3): if the source changes between listing and copy, the
	// copy aborts with a PreconditionWarning instead of copying stale bytes.
	ServerSideCopy bool

	// DisableContentMD5Header omits the Content-MD5 request header on
	// UploadPart/PutObject while still computing the MD5 for ETag
	// reconstruction (original_source, SPEC_FULL §3).
	DisableContentMD5Header bool
}

// IsMultipartUploadRequired mirrors original_source's
// TransferConfig::is_multipart_upload_required: content_length at or above
// the threshold requires multipart.
func (c TransferConfig) IsMultipartUploadRequired(contentLength int64) bool {
	return contentLength >= c.MultipartThreshold
}

// DefaultTransferConfig returns the §6 defaults: 8 MiB threshold and
// chunksize, no auto-chunksize, verification enabled.
func DefaultTransferConfig() TransferConfig {
	const defaultSize = 8 * 1024 * 1024
	return TransferConfig{
		MultipartThreshold: defaultSize,
		MultipartChunksize: defaultSize,
		InflightPartsLimit: 16,
	}
}

// FilterConfig governs the filter chain (§4.4).
type FilterConfig struct {
	MtimeBefore time.Time
	MtimeAfter  time.Time

	IncludeRegex string
	ExcludeRegex string

	SmallerSize int64
	LargerSize  int64
	HasSmaller  bool
	HasLarger   bool

	RemoveModifiedFilter bool
	CheckSize            bool
	CheckETag             bool
	CheckMtimeAndETag     bool
	CheckMtimeAndAdditionalChecksum bool
}

// TaggingMode enumerates the tagging-sync behavior §6 and the
// SPEC_FULL-supplemented tagging-status reporting accept.
type TaggingMode int

const (
	TaggingDefault TaggingMode = iota
	TaggingDisabled
	TaggingSyncLatest
)

// Config is the fully-resolved, immutable-per-run configuration the
// PipelineSupervisor is built from (§3: Config, §6).
type Config struct {
	Source Path
	Target Path

	SourceClientConfig ClientConfig
	TargetClientConfig ClientConfig

	ForceRetry ForceRetryConfig

	Transfer TransferConfig
	Filter   FilterConfig

	WorkerSize int

	WarnAsError       bool
	FollowSymlinks    bool
	HeadEachTarget    bool
	SyncWithDelete    bool
	EnableVersioning  bool
	PutLastModifiedMetadata bool
	MaxKeys           int

	Tagging TaggingMode

	RateLimitObjects   int
	RateLimitBandwidth int64

	CacheControl       string
	ContentDisposition string
	ContentEncoding    string
	ContentLanguage    string
	ContentType        string
	Expires            time.Time
	Metadata           map[string]string
	TaggingValue       string

	// PointInTime restricts SourceLister, when EnableVersioning is also set,
	// to the most recent version (including delete markers) at or before
	// this instant (original_source tests/options/point_in_time.rs,
	// SPEC_FULL §3). Zero means unrestricted.
	PointInTime time.Time
}

// Path is a local alias of s3path.Path kept in this package so config.Config
// doesn't force every caller to import s3path directly for field access.
type Path = s3path.Path

// DefaultWorkerSize is the §6 default for worker_size.
const DefaultWorkerSize = 16

// DefaultMaxKeys is the §6 default for max_keys.
const DefaultMaxKeys = 1000

// Validate performs the §6 "Conflict validation" rules, fail-fast at config
// build time before any stage runs.
func (c Config) Validate() error {
	if err := s3path.Validate(c.Source, c.Target); err != nil {
		return errors.Wrap(err, "config")
	}

	if c.EnableVersioning && (!c.Source.Remote || !c.Target.Remote) {
		return errors.New("config: enable_versioning requires both source and target to be remote")
	}

	remoteTargetOnly := c.Transfer.StorageClass != "" ||
		c.Transfer.SSE != SSENone ||
		c.Transfer.CannedACL != "" ||
		c.Transfer.AdditionalChecksumAlgorithm != "" ||
		c.CacheControl != "" || c.ContentDisposition != "" ||
		c.ContentEncoding != "" || c.ContentLanguage != "" ||
		c.ContentType != "" || !c.Expires.IsZero() || len(c.Metadata) > 0
	if remoteTargetOnly && !c.Target.Remote {
		return errors.New("config: storage_class, sse, acl, metadata overrides, and additional_checksum_algorithm require a remote target")
	}

	if (c.Transfer.EnableAdditionalChecksum || c.Transfer.AutoChunksize) && !c.Source.Remote {
		return errors.New("config: enable_additional_checksum and auto_chunksize require a remote source")
	}

	if c.Transfer.SSEKMSKeyID != "" && c.Transfer.SSE != SSEKMS && c.Transfer.SSE != SSEKMSDSSE {
		return errors.New("config: sse_kms_key_id requires sse=aws:kms or aws:kms:dsse")
	}

	if c.Filter.CheckSize && c.Filter.RemoveModifiedFilter && !c.HeadEachTarget {
		return errors.New("config: check_size combined with remove_modified_filter requires head_each_target")
	}

	if c.Transfer.MultipartChunksize != 0 && c.Transfer.AutoChunksize {
		defaultSize := DefaultTransferConfig().MultipartChunksize
		if c.Transfer.MultipartChunksize != defaultSize {
			return errors.New("config: multipart_chunksize conflicts with auto_chunksize")
		}
	}

	if c.WorkerSize < 1 || c.WorkerSize > 65535 {
		return errors.New("config: worker_size must be between 1 and 65535")
	}

	if c.MaxKeys < 1 || c.MaxKeys > 32767 {
		return errors.New("config: max_keys must be between 1 and 32767")
	}

	return nil
}
