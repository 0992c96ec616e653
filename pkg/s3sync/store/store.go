// Package store defines the opaque ObjectStoreClient and LocalStoreClient
// interfaces the pipeline stages consume (§1: "treated as opaque"). Concrete
// implementations live in the s3store and localstore subpackages; the
// pipeline itself never imports either directly, only this package's types.
package store

import (
	"context"
	"io"
	"time"
)

// Entry is one listed object, as returned by List/ListVersions. It carries
// enough to populate either an objectref.ObjectRef or a
// objectref.FingerprintEntry without this package depending on objectref
// (kept dependency-free so it can be imported by both the pipeline and the
// concrete store implementations without a cycle).
type Entry struct {
	Key            string
	VersionID      string
	LastModified   time.Time
	Size           int64
	ETag           string
	IsDeleteMarker bool
}

// ListPage is one page of a listing. NextContinuationToken carries the
// ListObjectsV2 continuation token; for ListObjectVersions pagination,
// NextContinuationToken and NextVersionIDMarker carry the pair of markers
// the SDK returns (NextKeyMarker/NextVersionIdMarker).
type ListPage struct {
	Entries               []Entry
	IsTruncated           bool
	NextContinuationToken string
	NextVersionIDMarker   string
}

// PutOptions carries the per-object metadata and transfer-config-derived
// options applied on PUT/COPY/CreateMultipartUpload (§6's metadata-override
// row and the SSE/storage-class/ACL rows).
type PutOptions struct {
	StorageClass       string
	SSE                string
	SSEKMSKeyID        string
	SSECustomerKey     string
	SSECustomerKeyMD5  string
	CannedACL          string
	CacheControl       string
	ContentDisposition string
	ContentEncoding    string
	ContentLanguage    string
	ContentType        string
	Expires            time.Time
	Metadata           map[string]string
	Tagging            string
	ChecksumAlgorithm  string
	ContentMD5         string

	// CopySourceIfMatch, when non-empty, is attached to a CopyObject
	// request (UploadPartCopy takes no PutOptions) so a concurrent external modification of the
	// source aborts the copy instead of silently copying stale bytes
	// (TransferConfig.ServerSideCopy, SPEC_FULL §3).
	CopySourceIfMatch string
}

// PutResult is the outcome of a PUT/COPY/CompleteMultipartUpload call.
type PutResult struct {
	ETag              string
	ChecksumAlgorithm string
	ChecksumValue     string
	VersionID         string
}

// PartResult is the outcome of an UploadPart/UploadPartCopy call.
type PartResult struct {
	PartNumber        int32
	ETag              string
	ChecksumAlgorithm string
	ChecksumValue     string
}

// CompletedPart identifies one part in the ordered list passed to
// CompleteMultipartUpload (§4.5.2 step 5).
type CompletedPart struct {
	PartNumber        int32
	ETag              string
	ChecksumAlgorithm string
	ChecksumValue     string
}

// HeadResult is the outcome of a HeadObject call, including enough detail
// to drive the auto-chunksize HEAD-per-part probe (§4.5.1) and the
// TargetModifiedFilter's deferred comparison (§4.4).
type HeadResult struct {
	LastModified      time.Time
	Size              int64
	ETag              string
	ChecksumAlgorithm string
	ChecksumValue     string
	PartsCount        int
	TaggingCount      int
	SSE               string
}

// ObjectStoreClient is the opaque S3-style transport the pipeline stages
// consume (§1). It owns request signing, HTTPS, proxies, TLS verification,
// and the inner/transport retry tier (§4.5.5) — none of which the pipeline
// itself implements.
type ObjectStoreClient interface {
	ListObjectsV2(ctx context.Context, bucket, prefix, continuationToken string, maxKeys int32) (ListPage, error)
	ListObjectVersions(ctx context.Context, bucket, prefix, keyMarker, versionIDMarker string, maxKeys int32) (ListPage, error)

	HeadObject(ctx context.Context, bucket, key, versionID string, partNumber int32) (HeadResult, error)
	GetObject(ctx context.Context, bucket, key, versionID string, byteRange string) (io.ReadCloser, HeadResult, error)

	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts PutOptions) (PutResult, error)
	CopyObject(ctx context.Context, sourceBucket, sourceKey, sourceVersionID, targetBucket, targetKey string, opts PutOptions) (PutResult, error)

	CreateMultipartUpload(ctx context.Context, bucket, key string, opts PutOptions) (uploadID string, err error)
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, size int64, contentMD5 string, checksumAlgorithm string) (PartResult, error)
	UploadPartCopy(ctx context.Context, bucket, key, uploadID string, partNumber int32, sourceBucket, sourceKey, sourceVersionID string, byteRange string) (PartResult, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) (PutResult, error)
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error

	DeleteObject(ctx context.Context, bucket, key, versionID string) error
}

// LocalStoreClient is the opaque local filesystem transport the pipeline
// stages consume (§1). It owns symlink handling, which the pipeline itself
// does not implement. It does no MIME-type guessing.
type LocalStoreClient interface {
	List(ctx context.Context, root string, followSymlinks bool) (<-chan Entry, <-chan error)

	Stat(ctx context.Context, root, key string) (HeadResult, error)
	Open(ctx context.Context, root, key string) (io.ReadCloser, HeadResult, error)

	WriteAtomic(ctx context.Context, root, key string, body io.Reader, size int64, lastModified time.Time) (PutResult, error)
	Remove(ctx context.Context, root, key string) error
}
