package s3store

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
)

// PutObject performs a single-shot upload (§4.5.1's SINGLE decision).
func (c *Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts store.PutOptions) (store.PutResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	applyPutOptions(input, opts)
	if c.requesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	output, err := c.api.PutObject(ctx, input)
	if err != nil {
		return store.PutResult{}, classify(err, "PutObject")
	}

	algorithm, value := objectChecksumFromPut(output)
	return store.PutResult{
		ETag:              aws.ToString(output.ETag),
		ChecksumAlgorithm: algorithm,
		ChecksumValue:     value,
		VersionID:         aws.ToString(output.VersionId),
	}, nil
}

// CopyObject performs a server-side S3→S3 copy of one object, applying
// CopySourceIfMatch when TransferConfig.ServerSideCopy is set (SPEC_FULL §3)
// so a concurrent external modification of the source surfaces as a
// PreconditionWarning rather than copying stale bytes.
func (c *Client) CopyObject(ctx context.Context, sourceBucket, sourceKey, sourceVersionID, targetBucket, targetKey string, opts store.PutOptions) (store.PutResult, error) {
	source := sourceBucket + "/" + sourceKey
	if sourceVersionID != "" {
		source += "?versionId=" + sourceVersionID
	}

	input := &s3.CopyObjectInput{
		Bucket:     aws.String(targetBucket),
		Key:        aws.String(targetKey),
		CopySource: aws.String(source),
	}
	if opts.CopySourceIfMatch != "" {
		input.CopySourceIfMatch = aws.String(opts.CopySourceIfMatch)
	}
	applyCopyPutOptions(input, opts)
	if c.requesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	output, err := c.api.CopyObject(ctx, input)
	if err != nil {
		return store.PutResult{}, classify(err, "CopyObject")
	}

	var etag string
	if output.CopyObjectResult != nil {
		etag = aws.ToString(output.CopyObjectResult.ETag)
	}
	return store.PutResult{ETag: etag, VersionID: aws.ToString(output.VersionId)}, nil
}

func applyPutOptions(input *s3.PutObjectInput, opts store.PutOptions) {
	if opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(opts.StorageClass)
	}
	if opts.SSE != "" {
		input.ServerSideEncryption = types.ServerSideEncryption(opts.SSE)
	}
	if opts.SSEKMSKeyID != "" {
		input.SSEKMSKeyId = aws.String(opts.SSEKMSKeyID)
	}
	if opts.SSECustomerKey != "" {
		input.SSECustomerKey = aws.String(opts.SSECustomerKey)
		input.SSECustomerKeyMD5 = aws.String(opts.SSECustomerKeyMD5)
	}
	if opts.CannedACL != "" {
		input.ACL = types.ObjectCannedACL(opts.CannedACL)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if opts.ContentDisposition != "" {
		input.ContentDisposition = aws.String(opts.ContentDisposition)
	}
	if opts.ContentEncoding != "" {
		input.ContentEncoding = aws.String(opts.ContentEncoding)
	}
	if opts.ContentLanguage != "" {
		input.ContentLanguage = aws.String(opts.ContentLanguage)
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if !opts.Expires.IsZero() {
		input.Expires = aws.Time(opts.Expires)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	if opts.Tagging != "" {
		input.Tagging = aws.String(opts.Tagging)
	}
	if opts.ContentMD5 != "" {
		input.ContentMD5 = aws.String(opts.ContentMD5)
	}
	if opts.ChecksumAlgorithm != "" {
		input.ChecksumAlgorithm = types.ChecksumAlgorithm(opts.ChecksumAlgorithm)
	}
}

func applyCopyPutOptions(input *s3.CopyObjectInput, opts store.PutOptions) {
	if opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(opts.StorageClass)
	}
	if opts.SSE != "" {
		input.ServerSideEncryption = types.ServerSideEncryption(opts.SSE)
	}
	if opts.SSEKMSKeyID != "" {
		input.SSEKMSKeyId = aws.String(opts.SSEKMSKeyID)
	}
	if opts.CannedACL != "" {
		input.ACL = types.ObjectCannedACL(opts.CannedACL)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
		input.MetadataDirective = types.MetadataDirectiveReplace
	}
	if opts.Tagging != "" {
		input.Tagging = aws.String(opts.Tagging)
		input.TaggingDirective = types.TaggingDirectiveReplace
	}
}

func objectChecksumFromPut(output *s3.PutObjectOutput) (algorithm, value string) {
	return firstChecksum(output.ChecksumCRC32, output.ChecksumCRC32C, output.ChecksumSHA1, output.ChecksumSHA256)
}
