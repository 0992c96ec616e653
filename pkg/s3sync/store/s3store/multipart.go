package s3store

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
)

// CreateMultipartUpload begins the three-phase multipart protocol (§4.5.2
// state Init → Initiated), carrying forward SSE, storage class, ACL, and
// user metadata onto the upload.
func (c *Client) CreateMultipartUpload(ctx context.Context, bucket, key string, opts store.PutOptions) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	applyMultipartCreateOptions(input, opts)
	if c.requesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	output, err := c.api.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", classify(err, "CreateMultipartUpload")
	}
	return aws.ToString(output.UploadId), nil
}

// UploadPart uploads one part of an in-progress multipart upload (§4.5.2
// state Initiated → PartsInFlight). contentMD5 is empty when
// TransferConfig.DisableContentMD5Header is set; the MD5 is still computed
// locally for ETag reconstruction even when the header itself is omitted.
func (c *Client) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, size int64, contentMD5, checksumAlgorithm string) (store.PartResult, error) {
	input := &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentMD5 != "" {
		input.ContentMD5 = aws.String(contentMD5)
	}
	if checksumAlgorithm != "" {
		input.ChecksumAlgorithm = types.ChecksumAlgorithm(checksumAlgorithm)
	}
	if c.requesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	output, err := c.api.UploadPart(ctx, input)
	if err != nil {
		return store.PartResult{}, classify(err, "UploadPart")
	}

	algorithm, value := firstChecksum(output.ChecksumCRC32, output.ChecksumCRC32C, output.ChecksumSHA1, output.ChecksumSHA256)
	return store.PartResult{
		PartNumber:        partNumber,
		ETag:              aws.ToString(output.ETag),
		ChecksumAlgorithm: algorithm,
		ChecksumValue:     value,
	}, nil
}

// UploadPartCopy uploads one part of a multipart upload by copying a byte
// range from an existing object, used for S3→S3 multipart transfers.
func (c *Client) UploadPartCopy(ctx context.Context, bucket, key, uploadID string, partNumber int32, sourceBucket, sourceKey, sourceVersionID, byteRange string) (store.PartResult, error) {
	source := sourceBucket + "/" + sourceKey
	if sourceVersionID != "" {
		source += "?versionId=" + sourceVersionID
	}

	input := &s3.UploadPartCopyInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		PartNumber:      aws.Int32(partNumber),
		CopySource:      aws.String(source),
		CopySourceRange: aws.String(byteRange),
	}
	if c.requesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	output, err := c.api.UploadPartCopy(ctx, input)
	if err != nil {
		return store.PartResult{}, classify(err, "UploadPartCopy")
	}

	var etag, algorithm, value string
	if output.CopyPartResult != nil {
		etag = aws.ToString(output.CopyPartResult.ETag)
		algorithm, value = firstChecksum(
			output.CopyPartResult.ChecksumCRC32,
			output.CopyPartResult.ChecksumCRC32C,
			output.CopyPartResult.ChecksumSHA1,
			output.CopyPartResult.ChecksumSHA256,
		)
	}
	return store.PartResult{PartNumber: partNumber, ETag: etag, ChecksumAlgorithm: algorithm, ChecksumValue: value}, nil
}

// CompleteMultipartUpload finalizes the upload with the ordered list of
// (part_number, etag, optional part_checksum) tuples (§4.5.2 state
// AllPartsUploaded → Completed).
func (c *Client) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []store.CompletedPart) (store.PutResult, error) {
	completedParts := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completedParts = append(completedParts, completedPartFromResult(part))
	}

	completeInput := &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completedParts},
	}
	if c.requesterPays {
		completeInput.RequestPayer = types.RequestPayerRequester
	}
	output, err := c.api.CompleteMultipartUpload(ctx, completeInput)
	if err != nil {
		return store.PutResult{}, classify(err, "CompleteMultipartUpload")
	}

	algorithm, value := firstChecksum(output.ChecksumCRC32, output.ChecksumCRC32C, output.ChecksumSHA1, output.ChecksumSHA256)
	return store.PutResult{
		ETag:              aws.ToString(output.ETag),
		ChecksumAlgorithm: algorithm,
		ChecksumValue:     value,
		VersionID:         aws.ToString(output.VersionId),
	}, nil
}

// AbortMultipartUpload cancels an in-progress multipart upload (§4.5.2's
// parallel failure track, * → Aborting → Aborted). The worker calling this
// treats its failure as best-effort per §4.5.2 step 6.
func (c *Client) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	abortInput := &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	}
	if c.requesterPays {
		abortInput.RequestPayer = types.RequestPayerRequester
	}
	_, err := c.api.AbortMultipartUpload(ctx, abortInput)
	return classify(err, "AbortMultipartUpload")
}

func completedPartFromResult(part store.CompletedPart) types.CompletedPart {
	completed := types.CompletedPart{
		PartNumber: aws.Int32(part.PartNumber),
		ETag:       aws.String(part.ETag),
	}
	switch part.ChecksumAlgorithm {
	case "CRC32":
		completed.ChecksumCRC32 = aws.String(part.ChecksumValue)
	case "CRC32C":
		completed.ChecksumCRC32C = aws.String(part.ChecksumValue)
	case "SHA1":
		completed.ChecksumSHA1 = aws.String(part.ChecksumValue)
	case "SHA256":
		completed.ChecksumSHA256 = aws.String(part.ChecksumValue)
	}
	return completed
}

func applyMultipartCreateOptions(input *s3.CreateMultipartUploadInput, opts store.PutOptions) {
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
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	if opts.Tagging != "" {
		input.Tagging = aws.String(opts.Tagging)
	}
	if opts.ChecksumAlgorithm != "" {
		input.ChecksumAlgorithm = types.ChecksumAlgorithm(opts.ChecksumAlgorithm)
	}
}
