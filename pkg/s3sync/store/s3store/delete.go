package s3store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DeleteObject removes an object (or, for a versioned bucket with no
// versionID given, creates a new delete marker) — used by both DeleteWorker
// (§4.6) and version-history delete-marker replay (§4.5.4).
func (c *Client) DeleteObject(ctx context.Context, bucket, key, versionID string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	if c.requesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	_, err := c.api.DeleteObject(ctx, input)
	return classify(err, "DeleteObject")
}
