package pipeline

import (
	"context"
	"fmt"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
)

// BuildTargetFingerprint is the TargetLister stage (§4.2): it exhaustively
// lists the target namespace before any filter or transfer work begins,
// since every downstream decision (skip/copy/delete) depends on knowing the
// complete target state up front. The returned fingerprint is frozen before
// this function returns.
func BuildTargetFingerprint(ctx context.Context, cfg config.Config, target Endpoint, logger *logging.Logger) (*objectref.TargetFingerprint, error) {
	fingerprint := objectref.NewTargetFingerprint()

	if target.Path.Remote {
		if err := listRemoteTarget(ctx, cfg, target, fingerprint, logger); err != nil {
			return nil, err
		}
	} else {
		if err := listLocalTarget(ctx, target, fingerprint, logger); err != nil {
			return nil, err
		}
	}

	fingerprint.Freeze()
	logger.Infof("target fingerprint built: %d objects", fingerprint.Len())
	return fingerprint, nil
}

func listRemoteTarget(ctx context.Context, cfg config.Config, target Endpoint, fingerprint *objectref.TargetFingerprint, logger *logging.Logger) error {
	var continuationToken string
	for {
		page, err := target.Remote.ListObjectsV2(ctx, target.Bucket(), target.Prefix(), continuationToken, int32(cfg.MaxKeys))
		if err != nil {
			return fmt.Errorf("target listing failed: %w", err)
		}

		for _, entry := range page.Entries {
			key := stripPrefix(target.Prefix(), entry.Key)
			fingerprint.Insert(key, objectref.FingerprintEntry{
				LastModified: entry.LastModified,
				Size:         entry.Size,
				ETag:         entry.ETag,
			})
		}

		if !page.IsTruncated {
			return nil
		}
		continuationToken = page.NextContinuationToken

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func listLocalTarget(ctx context.Context, target Endpoint, fingerprint *objectref.TargetFingerprint, logger *logging.Logger) error {
	entries, errs := target.Local.List(ctx, target.Prefix(), false)
	for entry := range entries {
		fingerprint.Insert(entry.Key, objectref.FingerprintEntry{
			LastModified: entry.LastModified,
			Size:         entry.Size,
			ETag:         entry.ETag,
		})
	}
	if err := <-errs; err != nil {
		return fmt.Errorf("target listing failed: %w", err)
	}
	return nil
}
