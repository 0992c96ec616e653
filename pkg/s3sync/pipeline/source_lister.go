package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
)

// ListSource is the SourceLister stage (§4.3). For a plain (non-versioned)
// run it streams entries straight off the underlying store, already in key
// order. For a versioned run (EnableVersioning) it instead buffers the full
// version listing so it can replay each key's versions (and any
// interleaved delete markers) in chronological order, oldest first, which a
// single paginated ListObjectVersions call cannot guarantee across page
// boundaries. The returned channel is closed after the last object (or
// after an error is sent on the error channel, whichever comes first).
func ListSource(ctx context.Context, cfg config.Config, source Endpoint, logger *logging.Logger) (<-chan objectref.ObjectRef, <-chan error) {
	out := make(chan objectref.ObjectRef, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		var err error
		switch {
		case cfg.EnableVersioning && source.Path.Remote:
			err = listSourceVersioned(ctx, cfg, source, out, logger)
		case source.Path.Remote:
			err = listSourceRemoteFlat(ctx, cfg, source, out)
		default:
			err = listSourceLocalFlat(ctx, source, cfg.FollowSymlinks, out)
		}
		if err != nil {
			errs <- err
		}
	}()

	return out, errs
}

func listSourceRemoteFlat(ctx context.Context, cfg config.Config, source Endpoint, out chan<- objectref.ObjectRef) error {
	var continuationToken string
	for {
		page, err := source.Remote.ListObjectsV2(ctx, source.Bucket(), source.Prefix(), continuationToken, int32(cfg.MaxKeys))
		if err != nil {
			return fmt.Errorf("source listing failed: %w", err)
		}

		for _, entry := range page.Entries {
			ref := objectref.ObjectRef{
				Key:          stripPrefix(source.Prefix(), entry.Key),
				LastModified: entry.LastModified,
				Size:         entry.Size,
				ETag:         entry.ETag,
			}
			select {
			case out <- ref:
			case <-ctx.Done():
				return nil
			}
		}

		if !page.IsTruncated {
			return nil
		}
		continuationToken = page.NextContinuationToken
	}
}

func listSourceLocalFlat(ctx context.Context, source Endpoint, followSymlinks bool, out chan<- objectref.ObjectRef) error {
	entries, errs := source.Local.List(ctx, source.Prefix(), followSymlinks)
	for entry := range entries {
		ref := objectref.ObjectRef{
			Key:          entry.Key,
			LastModified: entry.LastModified,
			Size:         entry.Size,
		}
		select {
		case out <- ref:
		case <-ctx.Done():
			return nil
		}
	}
	return <-errs
}

// listSourceVersioned paginates ListObjectVersions to completion, groups the
// results by key, sorts each key's versions (and interleaved delete
// markers) chronologically ascending, and emits them key by key in
// lexicographic key order. S3 itself returns each key's versions in
// descending LastModified order, so a naive per-page replay would emit
// newest-first; grouping across all pages before sorting is what makes
// replay order correct regardless of how pagination splits a single key's
// version history.
func listSourceVersioned(ctx context.Context, cfg config.Config, source Endpoint, out chan<- objectref.ObjectRef, logger *logging.Logger) error {
	grouped := make(map[string][]store.Entry)

	var keyMarker, versionIDMarker string
	for {
		page, err := source.Remote.ListObjectVersions(ctx, source.Bucket(), source.Prefix(), keyMarker, versionIDMarker, int32(cfg.MaxKeys))
		if err != nil {
			return fmt.Errorf("source version listing failed: %w", err)
		}

		for _, entry := range page.Entries {
			grouped[entry.Key] = append(grouped[entry.Key], entry)
		}

		if !page.IsTruncated {
			break
		}
		keyMarker = page.NextContinuationToken
		versionIDMarker = page.NextVersionIDMarker

		if ctx.Err() != nil {
			return nil
		}
	}

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		versions := grouped[key]
		sort.Slice(versions, func(i, j int) bool {
			return versions[i].LastModified.Before(versions[j].LastModified)
		})

		versions = restrictToPointInTime(versions, cfg.PointInTime)

		for _, version := range versions {
			ref := objectref.ObjectRef{
				Key:            stripPrefix(source.Prefix(), version.Key),
				VersionID:      version.VersionID,
				LastModified:   version.LastModified,
				Size:           version.Size,
				ETag:           version.ETag,
				IsDeleteMarker: version.IsDeleteMarker,
			}
			select {
			case out <- ref:
			case <-ctx.Done():
				return nil
			}
		}
	}

	return nil
}

// restrictToPointInTime, when pointInTime is non-zero, keeps only the single
// most recent version at or before it (including a delete marker), matching
// the "most recent version as of an instant" semantics original_source's
// point_in_time option implements. versions must already be sorted
// chronologically ascending.
func restrictToPointInTime(versions []store.Entry, pointInTime time.Time) []store.Entry {
	if pointInTime.IsZero() {
		return versions
	}

	var selected *store.Entry
	for i := range versions {
		if versions[i].LastModified.After(pointInTime) {
			break
		}
		selected = &versions[i]
	}
	if selected == nil {
		return nil
	}
	return []store.Entry{*selected}
}
