package pipeline

import (
	"context"
	"sync"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
)

// SeenKeys records every key the SourceLister emitted during a run,
// independent of whether a filter later skipped it — DeleteWorker needs the
// full set, not just the ones actually transferred, since a key the
// TargetModifiedFilter skipped as already-in-sync is still present in the
// source and must not be deleted (§4.6, §8's bijection invariant).
type SeenKeys struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewSeenKeys creates an empty key set.
func NewSeenKeys() *SeenKeys {
	return &SeenKeys{keys: make(map[string]struct{})}
}

func (s *SeenKeys) record(key string) {
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
}

func (s *SeenKeys) contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// TapSeenKeys passes every ObjectRef from in through unchanged, recording
// its key into seen along the way. It's spliced in immediately downstream
// of SourceLister, before the filter chain, so the record reflects every
// key the source actually has regardless of what the filters decide.
func TapSeenKeys(ctx context.Context, in <-chan objectref.ObjectRef, seen *SeenKeys) <-chan objectref.ObjectRef {
	out := make(chan objectref.ObjectRef, 256)
	go func() {
		defer close(out)
		for ref := range in {
			seen.record(ref.Key)
			select {
			case out <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// RunDeleteWorker is the DeleteWorker stage (§4.1 row 6, §4.6): once the
// transfer phase has fully drained, it walks the frozen target fingerprint
// and deletes every key sync_with_delete says is target-only (not present
// anywhere in the run's observed source keys).
func RunDeleteWorker(ctx context.Context, cfg config.Config, target Endpoint, fingerprint *objectref.TargetFingerprint, seen *SeenKeys, events chan<- stats.Event, logger *logging.Logger) error {
	if !cfg.SyncWithDelete {
		return nil
	}

	for _, key := range fingerprint.Keys() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if seen.contains(key) {
			continue
		}

		if cfg.Transfer.DryRun {
			logger.Infof("dry-run: would delete target-only key %s", key)
			sendEvent(ctx, events, stats.Event{Kind: stats.SyncDelete, Key: key})
			continue
		}

		var err error
		if target.Path.Remote {
			err = target.Remote.DeleteObject(ctx, target.Bucket(), joinKey(target.Prefix(), key), "")
		} else {
			err = target.Local.Remove(ctx, target.Prefix(), key)
		}
		if err != nil {
			logger.Errorf("unable to delete target-only key %s: %v", key, err)
			sendEvent(ctx, events, stats.Event{Kind: stats.SyncError, Key: key, Reason: err.Error()})
			continue
		}

		logger.Debugf("deleted target-only key %s", key)
		sendEvent(ctx, events, stats.Event{Kind: stats.SyncDelete, Key: key})
	}

	return nil
}
