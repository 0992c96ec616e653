package pipeline

import (
	"context"
	"fmt"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
	"github.com/s3sync-go/s3sync/pkg/s3sync/syncerr"
)

// Result is the terminal outcome of a Run, enough to compute the §6 exit
// code (0 clean or warnings only, 1 when any SyncError was recorded, 2 when
// warnings were raised under warn_as_error or the run failed outright).
type Result struct {
	Counts     stats.Counts
	HasError   bool
	HasWarning bool
}

// Run builds the eight-stage DAG in dependency order and drives it to a
// terminal state (§4.1's PipelineSupervisor responsibility): TargetLister
// runs first since every later stage depends on the frozen fingerprint it
// produces, then SourceLister feeds the filter chain, the HeadObjectChecker,
// and the TransferWorkerPool, with DeleteWorker running only after transfer
// work has fully drained and StatsAggregator consuming the shared events
// channel for the entire lifetime of the run.
func Run(ctx context.Context, cfg config.Config, source, target Endpoint, logger *logging.Logger) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, syncerr.New(syncerr.KindConfig, err, "invalid configuration")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	aggregator := stats.NewAggregator()
	events := make(chan stats.Event, 1024)
	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		aggregator.Run(events)
	}()

	logger.Infof("building target fingerprint for %s", target.Path.String())
	fingerprint, err := BuildTargetFingerprint(runCtx, cfg, target, logger.Sublogger("target-lister"))
	if err != nil {
		close(events)
		<-statsDone
		return Result{}, syncerr.New(syncerr.KindFatal, err, "target listing failed")
	}

	sourceRefs, sourceErrs := ListSource(runCtx, cfg, source, logger.Sublogger("source-lister"))

	seen := NewSeenKeys()
	tapped := TapSeenKeys(runCtx, sourceRefs, seen)

	chain, err := BuildFilterChain(cfg.Filter, cfg.Transfer, fingerprint)
	if err != nil {
		cancel()
		close(events)
		<-statsDone
		return Result{}, syncerr.New(syncerr.KindConfig, err, "invalid filter configuration")
	}
	filtered := RunFilterChain(runCtx, tapped, chain, events, logger.Sublogger("filter"))
	checked := RunHeadObjectChecker(runCtx, cfg, target, filtered, events, logger.Sublogger("head-checker"))

	transferErr := RunTransferWorkerPool(runCtx, cfg, source, target, checked, events, logger.Sublogger("transfer"))

	var fatal error
	if transferErr != nil {
		fatal = fmt.Errorf("transfer worker pool failed: %w", transferErr)
		cancel()
	}
	if sourceErr := <-sourceErrs; sourceErr != nil && fatal == nil {
		fatal = fmt.Errorf("source traversal failed: %w", sourceErr)
		cancel()
	}

	if fatal == nil {
		if err := RunDeleteWorker(runCtx, cfg, target, fingerprint, seen, events, logger.Sublogger("delete-worker")); err != nil {
			fatal = fmt.Errorf("delete worker failed: %w", err)
		}
	}

	close(events)
	<-statsDone

	result := Result{
		Counts:     aggregator.Counts(),
		HasError:   aggregator.HasError(),
		HasWarning: aggregator.HasWarning(),
	}

	if fatal != nil {
		return result, syncerr.New(syncerr.KindFatal, fatal, "pipeline run failed")
	}
	return result, nil
}
