// Command s3sync synchronizes objects between a local directory and an S3
// (or S3-compatible) bucket, or between two S3-compatible buckets, in one
// direction: source to target.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/s3sync-go/s3sync/cmd"
	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/pipeline"
	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store/localstore"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store/s3store"
)

// rootConfiguration holds the raw flag values before they're resolved into a
// config.Config. Most fields map 1:1 onto the §6 flag table; a handful (the
// byte-size and duration-ish ones) are parsed from string form so humanize
// can be used the way the teacher uses it for size flags.
var rootConfiguration struct {
	// transport
	region                         string
	endpointURL                    string
	forcePathStyle                 bool
	sourceRegion                   string
	sourceEndpointURL              string
	sourceForcePathStyle           bool
	httpsProxy                     string
	httpProxy                      string
	noVerifySSL                    bool
	disableStalledStreamProtection bool
	useAccelerate                  bool
	requesterPays                  bool

	// retries
	awsMaxAttempts             int
	initialBackoffMilliseconds int64
	forceRetryCount            int
	forceRetryIntervalMillis   int64

	// transfer sizing
	workerSize         int
	multipartThreshold string
	multipartChunksize string
	autoChunksize      bool
	inflightPartsLimit int

	// storage/metadata
	storageClass       string
	sse                string
	sseKMSKeyID        string
	sourceSSEC         string
	sourceSSECKey      string
	sourceSSECKeyMD5   string
	targetSSEC         string
	targetSSECKey      string
	targetSSECKeyMD5   string
	acl                string
	cacheControl       string
	contentDisposition string
	contentEncoding    string
	contentLanguage    string
	contentType        string
	expires            string
	metadata           map[string]string
	putLastModified    bool

	// checksums / verification
	additionalChecksumAlgorithm string
	enableAdditionalChecksum    bool
	fullObjectChecksum          bool
	disableEtagVerify           bool
	disableMultipartVerify      bool
	serverSideCopy              bool
	disableContentMD5Header    bool

	// sync behavior
	dryRun               bool
	maxKeys              int
	headEachTarget       bool
	removeModifiedFilter bool
	checkSize            bool
	checkETag            bool
	checkMtimeAndETag               bool
	checkMtimeAndAdditionalChecksum bool
	syncWithDelete       bool
	enableVersioning     bool
	pointInTime          string
	followSymlinks       bool
	warnAsError          bool
	disableTagging       bool
	syncLatestTagging    bool
	taggingValue         string

	// filters
	filterMtimeBefore string
	filterMtimeAfter  string
	filterIncludeRegex string
	filterExcludeRegex string
	filterSmallerSize string
	filterLargerSize  string

	// rate limiting
	rateLimitObjects   int
	rateLimitBandwidth string

	logLevel string

	configFile string
}

var rootCommand = &cobra.Command{
	Use:     "s3sync <source> <target>",
	Short:   "Synchronize objects between a local directory and S3, or between two S3 buckets",
	Args:    cobra.ExactArgs(2),
	PreRunE: applyFileDefaults,
	RunE:    runMain,
}

func init() {
	flags := rootCommand.Flags()

	flags.StringVar(&rootConfiguration.region, "region", "", "Target (and default source) AWS region")
	flags.StringVar(&rootConfiguration.endpointURL, "endpoint-url", "", "Target S3-compatible endpoint URL override")
	flags.BoolVar(&rootConfiguration.forcePathStyle, "force-path-style", false, "Use path-style addressing against the target endpoint")
	flags.StringVar(&rootConfiguration.sourceRegion, "source-region", "", "Source AWS region, if different from --region")
	flags.StringVar(&rootConfiguration.sourceEndpointURL, "source-endpoint-url", "", "Source S3-compatible endpoint URL override")
	flags.BoolVar(&rootConfiguration.sourceForcePathStyle, "source-force-path-style", false, "Use path-style addressing against the source endpoint")
	flags.StringVar(&rootConfiguration.httpsProxy, "https-proxy", "", "HTTPS proxy URL")
	flags.StringVar(&rootConfiguration.httpProxy, "http-proxy", "", "HTTP proxy URL")
	flags.BoolVar(&rootConfiguration.noVerifySSL, "no-verify-ssl", false, "Disable TLS certificate verification")
	flags.BoolVar(&rootConfiguration.disableStalledStreamProtection, "disable-stalled-stream-protection", false, "Disable the SDK's stalled-stream protection")
	flags.BoolVar(&rootConfiguration.useAccelerate, "use-accelerate", false, "Use S3 Transfer Acceleration endpoints")
	flags.BoolVar(&rootConfiguration.requesterPays, "requester-pays", false, "Set the requester-pays header on every request")

	flags.IntVar(&rootConfiguration.awsMaxAttempts, "aws-max-attempts", config.DefaultRetryConfig().AWSMaxAttempts, "Maximum transport-tier retry attempts per request")
	flags.Int64Var(&rootConfiguration.initialBackoffMilliseconds, "initial-backoff-milliseconds", config.DefaultRetryConfig().InitialBackoffMilliseconds, "Initial transport-tier retry backoff, in milliseconds")
	flags.IntVar(&rootConfiguration.forceRetryCount, "force-retry-count", config.DefaultForceRetryConfig().ForceRetryCount, "Additional operation-tier retries for a transferred object")
	flags.Int64Var(&rootConfiguration.forceRetryIntervalMillis, "force-retry-interval-milliseconds", config.DefaultForceRetryConfig().ForceRetryIntervalMilliseconds, "Delay between operation-tier retries, in milliseconds")

	flags.IntVar(&rootConfiguration.workerSize, "worker-size", config.DefaultWorkerSize, "Number of parallel transfer workers")
	flags.StringVar(&rootConfiguration.multipartThreshold, "multipart-threshold", "8MiB", "Object size at or above which multipart upload is used")
	flags.StringVar(&rootConfiguration.multipartChunksize, "multipart-chunksize", "8MiB", "Part size for multipart uploads")
	flags.BoolVar(&rootConfiguration.autoChunksize, "auto-chunksize", false, "Mirror the source object's own multipart part boundaries")
	flags.IntVar(&rootConfiguration.inflightPartsLimit, "inflight-parts-limit", config.DefaultTransferConfig().InflightPartsLimit, "Concurrent in-flight part operations per object, bounded by worker-size")

	flags.StringVar(&rootConfiguration.storageClass, "storage-class", "", "Target storage class")
	flags.StringVar(&rootConfiguration.sse, "sse", "", "Target server-side encryption mode (AES256, aws:kms, aws:kms:dsse)")
	flags.StringVar(&rootConfiguration.sseKMSKeyID, "sse-kms-key-id", "", "KMS key ID for sse=aws:kms or aws:kms:dsse")
	flags.StringVar(&rootConfiguration.sourceSSEC, "source-sse-c", "", "Source SSE-C algorithm")
	flags.StringVar(&rootConfiguration.sourceSSECKey, "source-sse-c-key", "", "Source SSE-C key")
	flags.StringVar(&rootConfiguration.sourceSSECKeyMD5, "source-sse-c-key-md5", "", "Source SSE-C key MD5")
	flags.StringVar(&rootConfiguration.targetSSEC, "target-sse-c", "", "Target SSE-C algorithm")
	flags.StringVar(&rootConfiguration.targetSSECKey, "target-sse-c-key", "", "Target SSE-C key")
	flags.StringVar(&rootConfiguration.targetSSECKeyMD5, "target-sse-c-key-md5", "", "Target SSE-C key MD5")
	flags.StringVar(&rootConfiguration.acl, "acl", "", "Target canned ACL")
	flags.StringVar(&rootConfiguration.cacheControl, "cache-control", "", "Target Cache-Control override")
	flags.StringVar(&rootConfiguration.contentDisposition, "content-disposition", "", "Target Content-Disposition override")
	flags.StringVar(&rootConfiguration.contentEncoding, "content-encoding", "", "Target Content-Encoding override")
	flags.StringVar(&rootConfiguration.contentLanguage, "content-language", "", "Target Content-Language override")
	flags.StringVar(&rootConfiguration.contentType, "content-type", "", "Target Content-Type override")
	flags.StringVar(&rootConfiguration.expires, "expires", "", "Target Expires override, RFC3339")
	flags.StringToStringVar(&rootConfiguration.metadata, "metadata", nil, "Target user metadata overrides, key=value")
	flags.BoolVar(&rootConfiguration.putLastModified, "put-last-modified-metadata", false, "Record the source's last-modified time as target user metadata")

	flags.StringVar(&rootConfiguration.additionalChecksumAlgorithm, "additional-checksum-algorithm", "", "Additional checksum algorithm (CRC32, CRC32C, CRC64NVME, SHA1, SHA256)")
	flags.BoolVar(&rootConfiguration.enableAdditionalChecksum, "enable-additional-checksum", false, "Require the additional checksum to match before skipping an object")
	flags.BoolVar(&rootConfiguration.fullObjectChecksum, "full-object-checksum", false, "Use full-object (rather than composed per-part) checksums where supported")
	flags.BoolVar(&rootConfiguration.disableEtagVerify, "disable-etag-verify", false, "Skip post-transfer ETag verification")
	flags.BoolVar(&rootConfiguration.disableMultipartVerify, "disable-multipart-verify", false, "Skip post-transfer multipart ETag/checksum verification")
	flags.BoolVar(&rootConfiguration.serverSideCopy, "server-side-copy", false, "Attach a CopySourceIfMatch precondition on S3-to-S3 copies")
	flags.BoolVar(&rootConfiguration.disableContentMD5Header, "disable-content-md5-header", false, "Omit the Content-MD5 request header (MD5 is still computed for ETag verification)")

	flags.BoolVar(&rootConfiguration.dryRun, "dry-run", false, "Compute what would change without transferring or deleting anything")
	flags.IntVar(&rootConfiguration.maxKeys, "max-keys", config.DefaultMaxKeys, "Page size for listing requests")
	flags.BoolVar(&rootConfiguration.headEachTarget, "head-each-target", false, "Issue an authoritative HEAD against the target for every candidate object")
	flags.BoolVar(&rootConfiguration.removeModifiedFilter, "remove-modified-filter", false, "Disable the target-modified comparison entirely (always transfer)")
	flags.BoolVar(&rootConfiguration.checkSize, "check-size", false, "Compare sizes only in the target-modified comparison (a size match skips)")
	flags.BoolVar(&rootConfiguration.checkETag, "check-etag", false, "Compare ETags instead of modification times")
	flags.BoolVar(&rootConfiguration.checkMtimeAndETag, "check-mtime-and-etag", false, "Require both modification time and ETag to match before skipping")
	flags.BoolVar(&rootConfiguration.checkMtimeAndAdditionalChecksum, "check-mtime-and-additional-checksum", false, "Require both modification time and the additional checksum to match before skipping")
	flags.BoolVar(&rootConfiguration.syncWithDelete, "delete", false, "Delete target keys with no corresponding source key")
	flags.BoolVar(&rootConfiguration.enableVersioning, "enable-versioning", false, "Replay the source's full version history, including delete markers")
	flags.StringVar(&rootConfiguration.pointInTime, "point-in-time", "", "Restrict version replay to the most recent version at or before this RFC3339 instant")
	flags.BoolVar(&rootConfiguration.followSymlinks, "follow-symlinks", false, "Follow symlinks when listing a local endpoint")
	flags.BoolVar(&rootConfiguration.warnAsError, "warn-as-error", false, "Exit with code 2 if any warning was raised")
	flags.BoolVar(&rootConfiguration.disableTagging, "disable-tagging", false, "Record the tagging policy as disabled (no transfer step reads the tagging policy; tags are not copied)")
	flags.BoolVar(&rootConfiguration.syncLatestTagging, "sync-latest-tagging", false, "Record the tagging policy as sync-latest (no transfer step reads the tagging policy; tags are not copied)")
	flags.StringVar(&rootConfiguration.taggingValue, "tagging", "", "Literal tag-set to apply to every transferred target object")

	flags.StringVar(&rootConfiguration.filterMtimeBefore, "filter-mtime-before", "", "Skip source objects modified at or after this RFC3339 instant")
	flags.StringVar(&rootConfiguration.filterMtimeAfter, "filter-mtime-after", "", "Skip source objects modified at or before this RFC3339 instant")
	flags.StringVar(&rootConfiguration.filterIncludeRegex, "filter-include-regex", "", "Only transfer keys matching this regular expression")
	flags.StringVar(&rootConfiguration.filterExcludeRegex, "filter-exclude-regex", "", "Skip keys matching this regular expression")
	flags.StringVar(&rootConfiguration.filterSmallerSize, "filter-smaller-size", "", "Only transfer objects smaller than this size")
	flags.StringVar(&rootConfiguration.filterLargerSize, "filter-larger-size", "", "Only transfer objects larger than this size")

	flags.IntVar(&rootConfiguration.rateLimitObjects, "rate-limit-objects", 0, "Maximum objects transferred per second (stored in the configuration; no limit is applied)")
	flags.StringVar(&rootConfiguration.rateLimitBandwidth, "rate-limit-bandwidth", "", "Maximum aggregate transfer bandwidth (stored in the configuration; no limit is applied)")

	flags.StringVar(&rootConfiguration.logLevel, "log-level", "warn", "Log level: disabled, error, warn, info, debug, trace")

	flags.StringVar(&rootConfiguration.configFile, "config", "", "YAML file supplying defaults for flags not given on the command line")

	cobra.EnableCommandSorting = false
	cobra.MousetrapHelpText = ""
}

// applyFileDefaults loads --config (if given) and fills in any flag the
// invocation left unset, mirroring the teacher's global-configuration-file
// precedence: a flag given on the command line always wins.
func applyFileDefaults(command *cobra.Command, arguments []string) error {
	if rootConfiguration.configFile == "" {
		return nil
	}

	defaults, err := config.LoadFileDefaults(rootConfiguration.configFile)
	if err != nil {
		return fmt.Errorf("unable to load --config %q: %w", rootConfiguration.configFile, err)
	}

	flags := command.Flags()
	setIfUnchanged := func(name, value string) error {
		if value == "" || flags.Changed(name) {
			return nil
		}
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("invalid %s value %q in --config: %w", name, value, err)
		}
		return nil
	}

	intDefault := func(name string, value int) string {
		if value <= 0 {
			return ""
		}
		return strconv.Itoa(value)
	}
	boolDefault := func(value bool) string {
		if !value {
			return ""
		}
		return "true"
	}

	for name, value := range map[string]string{
		"region":               defaults.Region,
		"endpoint-url":         defaults.EndpointURL,
		"multipart-threshold":  defaults.MultipartThreshold,
		"multipart-chunksize":  defaults.MultipartChunksize,
		"storage-class":        defaults.StorageClass,
		"log-level":            defaults.LogLevel,
		"worker-size":          intDefault("worker-size", defaults.WorkerSize),
		"max-keys":             intDefault("max-keys", defaults.MaxKeys),
		"inflight-parts-limit": intDefault("inflight-parts-limit", defaults.InflightPartsLimit),
		"aws-max-attempts":     intDefault("aws-max-attempts", defaults.AWSMaxAttempts),
		"warn-as-error":        boolDefault(defaults.WarnAsError),
	} {
		if err := setIfUnchanged(name, value); err != nil {
			return err
		}
	}

	return nil
}

func runMain(command *cobra.Command, arguments []string) error {
	logLevel, ok := logging.NameToLevel(rootConfiguration.logLevel)
	if !ok {
		return fmt.Errorf("invalid --log-level: %q", rootConfiguration.logLevel)
	}
	logging.RootLogger.SetLevel(logLevel)

	cfg, sourcePath, targetPath, err := buildConfig(arguments)
	if err != nil {
		cmd.Fatal(err, 2)
	}

	ctx := context.Background()

	source, err := buildEndpoint(ctx, sourcePath, cfg.SourceClientConfig, rootConfiguration.useAccelerate, rootConfiguration.requesterPays)
	if err != nil {
		cmd.Fatal(fmt.Errorf("unable to prepare source endpoint: %w", err), 2)
	}
	target, err := buildEndpoint(ctx, targetPath, cfg.TargetClientConfig, rootConfiguration.useAccelerate, rootConfiguration.requesterPays)
	if err != nil {
		cmd.Fatal(fmt.Errorf("unable to prepare target endpoint: %w", err), 2)
	}

	result, runErr := pipeline.Run(ctx, cfg, source, target, logging.RootLogger.Sublogger("s3sync"))
	if runErr != nil {
		cmd.Error(runErr)
		os.Exit(2)
	}

	fmt.Printf(
		"%d transferred, %d skipped, %d deleted, %d warnings, %d errors\n",
		result.Counts.SyncComplete, result.Counts.SyncSkip, result.Counts.SyncDelete,
		result.Counts.SyncWarning, result.Counts.SyncError,
	)

	switch {
	case result.HasError:
		os.Exit(1)
	case result.HasWarning && cfg.WarnAsError:
		os.Exit(2)
	}
	return nil
}

// buildConfig resolves the raw flag values into a config.Config, parsing
// byte-size flags with humanize the way the teacher parses
// --max-staging-file-size.
func buildConfig(arguments []string) (config.Config, s3path.Path, s3path.Path, error) {
	sourcePath, err := s3path.Parse(arguments[0])
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, fmt.Errorf("unable to parse source: %w", err)
	}
	targetPath, err := s3path.Parse(arguments[1])
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, fmt.Errorf("unable to parse target: %w", err)
	}

	multipartThreshold, err := parseByteSize(rootConfiguration.multipartThreshold, "multipart-threshold")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}
	multipartChunksize, err := parseByteSize(rootConfiguration.multipartChunksize, "multipart-chunksize")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}
	rateLimitBandwidth, err := parseByteSize(rootConfiguration.rateLimitBandwidth, "rate-limit-bandwidth")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}
	smallerSize, hasSmaller, err := parseOptionalByteSize(rootConfiguration.filterSmallerSize, "filter-smaller-size")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}
	largerSize, hasLarger, err := parseOptionalByteSize(rootConfiguration.filterLargerSize, "filter-larger-size")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}

	expires, err := parseOptionalTime(rootConfiguration.expires, "expires")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}
	pointInTime, err := parseOptionalTime(rootConfiguration.pointInTime, "point-in-time")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}
	mtimeBefore, err := parseOptionalTime(rootConfiguration.filterMtimeBefore, "filter-mtime-before")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}
	mtimeAfter, err := parseOptionalTime(rootConfiguration.filterMtimeAfter, "filter-mtime-after")
	if err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}

	tagging := config.TaggingDefault
	switch {
	case rootConfiguration.disableTagging:
		tagging = config.TaggingDisabled
	case rootConfiguration.syncLatestTagging:
		tagging = config.TaggingSyncLatest
	}

	sourceRegion := rootConfiguration.sourceRegion
	if sourceRegion == "" {
		sourceRegion = rootConfiguration.region
	}
	sourceEndpoint := rootConfiguration.sourceEndpointURL
	if sourceEndpoint == "" {
		sourceEndpoint = rootConfiguration.endpointURL
	}

	retry := config.RetryConfig{
		AWSMaxAttempts:             rootConfiguration.awsMaxAttempts,
		InitialBackoffMilliseconds: rootConfiguration.initialBackoffMilliseconds,
	}

	cfg := config.Config{
		Source: sourcePath,
		Target: targetPath,

		SourceClientConfig: config.ClientConfig{
			Region:                         sourceRegion,
			EndpointURL:                    sourceEndpoint,
			ForcePathStyle:                 rootConfiguration.sourceForcePathStyle || rootConfiguration.forcePathStyle,
			Retry:                          retry,
			HTTPSProxy:                     rootConfiguration.httpsProxy,
			HTTPProxy:                      rootConfiguration.httpProxy,
			NoVerifySSL:                    rootConfiguration.noVerifySSL,
			DisableStalledStreamProtection: rootConfiguration.disableStalledStreamProtection,
		},
		TargetClientConfig: config.ClientConfig{
			Region:                         rootConfiguration.region,
			EndpointURL:                    rootConfiguration.endpointURL,
			ForcePathStyle:                 rootConfiguration.forcePathStyle,
			Retry:                          retry,
			HTTPSProxy:                     rootConfiguration.httpsProxy,
			HTTPProxy:                      rootConfiguration.httpProxy,
			NoVerifySSL:                    rootConfiguration.noVerifySSL,
			DisableStalledStreamProtection: rootConfiguration.disableStalledStreamProtection,
		},

		ForceRetry: config.ForceRetryConfig{
			ForceRetryCount:                rootConfiguration.forceRetryCount,
			ForceRetryIntervalMilliseconds: rootConfiguration.forceRetryIntervalMillis,
		},

		Transfer: config.TransferConfig{
			MultipartThreshold:          multipartThreshold,
			MultipartChunksize:          multipartChunksize,
			AutoChunksize:               rootConfiguration.autoChunksize,
			StorageClass:                config.StorageClass(rootConfiguration.storageClass),
			SSE:                         config.SSEMode(rootConfiguration.sse),
			SSEKMSKeyID:                 rootConfiguration.sseKMSKeyID,
			SourceSSEC:                  rootConfiguration.sourceSSEC,
			SourceSSECKey:               rootConfiguration.sourceSSECKey,
			SourceSSECKeyMD5:            rootConfiguration.sourceSSECKeyMD5,
			TargetSSEC:                  rootConfiguration.targetSSEC,
			TargetSSECKey:               rootConfiguration.targetSSECKey,
			TargetSSECKeyMD5:            rootConfiguration.targetSSECKeyMD5,
			CannedACL:                   rootConfiguration.acl,
			AdditionalChecksumAlgorithm: checksum.Algorithm(rootConfiguration.additionalChecksumAlgorithm),
			EnableAdditionalChecksum:    rootConfiguration.enableAdditionalChecksum,
			FullObjectChecksum:          rootConfiguration.fullObjectChecksum,
			DisableMultipartVerify:      rootConfiguration.disableMultipartVerify,
			DisableEtagVerify:           rootConfiguration.disableEtagVerify,
			DryRun:                      rootConfiguration.dryRun,
			InflightPartsLimit:          rootConfiguration.inflightPartsLimit,
			ServerSideCopy:              rootConfiguration.serverSideCopy,
			DisableContentMD5Header:     rootConfiguration.disableContentMD5Header,
		},

		Filter: config.FilterConfig{
			MtimeBefore:          mtimeBefore,
			MtimeAfter:           mtimeAfter,
			IncludeRegex:         rootConfiguration.filterIncludeRegex,
			ExcludeRegex:         rootConfiguration.filterExcludeRegex,
			SmallerSize:          smallerSize,
			LargerSize:           largerSize,
			HasSmaller:           hasSmaller,
			HasLarger:            hasLarger,
			RemoveModifiedFilter:            rootConfiguration.removeModifiedFilter,
			CheckSize:                       rootConfiguration.checkSize,
			CheckETag:                       rootConfiguration.checkETag,
			CheckMtimeAndETag:               rootConfiguration.checkMtimeAndETag,
			CheckMtimeAndAdditionalChecksum: rootConfiguration.checkMtimeAndAdditionalChecksum,
		},

		WorkerSize:              rootConfiguration.workerSize,
		WarnAsError:             rootConfiguration.warnAsError,
		FollowSymlinks:          rootConfiguration.followSymlinks,
		HeadEachTarget:          rootConfiguration.headEachTarget,
		SyncWithDelete:          rootConfiguration.syncWithDelete,
		EnableVersioning:        rootConfiguration.enableVersioning,
		PutLastModifiedMetadata: rootConfiguration.putLastModified,
		MaxKeys:                 rootConfiguration.maxKeys,

		Tagging: tagging,

		RateLimitObjects:   rootConfiguration.rateLimitObjects,
		RateLimitBandwidth: rateLimitBandwidth,

		CacheControl:       rootConfiguration.cacheControl,
		ContentDisposition: rootConfiguration.contentDisposition,
		ContentEncoding:    rootConfiguration.contentEncoding,
		ContentLanguage:    rootConfiguration.contentLanguage,
		ContentType:        rootConfiguration.contentType,
		Expires:            expires,
		Metadata:           rootConfiguration.metadata,
		TaggingValue:       rootConfiguration.taggingValue,

		PointInTime: pointInTime,
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, s3path.Path{}, s3path.Path{}, err
	}

	return cfg, sourcePath, targetPath, nil
}

func parseByteSize(raw, flagName string) (int64, error) {
	value, _, err := parseOptionalByteSize(raw, flagName)
	return value, err
}

func parseOptionalByteSize(raw, flagName string) (int64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid --%s %q: %w", flagName, raw, err)
	}
	return int64(size), true, nil
}

func parseOptionalTime(raw, flagName string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected RFC3339: %w", flagName, raw, err)
	}
	return parsed, nil
}

// buildEndpoint constructs the store.ObjectStoreClient or store.LocalStoreClient
// backing one side of the run, based on whether the resolved path is remote.
func buildEndpoint(ctx context.Context, path s3path.Path, clientCfg config.ClientConfig, useAccelerate, requesterPays bool) (pipeline.Endpoint, error) {
	if !path.Remote {
		return pipeline.Endpoint{Path: path, Local: localstore.New(logging.RootLogger.Sublogger("localstore"))}, nil
	}

	client, err := s3store.New(ctx, s3store.Options{
		Region:                         clientCfg.Region,
		EndpointURL:                    clientCfg.EndpointURL,
		ForcePathStyle:                 clientCfg.ForcePathStyle,
		MaxAttempts:                    clientCfg.Retry.AWSMaxAttempts,
		HTTPSProxy:                     clientCfg.HTTPSProxy,
		HTTPProxy:                      clientCfg.HTTPProxy,
		NoVerifySSL:                    clientCfg.NoVerifySSL,
		DisableStalledStreamProtection: clientCfg.DisableStalledStreamProtection,
		UseAccelerate:                  useAccelerate,
		RequesterPays:                  requesterPays,
		Logger:                         logging.RootLogger.Sublogger("s3store"),
	})
	if err != nil {
		return pipeline.Endpoint{}, err
	}

	return pipeline.Endpoint{Path: path, Remote: client}, nil
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		cmd.Fatal(err, 2)
	}
}
