// Package s3store implements store.ObjectStoreClient against a real S3 (or
// S3-compatible) endpoint using the low-level aws-sdk-go-v2 S3 client calls
// directly — CreateMultipartUpload/UploadPart/CompleteMultipartUpload/
// AbortMultipartUpload/HeadObject/GetObject/PutObject/CopyObject/
// DeleteObject/ListObjectsV2 — rather than the SDK's bundled
// feature/s3/manager uploader, since the multipart orchestrator and its
// part-sizing logic are this repository's own subject matter (§4.5).
package s3store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
	"github.com/s3sync-go/s3sync/pkg/s3sync/syncerr"
)

// Options configures the underlying aws-sdk-go-v2 client construction. These
// fields change only how the opaque transport is built (SPEC_FULL §2); the
// core pipeline logic never inspects them.
type Options struct {
	Region                         string
	EndpointURL                    string
	ForcePathStyle                 bool
	AccessKeyID                    string
	SecretAccessKey                string
	SessionToken                   string
	MaxAttempts                    int
	HTTPSProxy                     string
	HTTPProxy                      string
	NoVerifySSL                    bool
	DisableStalledStreamProtection bool

	// UseAccelerate enables S3 Transfer Acceleration endpoints
	// (original_source tests/options/accelerate.rs, SPEC_FULL §3).
	UseAccelerate bool
	// RequesterPays sets x-amz-request-payer on every request
	// (original_source tests/options/request_payer.rs, SPEC_FULL §3).
	RequesterPays bool

	Logger *logging.Logger
}

// Client implements store.ObjectStoreClient against the AWS SDK for Go v2.
type Client struct {
	api           *s3.Client
	logger        *logging.Logger
	requesterPays bool
}

// RequesterPays reports whether every request issued by this client should
// carry x-amz-request-payer (SPEC_FULL §3, original_source
// tests/options/request_payer.rs).
func (c *Client) RequesterPays() bool {
	return c.requesterPays
}

// New constructs a Client, loading the default AWS config chain (env vars,
// shared config/credentials files, EC2/ECS role) and overriding it with any
// explicit options supplied — mirroring how every AWS SDK-based CLI tool in
// the ecosystem builds its client.
func New(ctx context.Context, opts Options) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(maxAttemptsOrDefault(opts.MaxAttempts)),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	if httpClient := buildHTTPClient(opts); httpClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(httpClient))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS configuration: %w", err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
		o.UseAccelerate = opts.UseAccelerate
		o.DisableStalledStreamProtection = opts.DisableStalledStreamProtection
	})

	return &Client{api: api, logger: opts.Logger, requesterPays: opts.RequesterPays}, nil
}

// buildHTTPClient constructs a custom *http.Client only when the caller asked
// for a proxy override or relaxed TLS verification; otherwise the SDK's
// default transport is left untouched.
func buildHTTPClient(opts Options) *http.Client {
	if opts.HTTPSProxy == "" && opts.HTTPProxy == "" && !opts.NoVerifySSL {
		return nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.NoVerifySSL {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}
	if opts.HTTPSProxy != "" || opts.HTTPProxy != "" {
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			raw := opts.HTTPProxy
			if req.URL.Scheme == "https" && opts.HTTPSProxy != "" {
				raw = opts.HTTPSProxy
			}
			if raw == "" {
				return nil, nil
			}
			return url.Parse(raw)
		}
	}

	return &http.Client{Transport: transport}
}

func maxAttemptsOrDefault(n int) int {
	if n <= 0 {
		return 10
	}
	return n
}

// classify maps an AWS SDK error into the §7 error taxonomy.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}

	var notFound *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noBucket) {
		return syncerr.New(syncerr.KindNotFound, err, message)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return syncerr.New(syncerr.KindAuth, err, message)
		case "NotFound", "NoSuchKey", "NoSuchBucket", "NoSuchUpload":
			return syncerr.New(syncerr.KindNotFound, err, message)
		case "PreconditionFailed":
			return syncerr.New(syncerr.KindPreconditionWarning, err, message)
		}
	}

	return syncerr.New(syncerr.KindTransport, err, message)
}
