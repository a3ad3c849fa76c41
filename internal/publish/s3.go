package publish

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
)

// S3API is the subset of the S3 client used for publishing.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Publisher stores artifacts in a bucket using the Maven layout. Files
// are first written under a private staging prefix and only copied to their
// final keys once all of them are staged.
type S3Publisher struct {
	target    *config.PublishTarget
	client    S3API
	stagingID func() string
}

// S3Option configures an S3Publisher.
type S3Option func(*S3Publisher)

// WithS3Client uses api instead of a client built from the credentials.
func WithS3Client(api S3API) S3Option {
	return func(p *S3Publisher) { p.client = api }
}

// WithStagingID pins the staging directory name.
func WithStagingID(id func() string) S3Option {
	return func(p *S3Publisher) { p.stagingID = id }
}

// NewS3Publisher creates a publisher for t.
func NewS3Publisher(t *config.PublishTarget, opts ...S3Option) *S3Publisher {
	p := &S3Publisher{target: t, stagingID: randomID}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// newClient builds an S3 client. Static credentials are used when the
// target names them, the default AWS chain otherwise.
func (p *S3Publisher) newClient(ctx context.Context, creds Credentials) (S3API, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if p.target.Region != "" {
		opts = append(opts, awsconfig.WithRegion(p.target.Region))
	}
	if creds.Username != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.Username, creds.Secret, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.target.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.target.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (p *S3Publisher) key(parts ...string) string {
	all := append([]string{strings.Trim(p.target.Prefix, "/")}, parts...)
	return strings.TrimPrefix(path.Join(all...), "/")
}

// Publish implements Publisher.
func (p *S3Publisher) Publish(ctx context.Context, a *Artifact, creds Credentials) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := a.files()
	if err != nil {
		return nil, err
	}
	api := p.client
	if api == nil {
		if api, err = p.newClient(ctx, creds); err != nil {
			return nil, err
		}
	}
	bucket := aws.String(p.target.Bucket)
	stageDir := p.key(".staging", p.stagingID())
	cleanup := context.WithoutCancel(ctx)

	remove := func(keys []string, what string) {
		for _, k := range keys {
			if _, err := api.DeleteObject(cleanup, &s3.DeleteObjectInput{Bucket: bucket, Key: aws.String(k)}); err != nil {
				logger.Warn("Could not remove object.", "kind", what, "key", k, "error", err)
			}
		}
	}

	var staged []string
	for _, f := range files {
		k := stageDir + "/" + f.Name
		_, err := api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      bucket,
			Key:         aws.String(k),
			Body:        bytes.NewReader(f.Data),
			ContentType: aws.String(mimetype.Detect(f.Data).String()),
		})
		if err != nil {
			remove(staged, "staged")
			return nil, fmt.Errorf("staging %s: %w", k, err)
		}
		staged = append(staged, k)
	}

	var promoted []string
	for i, f := range files {
		k := p.key(a.VersionDir(), f.Name)
		src := (&url.URL{Path: p.target.Bucket + "/" + staged[i]}).EscapedPath()
		if _, err := api.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     bucket,
			Key:        aws.String(k),
			CopySource: aws.String(src),
		}); err != nil {
			remove(promoted, "published")
			remove(staged, "staged")
			return nil, fmt.Errorf("publishing %s: %w", k, err)
		}
		promoted = append(promoted, k)
	}

	remove(staged, "staged")
	logger.Debug("Objects published.", "bucket", p.target.Bucket, "count", len(promoted))
	return promoted, nil
}
