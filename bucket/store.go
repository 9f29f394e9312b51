// Package bucket provides an S3-compatible object storage backend for itemgate.
// It works against AWS S3, MinIO and Google Cloud Storage through its XML
// interoperability API.
package bucket

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/serviceaccount"
)

// DefaultEndpoint is the Google Cloud Storage XML API endpoint.
const DefaultEndpoint = "https://storage.googleapis.com"

// Client is the subset of the S3 API the store uses.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	PutObjectAcl(ctx context.Context, params *s3.PutObjectAclInput, optFns ...func(*s3.Options)) (*s3.PutObjectAclOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds bucket connection settings.
type Config struct {
	Bucket   string
	Endpoint string
	Region   string
	// UsePathStyle addresses objects as <endpoint>/<bucket>/<key>.
	UsePathStyle bool
	// PublicRead grants public-read on each object when it is published.
	PublicRead bool
	// PublicBaseURL, when set, replaces <endpoint>/<bucket> in public URLs.
	PublicBaseURL string
}

// NewClient builds an S3 client from the service account credentials.
func NewClient(ctx context.Context, cfg Config, acct serviceaccount.Account) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = acct.Region
	}
	if region == "" {
		region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			acct.AccessKeyID,
			acct.SecretAccessKey,
			acct.SessionToken,
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("new bucket client: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Store writes objects to a single bucket.
type Store struct {
	client     Client
	bucket     string
	publicRead bool
	urlPrefix  string
}

func New(client Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("new bucket store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("new bucket store: bucket is required")
	}

	prefix := strings.TrimRight(cfg.PublicBaseURL, "/")
	if prefix == "" {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = DefaultEndpoint
		}
		prefix = strings.TrimRight(endpoint, "/") + "/" + url.PathEscape(cfg.Bucket)
	}

	if u, err := url.Parse(prefix); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("new bucket store: invalid public url prefix %q", prefix)
	}

	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		publicRead: cfg.PublicRead,
		urlPrefix:  prefix,
	}, nil
}

// Write uploads content under name with the given content type. The body is
// buffered so the SDK can sign the payload; uploads are size-capped upstream.
func (s *Store) Write(ctx context.Context, name, contentType string, content io.Reader) (itemgate.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return itemgate.SaveResult{}, err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return itemgate.SaveResult{}, fmt.Errorf("read upload body: %w", err)
	}

	sum := sha256.Sum256(data)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return itemgate.SaveResult{}, fmt.Errorf("put object %s: %w", name, err)
	}

	return itemgate.SaveResult{BytesWritten: int64(len(data)), Etag: hex.EncodeToString(sum[:])}, nil
}

// MakePublic grants public-read on the object when configured and returns
// its public URL.
func (s *Store) MakePublic(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.publicRead {
		_, err := s.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(name),
			ACL:    types.ObjectCannedACLPublicRead,
		})
		if err != nil {
			var nsk *types.NoSuchKey
			if errors.As(err, &nsk) {
				return "", itemgate.ErrNotFound
			}
			return "", fmt.Errorf("put object acl %s: %w", name, err)
		}
	}

	return s.PublicURL(name), nil
}

// PublicURL returns the deterministic public address of an object.
func (s *Store) PublicURL(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.urlPrefix + "/" + strings.Join(segments, "/")
}

// Delete removes an object. S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}
