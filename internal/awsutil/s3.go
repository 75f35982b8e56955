package awsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectNotFound is returned when the key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ErrObjectTooLarge is returned when an object exceeds the read limit.
var ErrObjectTooLarge = errors.New("object too large")

// S3Client defines S3 operations used by Lambda handlers.
type S3Client interface {
	// ReadObject downloads an object fully, up to maxBytes, and returns its
	// bytes and stored content type.
	ReadObject(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, string, error)
}

// S3API is the subset of the S3 client we use.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Client struct {
	client S3API
}

// NewS3Client creates an S3Client from an S3 service client.
func NewS3Client(client S3API) S3Client {
	return &s3Client{client: client}
}

func (c *s3Client) ReadObject(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, string, error) {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", fmt.Errorf("get object %s: %w", key, ErrObjectNotFound)
		}
		return nil, "", fmt.Errorf("get object %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("read object %s: %w", key, ErrObjectTooLarge)
	}
	return data, aws.ToString(resp.ContentType), nil
}

// ParseObjectRef splits a stored file reference into bucket and key. It
// accepts s3://bucket/key, virtual-hosted S3 URLs, and bare keys, which
// resolve against defaultBucket.
func ParseObjectRef(ref, defaultBucket string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", fmt.Errorf("empty object reference")
	}

	if strings.HasPrefix(ref, "s3://") {
		rest := strings.TrimPrefix(ref, "s3://")
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return "", "", fmt.Errorf("invalid s3 reference %q", ref)
		}
		return bucket, key, nil
	}

	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", "", fmt.Errorf("parse object url: %w", err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if key, err = url.PathUnescape(key); err != nil {
			return "", "", fmt.Errorf("unescape object key: %w", err)
		}
		host := u.Hostname()
		if i := strings.Index(host, ".s3."); i > 0 {
			return host[:i], key, nil
		}
		if strings.HasPrefix(host, "s3.") {
			bucket, k, ok := strings.Cut(key, "/")
			if !ok {
				return "", "", fmt.Errorf("invalid s3 url %q", ref)
			}
			return bucket, k, nil
		}
		return "", "", fmt.Errorf("unsupported object url host %q", host)
	}

	if defaultBucket == "" {
		return "", "", fmt.Errorf("no bucket for key %q", ref)
	}
	return defaultBucket, strings.TrimPrefix(ref, "/"), nil
}
