package awsutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type mockS3API struct {
	body        string
	contentType string
	err         error
	gotBucket   string
	gotKey      string
}

func (m *mockS3API) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.gotBucket = aws.ToString(params.Bucket)
	m.gotKey = aws.ToString(params.Key)
	if m.err != nil {
		return nil, m.err
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(strings.NewReader(m.body)),
		ContentType: aws.String(m.contentType),
	}, nil
}

func TestS3Client_ReadObject(t *testing.T) {
	mock := &mockS3API{body: "jpeg-bytes", contentType: "image/jpeg"}
	client := NewS3Client(mock)

	data, ct, err := client.ReadObject(context.Background(), "radar-bucket", "org/1/file.jpg", 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "jpeg-bytes" || ct != "image/jpeg" {
		t.Errorf("got %q/%q", data, ct)
	}
	if mock.gotBucket != "radar-bucket" || mock.gotKey != "org/1/file.jpg" {
		t.Errorf("requested %s/%s", mock.gotBucket, mock.gotKey)
	}
}

func TestS3Client_ReadObject_Errors(t *testing.T) {
	_, _, err := NewS3Client(&mockS3API{err: &types.NoSuchKey{}}).ReadObject(context.Background(), "b", "k", 10)
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("err = %v, want ErrObjectNotFound", err)
	}

	_, _, err = NewS3Client(&mockS3API{body: "0123456789A"}).ReadObject(context.Background(), "b", "k", 10)
	if !errors.Is(err, ErrObjectTooLarge) {
		t.Errorf("err = %v, want ErrObjectTooLarge", err)
	}

	_, _, err = NewS3Client(&mockS3API{err: errors.New("throttled")}).ReadObject(context.Background(), "b", "k", 10)
	if err == nil || errors.Is(err, ErrObjectNotFound) {
		t.Errorf("err = %v, want generic error", err)
	}
}

func TestParseObjectRef(t *testing.T) {
	tests := []struct {
		ref        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3://radar/org/1/a.jpg", "radar", "org/1/a.jpg", false},
		{"https://radar.s3.eu-west-3.amazonaws.com/org/1/a%20b.jpg", "radar", "org/1/a b.jpg", false},
		{"https://s3.eu-west-3.amazonaws.com/radar/org/1/a.jpg", "radar", "org/1/a.jpg", false},
		{"org/1/a.jpg", "default", "org/1/a.jpg", false},
		{"/org/1/a.jpg", "default", "org/1/a.jpg", false},
		{"s3://radar", "", "", true},
		{"https://example.com/a.jpg", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			bucket, key, err := ParseObjectRef(tt.ref, "default")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("got %s/%s, want %s/%s", bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}

	if _, _, err := ParseObjectRef("org/1/a.jpg", ""); err == nil {
		t.Error("expected error without default bucket")
	}
}
