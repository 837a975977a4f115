package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectPutter is the slice of the S3 client a destination uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads artifacts to an S3-compatible bucket as
// <prefix>/<name>.
type S3Destination struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Destination loads the default AWS credential chain for region. A
// non-empty endpoint switches to path-style addressing against that URL,
// as MinIO and other S3-compatible stores expect.
func NewS3Destination(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: bucket, prefix: prefix}, nil
}

// Key returns the object key name is stored under.
func (d *S3Destination) Key(name string) string {
	return path.Join(d.prefix, name)
}

func (d *S3Destination) String() string {
	return fmt.Sprintf("s3://%s/%s", d.bucket, d.prefix)
}

// Write uploads data, typed by the artifact's extension.
func (d *S3Destination) Write(ctx context.Context, name string, data []byte) error {
	key := d.Key(name)
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentTypeFor(name)),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", d.bucket, key, err)
	}
	return nil
}

func contentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".jsonl":
		return "application/x-ndjson"
	case ".json":
		return "application/json"
	case ".drawio", ".xml":
		return "application/xml"
	}
	return "application/octet-stream"
}
