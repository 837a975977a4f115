package publish

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"
)

type fakePutter struct {
	err  error
	puts []putCall
}

type putCall struct {
	Bucket, Key, ContentType, Body string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, putCall{
		Bucket:      aws.ToString(in.Bucket),
		Key:         aws.ToString(in.Key),
		ContentType: aws.ToString(in.ContentType),
		Body:        string(body),
	})
	return &s3.PutObjectOutput{}, nil
}

func TestS3DestinationWrite(t *testing.T) {
	fake := &fakePutter{}
	d := &S3Destination{client: fake, bucket: "maps", prefix: "team"}

	if err := d.Write(context.Background(), "shop/shop.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := []putCall{{Bucket: "maps", Key: "team/shop/shop.json", ContentType: "application/json", Body: "{}"}}
	if diff := cmp.Diff(want, fake.puts); diff != "" {
		t.Errorf("puts (-want +got):\n%s", diff)
	}
	if got := d.String(); got != "s3://maps/team" {
		t.Errorf("String() = %q", got)
	}
}

func TestS3DestinationWriteError(t *testing.T) {
	d := &S3Destination{client: &fakePutter{err: errors.New("access denied")}, bucket: "maps"}
	err := d.Write(context.Background(), "shop/bundle.jsonl", nil)
	if err == nil || !strings.Contains(err.Error(), "s3://maps/shop/bundle.jsonl") {
		t.Fatalf("err = %v, want the object URL", err)
	}
}
