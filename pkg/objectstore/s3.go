package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Backend stores objects in a single S3 (or S3-compatible) bucket, one
// object key per ObjectID. S3 has first-class content-type and user-metadata
// support but no independent "directory" objects: a container's existence is
// entirely implicit in whether any key shares its prefix.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend loads the default AWS config chain (environment, shared
// config, EC2/ECS role) and returns a backend bound to bucket.
func NewS3Backend(ctx context.Context, bucket string, endpoint string) (*S3Backend, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Backend{client: client, bucket: bucket}, nil
}

func (b *S3Backend) Capabilities() Capabilities {
	return Capabilities{
		HasIndependentDirObjects:          false,
		ProvidesObjectValidators:          true,
		SupportsNativeContentTypeMetadata: true,
	}
}

func (b *S3Backend) Get(ctx context.Context, id ObjectID) (*Object, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(string(id)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}

	meta := Metadata{UserMeta: out.Metadata, Size: aws.ToInt64(out.ContentLength)}
	if out.ContentType != nil {
		meta.ContentType = *out.ContentType
	}
	if out.ETag != nil {
		meta.ETag = strings.Trim(*out.ETag, `"`)
	}
	if out.LastModified != nil {
		meta.LastModified = *out.LastModified
	}
	return &Object{ID: id, Metadata: meta, Data: data}, nil
}

func (b *S3Backend) Exists(ctx context.Context, id ObjectID) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(string(id)),
	})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, err
}

func (b *S3Backend) Put(ctx context.Context, id ObjectID, data []byte, meta Metadata) error {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(string(id)),
		Body:     bytes.NewReader(data),
		Metadata: meta.UserMeta,
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}
	_, err := b.client.PutObject(ctx, input)
	return err
}

func (b *S3Backend) Delete(ctx context.Context, id ObjectID) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(string(id)),
	})
	return err
}

func (b *S3Backend) List(ctx context.Context, prefix ObjectID) ([]ObjectID, error) {
	var out []ObjectID
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(string(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key != string(prefix) {
				out = append(out, ObjectID(key))
			}
		}
	}
	return out, nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
