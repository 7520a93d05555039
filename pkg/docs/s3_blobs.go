package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Blobs is the optional remote BlobStore backend, grounded on
// dittofs/pkg/content/store/s3 for the bucket+prefix object-key layout
// and not-found/retry error classification, simplified here to the
// subset spec.md §4.3 actually needs: whole-object Get/Put/Delete/List
// over immutable content-addressed keys (no partial reads, no
// multipart — document blobs are sealed once and never appended to).
type S3Blobs struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Blobs builds an S3Blobs backend from the ambient AWS credential
// chain (environment, shared config, or attached role), matching
// dittofs's own reliance on aws-sdk-go-v2/config.LoadDefaultConfig
// rather than a bespoke credentials file format.
func NewS3Blobs(ctx context.Context, bucket, prefix string) (*S3Blobs, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("docs: load aws config: %w", err)
	}
	return &S3Blobs{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// objectName uses the same "<id>_<hex-hmac>" scheme as FSBlobs's filenames
// so List can share parseBlobFilename across both backends.
func objectName(key ContentKey) string {
	return key.ID.String() + "_" + fmt.Sprintf("%x", key.HMAC[:])
}

func (b *S3Blobs) objectKey(key ContentKey) string {
	if b.prefix == "" {
		return objectName(key)
	}
	return b.prefix + "/" + objectName(key)
}

func (b *S3Blobs) Get(ctx context.Context, key ContentKey) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    awsString(b.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("docs: s3 get: %w", err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("docs: s3 read body: %w", err)
	}
	return data, nil
}

func (b *S3Blobs) Put(ctx context.Context, key ContentKey, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &b.bucket,
		Key:    awsString(b.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("docs: s3 put: %w", err)
	}
	return nil
}

func (b *S3Blobs) Delete(ctx context.Context, key ContentKey) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &b.bucket,
		Key:    awsString(b.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("docs: s3 delete: %w", err)
	}
	return nil
}

func (b *S3Blobs) List(ctx context.Context) ([]ContentKey, error) {
	var out []ContentKey
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: &b.bucket,
		Prefix: awsString(b.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("docs: s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := *obj.Key
			if b.prefix != "" {
				name = name[len(b.prefix)+1:]
			}
			key, ok := parseBlobFilename(name + ".blob")
			if !ok {
				continue
			}
			out = append(out, key)
		}
	}
	return out, nil
}

func awsString(s string) *string { return &s }
