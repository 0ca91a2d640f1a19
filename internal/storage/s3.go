package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/survivornet/beacon/backend/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"
)

func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

// MediaStore fetches and stores broadcast media in S3. It implements
// extract.MediaFetcher. Concurrent fetches of the same URI are collapsed
// into one request; retried batches re-download the same media often.
type MediaStore struct {
	client *s3.Client
	bucket string
	group  singleflight.Group
}

// NewMediaStore creates a media store on the given client and bucket.
func NewMediaStore(client *s3.Client, bucket string) *MediaStore {
	return &MediaStore{client: client, bucket: bucket}
}

type fetched struct {
	data        []byte
	contentType string
}

// Fetch downloads the object behind uri. The uri may be an s3://bucket/key
// URI or a bare object key in the configured bucket.
func (m *MediaStore) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	v, err, _ := m.group.Do(uri, func() (any, error) {
		bucket, key := m.resolve(uri)

		// Transient S3 errors would otherwise fail the whole extraction.
		result, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (*s3.GetObjectOutput, error) {
			return m.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get %s from S3: %w", uri, err)
		}
		defer result.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, result.Body); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", uri, err)
		}

		contentType := ""
		if result.ContentType != nil {
			contentType = *result.ContentType
		}
		return fetched{data: buf.Bytes(), contentType: contentType}, nil
	})
	if err != nil {
		return nil, "", err
	}

	f := v.(fetched)
	return f.data, f.contentType, nil
}

// Put uploads media under path/key with the extension of name and returns
// the stored object's s3:// URI.
func (m *MediaStore) Put(ctx context.Context, path, name, key string, file io.ReadSeeker) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	mimeType := mime.TypeByExtension("." + ext)

	objectKey := fmt.Sprintf("%s/%s.%s", path, key, ext)
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(objectKey),
		Body:        file,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", objectKey, err)
	}

	return fmt.Sprintf("s3://%s/%s", m.bucket, objectKey), nil
}

func (m *MediaStore) resolve(uri string) (bucket, key string) {
	if rest, ok := strings.CutPrefix(uri, "s3://"); ok {
		if bucket, key, ok := strings.Cut(rest, "/"); ok {
			return bucket, key
		}
	}
	return m.bucket, uri
}
