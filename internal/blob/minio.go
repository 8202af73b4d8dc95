package blob

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore stores objects in one MinIO bucket.
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOStore connects to endpoint and makes sure bucket exists. Objects are served
// from publicURL/bucket/name; an empty publicURL uses the endpoint.
func NewMinIOStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, publicURL string) (*MinIOStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: "us-east-1"}); err != nil {
			return nil, err
		}
		log.Printf("blob: created bucket %q", bucket)
	}

	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}
	return &MinIOStore{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *MinIOStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, name), nil
}
