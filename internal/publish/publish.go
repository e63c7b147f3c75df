// Package publish uploads converted splits to S3-compatible storage.
package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config carries the connection settings for a dataset bucket.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix namespaces every uploaded object, typically the run ID, so
	// repeated runs cannot overwrite each other's objects.
	Prefix string
}

// Publisher copies a split's committed files into a bucket so trainers can
// pull the dataset without filesystem access to the converting host.
type Publisher struct {
	client *minio.Client
	bucket string
	region string
	prefix string

	initOnce sync.Once
	initErr  error
}

// New validates cfg and builds a Publisher. No connection is made until
// the first upload.
func New(cfg Config) (*Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("publish: endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("publish: access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("publish: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("publish: init client: %w", err)
	}

	return &Publisher{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is nil")
	}
	p.initOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucket)
		if err != nil {
			p.initErr = err
			return
		}
		if exists {
			return
		}
		p.initErr = p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
	})
	return p.initErr
}

// UploadSplit uploads every regular file in dir under the split's key
// space and returns how many objects it put. Names are uploaded in sorted
// order so retries after a partial failure re-cover the same ground.
func (p *Publisher) UploadSplit(ctx context.Context, split, dir string) (int, error) {
	if p == nil {
		return 0, fmt.Errorf("publish: publisher is nil")
	}
	if err := p.ensureBucket(ctx); err != nil {
		return 0, fmt.Errorf("publish: ensure bucket %s: %w", p.bucket, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("publish: read split dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	uploaded := 0
	for _, name := range names {
		key := p.objectKey(split, name)
		_, err := p.client.FPutObject(ctx, p.bucket, key, filepath.Join(dir, name), minio.PutObjectOptions{
			ContentType: contentType(name),
		})
		if err != nil {
			return uploaded, fmt.Errorf("publish: upload %s: %w", key, err)
		}
		uploaded++
	}
	return uploaded, nil
}

func (p *Publisher) objectKey(split, name string) string {
	key := strings.TrimLeft(strings.TrimSpace(split), "/") + "/" + strings.TrimSpace(name)
	if p.prefix != "" {
		key = p.prefix + "/" + key
	}
	return key
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".arrow":
		return "application/vnd.apache.arrow.file"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
