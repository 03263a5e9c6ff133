package repository

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

// S3MirrorConfig configures an optional off-device archival copy of
// every validated license, for fleets that want a provider-side audit
// trail independent of each reader's local database.
type S3MirrorConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Mirror implements lcpdoc.LicenseRepository by uploading each
// license payload as an object keyed by its id (grounded on the
// backup package's cloud restore upload target).
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Mirror builds an S3Mirror from cfg.
func NewS3Mirror(ctx context.Context, cfg S3MirrorConfig) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 mirror: bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		awsOpts = append(awsOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		endpoint := fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Mirror{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// AddLicense implements lcpdoc.LicenseRepository.
func (m *S3Mirror) AddLicense(ctx context.Context, license *lcpdoc.License) error {
	key := m.prefix + license.ID() + ".lcpl"
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(license.Raw()),
	})
	if err != nil {
		return fmt.Errorf("mirror license %s to s3: %w", license.ID(), err)
	}
	return nil
}

// MultiRepository fans out AddLicense to several repositories,
// ignoring a secondary's error (spec §7's degrade posture
// applied to the optional archival path).
type MultiRepository struct {
	repos []lcpdoc.LicenseRepository
}

// NewMultiRepository combines repositories in order; the first is
// treated as primary and its error is returned, the rest are
// best-effort.
func NewMultiRepository(repos ...lcpdoc.LicenseRepository) *MultiRepository {
	return &MultiRepository{repos: repos}
}

func (m *MultiRepository) AddLicense(ctx context.Context, license *lcpdoc.License) error {
	var primaryErr error
	for i, repo := range m.repos {
		if err := repo.AddLicense(ctx, license); err != nil && i == 0 {
			primaryErr = err
		}
	}
	return primaryErr
}
