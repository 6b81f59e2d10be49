package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/config"
)

const contentTypeWAV = "audio/wav"

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Store writes each output locally, then uploads it to Cloudflare R2
type R2Store struct {
	local      *LocalStore
	client     ObjectPutter
	bucketName string
	publicURL  string
}

// NewR2Store creates an R2-backed store staging files under local
func NewR2Store(cfg *config.R2Config, local *LocalStore) (*R2Store, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("R2 configuration incomplete")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("R2 bucket name is required")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return NewR2StoreWithClient(client, cfg.BucketName, cfg.PublicURL, local), nil
}

// NewR2StoreWithClient wires an existing client
func NewR2StoreWithClient(client ObjectPutter, bucketName, publicURL string, local *LocalStore) *R2Store {
	return &R2Store{
		local:      local,
		client:     client,
		bucketName: bucketName,
		publicURL:  publicURL,
	}
}

// Save stages the WAV locally and uploads it, returning the public URL
func (s *R2Store) Save(ctx context.Context, jobID, name string, samples []float64, sampleRate int) (string, error) {
	path, err := s.local.Save(ctx, jobID, name, samples, sampleRate)
	if err != nil {
		return "", err
	}
	// the local reference may be a URL when a public base is configured
	if path, err = s.local.Path(jobID, name); err != nil {
		return "", &apperr.ExportError{Name: name, Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", &apperr.ExportError{Name: name, Path: path, Err: err}
	}
	defer f.Close()

	key := ObjectKey(jobID, name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeWAV),
	})
	if err != nil {
		return "", &apperr.ExportError{Name: name, Path: key, Err: fmt.Errorf("failed to upload to R2: %w", err)}
	}

	return s.PublicURL(key), nil
}

// PublicURL returns the public CDN URL for a key
func (s *R2Store) PublicURL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, key)
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s", s.bucketName, key)
}
