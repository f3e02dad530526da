// Package s3 implements blob storage on Amazon S3 or S3-compatible object
// storage (MinIO, Localstack, and friends via a custom endpoint).
//
// Object keys mirror the workspace tree: the storage key
// "agent-scout/private/notes.md" becomes the object key
// "<keyPrefix>agent-scout/private/notes.md". PutObject replaces an object
// in one step, so the store's atomic-write contract holds natively.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/atelierhq/wardenfs/pkg/blob"
)

// S3Store stores blobs as objects in one bucket.
//
// Thread safety: the underlying S3 client is safe for concurrent use.
// Concurrent writes to the same key settle last-write-wins on the S3 side.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// Config holds S3-specific settings.
type Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// New builds the AWS client from config and verifies bucket access.
// The bucket must already exist.
func New(ctx context.Context, cfg Config) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 blob store: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 blob store: region is required")
	}

	var loadOptions []func(*awsconfig.LoadOptions) error
	loadOptions = append(loadOptions, awsconfig.WithRegion(cfg.Region))

	// Static credentials are optional; without them the default AWS
	// credential chain applies (environment, shared config, IAM role).
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// Path-style addressing is required by most S3-compatible servers.
		o.UsePathStyle = cfg.UsePathStyle || cfg.Endpoint != ""
	})

	store := &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return store, nil
}

func (s *S3Store) objectKey(key string) string {
	return s.keyPrefix + key
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

func (s *S3Store) Read(ctx context.Context, key string) ([]byte, blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, blob.Info{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
		}
		return nil, blob.Info{}, fmt.Errorf("failed to get object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, blob.Info{}, fmt.Errorf("failed to read object body: %w", err)
	}

	info := blob.Info{
		Name:      path.Base(key),
		SizeBytes: uint64(len(data)),
	}
	if out.LastModified != nil {
		info.ModTime = *out.LastModified
		info.CreatedAt = *out.LastModified
	}
	return data, info, nil
}

// WriteAtomic uploads the blob with a single PutObject. S3 replaces the
// object atomically: readers see the previous version until the put
// completes, then the new one.
func (s *S3Store) WriteAtomic(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Delete removes the object. S3 DeleteObject succeeds for absent keys, so
// the idempotency contract comes for free.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List pages through the direct children of the directory key using a
// delimiter so nested folders do not leak into the listing.
func (s *S3Store) List(ctx context.Context, dirKey string) ([]blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := s.objectKey(strings.TrimSuffix(dirKey, "/") + "/")

	var infos []blob.Info
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" {
				continue
			}
			info := blob.Info{Name: name}
			if obj.Size != nil {
				info.SizeBytes = uint64(*obj.Size)
			}
			if obj.LastModified != nil {
				info.ModTime = *obj.LastModified
				info.CreatedAt = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *S3Store) Stat(ctx context.Context, key string) (blob.Info, error) {
	if err := ctx.Err(); err != nil {
		return blob.Info{}, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return blob.Info{}, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
		}
		return blob.Info{}, fmt.Errorf("failed to head object: %w", err)
	}

	info := blob.Info{Name: path.Base(key)}
	if out.ContentLength != nil {
		info.SizeBytes = uint64(*out.ContentLength)
	}
	if out.LastModified != nil {
		info.ModTime = *out.LastModified
		info.CreatedAt = *out.LastModified
	}
	return info, nil
}

// Close is a no-op; the S3 client holds no connections to release.
func (s *S3Store) Close() error {
	return nil
}
