package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Config configures the S3-compatible variant (AWS S3 and
// S3-compatible object stores via Endpoint).
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // non-empty for S3-compatible providers (e.g. MinIO)
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3 implements Adapter over AWS S3 (or an S3-compatible endpoint).
type S3 struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3 constructs an S3 adapter. With no static credentials configured
// the SDK's default credential chain applies (env vars, shared config,
// instance role).
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3{
		bucket:   cfg.Bucket,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (a *S3) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) (PutResult, error) {
	input := &s3.PutObjectInput{
		Bucket:               &a.bucket,
		Key:                  &key,
		Body:                 body,
		ContentType:          &contentType,
		Metadata:             metadata,
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}
	out, err := a.uploader.Upload(ctx, input)
	if err != nil {
		return PutResult{}, classifyS3Error(err)
	}
	result := PutResult{Location: a.bucket + "/" + key}
	if out.Location != "" {
		result.Location = out.Location
	}
	if out.ETag != nil {
		result.ETag = *out.ETag
	}
	return result, nil
}

func (a *S3) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &a.bucket, Key: &key})
	if err != nil {
		return nil, classifyS3Error(err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (a *S3) List(ctx context.Context, prefix string, sinceTime time.Time) (Iterator, error) {
	var items []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: &a.bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error(err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			lastModified := time.Time{}
			if obj.LastModified != nil {
				lastModified = *obj.LastModified
			}
			if !sinceTime.IsZero() && lastModified.Before(sinceTime) {
				continue
			}
			size := int64(0)
			if obj.Size != nil {
				size = *obj.Size
			}
			items = append(items, ObjectInfo{Key: *obj.Key, Size: size, LastModified: lastModified})
		}
	}
	return newSliceIterator(items), nil
}

func (a *S3) Delete(ctx context.Context, keys ...string) ([]DeleteOutcome, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	objects := make([]types.ObjectIdentifier, len(keys))
	for i, k := range keys {
		key := k
		objects[i] = types.ObjectIdentifier{Key: &key}
	}
	out, err := a.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: &a.bucket,
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		return nil, classifyS3Error(err)
	}
	outcomes := make([]DeleteOutcome, 0, len(keys))
	failed := make(map[string]error, len(out.Errors))
	for _, e := range out.Errors {
		if e.Key != nil {
			failed[*e.Key] = fmt.Errorf("%s: %s", awsStr(e.Code), awsStr(e.Message))
		}
	}
	for _, k := range keys {
		outcomes = append(outcomes, DeleteOutcome{Key: k, Err: failed[k]})
	}
	return outcomes, nil
}

// SetLifecycle pushes storage-class transitions and expiration rules
// to the bucket's lifecycle configuration; this is the one backend
// that honors transitions (local/GCS/Azure adapters no-op).
func (a *S3) SetLifecycle(ctx context.Context, rules []LifecycleRule) error {
	if len(rules) == 0 {
		return nil
	}
	awsRules := make([]types.LifecycleRule, 0, len(rules))
	for _, r := range rules {
		status := types.ExpirationStatusEnabled
		rule := types.LifecycleRule{
			ID:     &r.ID,
			Status: status,
			Filter: &types.LifecycleRuleFilter{
				Prefix: &r.Prefix,
			},
		}
		var transitions []types.Transition
		if r.TransitionToIADays > 0 {
			days := int32(r.TransitionToIADays)
			transitions = append(transitions, types.Transition{Days: &days, StorageClass: types.TransitionStorageClassStandardIa})
		}
		if r.TransitionToGlacierDays > 0 {
			days := int32(r.TransitionToGlacierDays)
			transitions = append(transitions, types.Transition{Days: &days, StorageClass: types.TransitionStorageClassGlacier})
		}
		if r.TransitionToDeepArchiveDays > 0 {
			days := int32(r.TransitionToDeepArchiveDays)
			transitions = append(transitions, types.Transition{Days: &days, StorageClass: types.TransitionStorageClassDeepArchive})
		}
		rule.Transitions = transitions
		if r.ExpirationDays > 0 {
			days := int32(r.ExpirationDays)
			rule.Expiration = &types.LifecycleExpiration{Days: &days}
		}
		awsRules = append(awsRules, rule)
	}

	_, err := a.client.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: &a.bucket,
		LifecycleConfiguration: &types.BucketLifecycleConfiguration{
			Rules: awsRules,
		},
	})
	if err != nil {
		return classifyS3Error(err)
	}
	return nil
}

func classifyS3Error(err error) error {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.Response.StatusCode {
		case 401, 403:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case 404:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func awsStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Adapter = (*S3)(nil)
