package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"rulecast/internal/config"
	"rulecast/internal/fileutil"
	"rulecast/internal/services"
	"rulecast/internal/textutil"
)

// ObjectAPI is the subset of the S3 client ObjectStore uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client from storage settings. Static credentials
// are used when both keys are set; otherwise the default AWS chain applies.
func NewS3Client(ctx context.Context, cfg config.S3) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// ObjectStore keeps manifests as objects under bucket/prefix.
type ObjectStore struct {
	api    ObjectAPI
	bucket string
	prefix string
}

// NewObjectStore returns an ObjectStore.
func NewObjectStore(api ObjectAPI, bucket, prefix string) *ObjectStore {
	return &ObjectStore{api: api, bucket: bucket, prefix: prefix}
}

func (s *ObjectStore) key(documentID string) string {
	return path.Join(s.prefix, documentID+".json")
}

// Location implements Store.
func (s *ObjectStore) Location(documentID string) string {
	return "s3://" + s.bucket + "/" + s.key(documentID)
}

// Save implements Store. The manifest is fully encoded before a single
// PutObject, so the object is either absent, the previous version, or the
// complete new one.
func (s *ObjectStore) Save(ctx context.Context, m *Manifest) (string, error) {
	id, err := checkID(m)
	if err != nil {
		return "", err
	}
	data, err := fileutil.MarshalIndent(m)
	if err != nil {
		return "", services.Wrap(services.ErrIntegrity, stageName, "save", "encode manifest", err)
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "save", "s3 put", err)
	}
	return s.Location(id), nil
}

// Load implements Store.
func (s *ObjectStore) Load(ctx context.Context, documentID string) (*Manifest, error) {
	if !textutil.ValidIdentifier(documentID) {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load", fmt.Sprintf("invalid document id %q", documentID), nil)
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(documentID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "load", documentID, err)
		}
		return nil, services.Wrap(services.ErrTransient, stageName, "load", "s3 get", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load", "s3 read", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, services.Wrap(services.ErrIntegrity, stageName, "load", documentID, err)
	}
	return &m, nil
}
