package aws

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

const defaultSignedURLExpiry = time.Hour

// s3API is the slice of the S3 client this adapter uses.
type s3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// presignAPI is the slice of the S3 presign client this adapter uses.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignDeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignHeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Storage implements cloudjack.ObjectStorage on S3.
type Storage struct {
	client  s3API
	presign presignAPI
	region  string
	wrap    errorWrapper
}

var _ cloudjack.ObjectStorage = (*Storage)(nil)

// NewStorage builds the S3 adapter.
func NewStorage(cfg awssdk.Config) *Storage {
	client := s3.NewFromConfig(cfg)
	return &Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		region:  cfg.Region,
		wrap:    newErrorWrapper(cloudjack.ServiceStorage, storageErrorKinds),
	}
}

func (s *Storage) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{Bucket: awssdk.String(bucket)}
	// us-east-1 is the one region that rejects an explicit location
	// constraint.
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(s.region),
		}
	}
	_, err := s.client.CreateBucket(ctx, input)
	return s.wrap.wrap(err, "CreateBucket", bucket)
}

func (s *Storage) DeleteBucket(ctx context.Context, bucket string) error {
	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: awssdk.String(bucket)})
	return s.wrap.wrap(err, "DeleteBucket", bucket)
}

func (s *Storage) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, s.wrap.wrap(err, "ListBuckets", "")
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, awssdk.ToString(b.Name))
	}
	return names, nil
}

func (s *Storage) UploadObject(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
		Body:   body,
	})
	return s.wrap.wrap(err, "PutObject", objectRef(bucket, key))
}

func (s *Storage) DownloadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return nil, s.wrap.wrap(err, "GetObject", objectRef(bucket, key))
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, s.wrap.wrap(err, "GetObject", objectRef(bucket, key))
	}
	return data, nil
}

func (s *Storage) DownloadFile(ctx context.Context, bucket, key, path string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return s.wrap.wrap(err, "GetObject", objectRef(bucket, key))
	}
	defer out.Body.Close()
	file, err := os.Create(path)
	if err != nil {
		return s.wrap.wrap(err, "GetObject", objectRef(bucket, key))
	}
	if _, err := io.Copy(file, out.Body); err != nil {
		file.Close()
		return s.wrap.wrap(err, "GetObject", objectRef(bucket, key))
	}
	return s.wrap.wrap(file.Close(), "GetObject", objectRef(bucket, key))
}

func (s *Storage) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	})
	return s.wrap.wrap(err, "DeleteObject", objectRef(bucket, key))
}

func (s *Storage) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	var continuation *string
	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            awssdk.String(bucket),
			ContinuationToken: continuation,
		}
		if prefix != "" {
			input.Prefix = awssdk.String(prefix)
		}
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, s.wrap.wrap(err, "ListObjectsV2", bucket)
		}
		for _, obj := range out.Contents {
			keys = append(keys, awssdk.ToString(obj.Key))
		}
		if !awssdk.ToBool(out.IsTruncated) {
			break
		}
		continuation = out.NextContinuationToken
	}
	return keys, nil
}

// SignedURL presigns a single-object request for the given HTTP method.
func (s *Storage) SignedURL(ctx context.Context, bucket, key string, opts cloudjack.SignedURLOptions) (string, error) {
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = "GET"
	}
	expires := opts.Expires
	if expires <= 0 {
		expires = defaultSignedURLExpiry
	}
	withExpiry := s3.WithPresignExpires(expires)

	var (
		req *v4.PresignedHTTPRequest
		err error
	)
	switch method {
	case "GET":
		req, err = s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: awssdk.String(bucket),
			Key:    awssdk.String(key),
		}, withExpiry)
	case "PUT":
		input := &s3.PutObjectInput{
			Bucket: awssdk.String(bucket),
			Key:    awssdk.String(key),
		}
		if opts.ContentType != "" {
			input.ContentType = awssdk.String(opts.ContentType)
		}
		req, err = s.presign.PresignPutObject(ctx, input, withExpiry)
	case "DELETE":
		req, err = s.presign.PresignDeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: awssdk.String(bucket),
			Key:    awssdk.String(key),
		}, withExpiry)
	case "HEAD":
		req, err = s.presign.PresignHeadObject(ctx, &s3.HeadObjectInput{
			Bucket: awssdk.String(bucket),
			Key:    awssdk.String(key),
		}, withExpiry)
	default:
		return "", cloudjack.NewError(cloudjack.ServiceStorage, cloudjack.KindGeneric,
			fmt.Sprintf("unsupported signed URL method %s", method)).
			WithProvider(cloudjack.ProviderAWS).
			WithOp("SignedURL").
			WithResource(objectRef(bucket, key))
	}
	if err != nil {
		return "", s.wrap.wrap(err, "SignedURL", objectRef(bucket, key))
	}
	return req.URL, nil
}

func objectRef(bucket, key string) string {
	return bucket + "/" + key
}
