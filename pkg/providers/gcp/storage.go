package gcp

import (
	"context"
	"io"
	"os"

	"google.golang.org/api/option"
	gstorage "google.golang.org/api/storage/v1"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// Storage implements cloudjack.ObjectStorage on Google Cloud Storage.
// Signed URLs are produced locally from the service account key, so they
// work without any API round-trip but require explicit credentials.
type Storage struct {
	svc     *gstorage.Service
	project string
	signer  *urlSigner

	// signerErr records why the credentials cannot sign, for the
	// diagnostic when SignedURL is called anyway.
	signerErr error
	wrap      errorWrapper
}

var _ cloudjack.ObjectStorage = (*Storage)(nil)

// NewStorage builds the GCS adapter. A missing or non-service-account
// credential leaves signing unavailable; every other operation still works.
func NewStorage(ctx context.Context, cfg cloudjack.GCPConfig, extra ...option.ClientOption) (*Storage, error) {
	svc, err := gstorage.NewService(ctx, clientOptions(cfg, extra...)...)
	if err != nil {
		return nil, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderGCP,
			Message:  "creating storage client",
			Cause:    err,
		}
	}
	s := &Storage{
		svc:     svc,
		project: cfg.ProjectID,
		wrap:    newErrorWrapper(cloudjack.ServiceStorage),
	}
	if len(cfg.CredentialsJSON) > 0 {
		signer, err := newURLSigner(cfg.CredentialsJSON)
		if err != nil {
			s.signerErr = err
		} else {
			s.signer = signer
		}
	}
	return s, nil
}

func (s *Storage) CreateBucket(ctx context.Context, bucket string) error {
	_, err := s.svc.Buckets.Insert(s.project, &gstorage.Bucket{Name: bucket}).Context(ctx).Do()
	return s.wrap.wrap(err, "InsertBucket", bucket)
}

func (s *Storage) DeleteBucket(ctx context.Context, bucket string) error {
	err := s.svc.Buckets.Delete(bucket).Context(ctx).Do()
	return s.wrap.wrap(err, "DeleteBucket", bucket)
}

func (s *Storage) ListBuckets(ctx context.Context) ([]string, error) {
	var names []string
	err := s.svc.Buckets.List(s.project).Pages(ctx, func(resp *gstorage.Buckets) error {
		for _, b := range resp.Items {
			names = append(names, b.Name)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap.wrap(err, "ListBuckets", "")
	}
	return names, nil
}

func (s *Storage) UploadObject(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := s.svc.Objects.Insert(bucket, &gstorage.Object{Name: key}).
		Media(body).
		Context(ctx).Do()
	return s.wrap.wrap(err, "InsertObject", bucket+"/"+key)
}

func (s *Storage) DownloadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := s.svc.Objects.Get(bucket, key).Context(ctx).Download()
	if err != nil {
		return nil, s.wrap.wrap(err, "GetObject", bucket+"/"+key)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.wrap.wrap(err, "GetObject", bucket+"/"+key)
	}
	return data, nil
}

func (s *Storage) DownloadFile(ctx context.Context, bucket, key, path string) error {
	resp, err := s.svc.Objects.Get(bucket, key).Context(ctx).Download()
	if err != nil {
		return s.wrap.wrap(err, "GetObject", bucket+"/"+key)
	}
	defer resp.Body.Close()
	file, err := os.Create(path)
	if err != nil {
		return s.wrap.wrap(err, "GetObject", bucket+"/"+key)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return s.wrap.wrap(err, "GetObject", bucket+"/"+key)
	}
	return s.wrap.wrap(file.Close(), "GetObject", bucket+"/"+key)
}

func (s *Storage) DeleteObject(ctx context.Context, bucket, key string) error {
	err := s.svc.Objects.Delete(bucket, key).Context(ctx).Do()
	return s.wrap.wrap(err, "DeleteObject", bucket+"/"+key)
}

func (s *Storage) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	call := s.svc.Objects.List(bucket)
	if prefix != "" {
		call = call.Prefix(prefix)
	}
	var keys []string
	err := call.Pages(ctx, func(resp *gstorage.Objects) error {
		for _, obj := range resp.Items {
			keys = append(keys, obj.Name)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap.wrap(err, "ListObjects", bucket)
	}
	return keys, nil
}

func (s *Storage) SignedURL(ctx context.Context, bucket, key string, opts cloudjack.SignedURLOptions) (string, error) {
	if s.signer == nil {
		return "", cloudjack.NewError(cloudjack.ServiceStorage, cloudjack.KindGeneric,
			"signed URLs require service account credentials").
			WithProvider(cloudjack.ProviderGCP).
			WithOp("SignedURL").
			WithResource(bucket + "/" + key).
			WithCause(s.signerErr)
	}
	url, err := s.signer.Sign(bucket, key, opts)
	if err != nil {
		return "", s.wrap.wrap(err, "SignedURL", bucket+"/"+key)
	}
	return url, nil
}
