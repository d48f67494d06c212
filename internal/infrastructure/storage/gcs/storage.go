// Package gcs stores source documents as objects in a Google Cloud Storage
// bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type Config struct {
	Bucket          string
	CredentialsFile string
	// Prefix is prepended to every object name, e.g. "documents/".
	Prefix string
}

type Storage struct {
	svc    *storage.Service
	bucket string
	prefix string
}

func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "init gcs storage", errors.New("bucket is required"))
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "init gcs storage", err)
	}
	return &Storage{svc: svc, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	obj := &storage.Object{Name: s.prefix + key}
	if _, err := s.svc.Objects.Insert(s.bucket, obj).Media(data).Context(ctx).Do(); err != nil {
		return classify("upload object", err)
	}
	return nil
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.svc.Objects.Get(s.bucket, s.prefix+key).Context(ctx).Download()
	if err != nil {
		return nil, classify("download object", err)
	}
	return resp.Body, nil
}

// Delete removes the object; a missing object is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.svc.Objects.Delete(s.bucket, s.prefix+key).Context(ctx).Do()
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return classify("delete object", err)
	}
	return nil
}

func classify(operation string, err error) error {
	switch {
	case isStatus(err, http.StatusNotFound):
		return domain.WrapError(domain.ErrDocumentNotFound, operation, err)
	case isStatus(err, http.StatusUnauthorized), isStatus(err, http.StatusForbidden):
		return domain.WrapError(domain.ErrConfiguration, operation, err)
	case isStatus(err, http.StatusTooManyRequests), serverError(err):
		return domain.WrapError(domain.ErrTemporary, operation, err)
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

func serverError(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code >= 500
}
