package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// ObjectStore abstracts the blob backend so the service is testable without a
// live server.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

// StorageService uploads ticket attachments to object storage. Oversized
// images are downscaled and re-encoded as JPEG before upload.
type StorageService struct {
	store  ObjectStore
	cfg    config.StorageConfig
	logger *zap.Logger
}

// NewStorageService constructs the service.
func NewStorageService(store ObjectStore, cfg config.StorageConfig, logger *zap.Logger) *StorageService {
	return &StorageService{store: store, cfg: cfg, logger: logger}
}

// UploadResult describes one stored object.
type UploadResult struct {
	URL       string
	ObjectKey string
	AssetType domain.AssetType
	Size      int64
}

// EnsureBucket creates the configured bucket if it does not exist.
func (s *StorageService) EnsureBucket(ctx context.Context) error {
	exists, err := s.store.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return apperrors.NewUpstreamError("storage", err)
	}
	if exists {
		return nil
	}
	if err := s.store.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return apperrors.NewUpstreamError("storage", err)
	}
	return nil
}

// Upload stores a file under a generated key. Images wider than the configured
// limit are resized first.
func (s *StorageService) Upload(ctx context.Context, filename string, contentType string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("empty file", nil)
	}

	assetType := InferAssetType(filename)
	if assetType == domain.AssetTypeImage {
		resized, newType, err := s.downscale(data)
		if err != nil {
			// undecodable files upload as-is
			s.logger.Debug("image decode failed, storing original", zap.String("filename", filename), zap.Error(err))
		} else {
			data = resized
			if newType != "" {
				contentType = newType
				filename = strings.TrimSuffix(filename, path.Ext(filename)) + ".jpg"
			}
		}
	}

	key := fmt.Sprintf("%s/%s%s", string(assetType), uuid.NewString(), strings.ToLower(path.Ext(filename)))
	info, err := s.store.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("storage", err)
	}

	return &UploadResult{
		URL:       s.publicURL(key),
		ObjectKey: key,
		AssetType: assetType,
		Size:      info.Size,
	}, nil
}

// downscale re-encodes the image as JPEG, shrinking it to the configured max
// width when wider. Returns the new bytes and content type, or the decode
// error.
func (s *StorageService) downscale(data []byte) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	maxWidth := s.cfg.MaxImageWidth
	if maxWidth <= 0 {
		maxWidth = 1200
	}
	bounds := src.Bounds()
	if bounds.Dx() > maxWidth {
		height := bounds.Dy() * maxWidth / bounds.Dx()
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	quality := s.cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 75
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}

func (s *StorageService) publicURL(key string) string {
	base := strings.TrimSuffix(s.cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, s.cfg.Endpoint, s.cfg.Bucket)
	}
	return base + "/" + key
}
