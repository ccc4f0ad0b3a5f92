package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sethvargo/go-retry"

	"github.com/casesync/casesync-backend/pkg/enums"
	apperrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/storage/gcs"
)

const (
	maxUploadAttempts = 3
	retryBaseDelay    = 200 * time.Millisecond
)

// Blob is the bucket surface the store needs.
type Blob interface {
	Upload(ctx context.Context, object string, contentType string, data []byte) error
	Download(ctx context.Context, object string) (io.ReadCloser, error)
	Exists(ctx context.Context, object string) (bool, error)
}

// PutResult describes a stored blob. MediaKind and MimeType come from
// content inspection, not from the caller.
type PutResult struct {
	ContentHash string
	MimeType    string
	MediaKind   enums.EvidenceKind
	SizeBytes   int64
}

// Store is the only component that touches raw evidence bytes. Blobs
// are keyed by their SHA-256 digest, so identical uploads land on the
// same object.
type Store interface {
	Put(ctx context.Context, data []byte) (*PutResult, error)
	Get(ctx context.Context, contentHash string) (io.ReadCloser, error)
	Exists(ctx context.Context, contentHash string) (bool, error)
}

type store struct {
	bucket Blob
}

// NewStore returns a content store backed by the provided bucket.
func NewStore(bucket Blob) (Store, error) {
	if bucket == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "content bucket required")
	}
	return &store{bucket: bucket}, nil
}

// HashBytes returns the hex SHA-256 content address for data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DetectKind classifies content by inspection. Anything that is not
// audio, video, or image counts as a document.
func DetectKind(data []byte) (enums.EvidenceKind, string) {
	mime := mimetype.Detect(data)
	mimeType := mime.String()
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return enums.EvidenceKindAudio, mimeType
	case strings.HasPrefix(mimeType, "video/"):
		return enums.EvidenceKindVideo, mimeType
	case strings.HasPrefix(mimeType, "image/"):
		return enums.EvidenceKindImage, mimeType
	default:
		return enums.EvidenceKindDocument, mimeType
	}
}

func (s *store) Put(ctx context.Context, data []byte) (*PutResult, error) {
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "content is empty")
	}

	hash := HashBytes(data)
	kind, mimeType := DetectKind(data)
	result := &PutResult{
		ContentHash: hash,
		MimeType:    mimeType,
		MediaKind:   kind,
		SizeBytes:   int64(len(data)),
	}

	exists, err := s.bucket.Exists(ctx, hash)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "content store unavailable")
	}
	if exists {
		return result, nil
	}

	backoff := retry.WithMaxRetries(maxUploadAttempts-1, retry.NewExponential(retryBaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.bucket.Upload(ctx, hash, mimeType, data); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "storing content failed")
	}
	return result, nil
}

func (s *store) Get(ctx context.Context, contentHash string) (io.ReadCloser, error) {
	if contentHash == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "content hash is required")
	}
	reader, err := s.bucket.Download(ctx, contentHash)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "content not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "content store unavailable")
	}
	return reader, nil
}

func (s *store) Exists(ctx context.Context, contentHash string) (bool, error) {
	if contentHash == "" {
		return false, apperrors.New(apperrors.CodeValidation, "content hash is required")
	}
	exists, err := s.bucket.Exists(ctx, contentHash)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeDependency, err, "content store unavailable")
	}
	return exists, nil
}
