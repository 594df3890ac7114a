package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
)

var (
	ErrClientClosed   = errors.New(errors.ErrCodeStorageError, "minio client closed")
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid storage request")
)

// MaxImageBytes bounds a cached structure image.
const MaxImageBytes = 4 << 20

// Image is a stored structure depiction.
type Image struct {
	Data        []byte
	ContentType string
	ETag        string
	StoredAt    time.Time
}

// StructureStore caches molecule structure images keyed by PubChem CID.
type StructureStore interface {
	Get(ctx context.Context, cid string) (*Image, error)
	Put(ctx context.Context, cid string, img *Image) error
	Delete(ctx context.Context, cid string) error
}

type structureStore struct {
	client *Client
	prefix string
	logger logging.Logger
}

// NewStructureStore stores images under structures/ in the client's bucket.
func NewStructureStore(client *Client, log logging.Logger) StructureStore {
	return &structureStore{client: client, prefix: "structures", logger: log}
}

func (s *structureStore) key(cid string) string {
	return path.Join(s.prefix, cid+".png")
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *structureStore) Get(ctx context.Context, cid string) (*Image, error) {
	if cid == "" {
		return nil, ErrInvalidRequest
	}
	if s.client.isClosed() {
		return nil, ErrClientClosed
	}
	rc, info, err := s.client.open(ctx, s.client.bucket, s.key(cid))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed")
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxImageBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed")
	}
	if len(data) > MaxImageBytes {
		return nil, errors.New(errors.ErrCodeStorageError, "stored image exceeds size limit")
	}
	return &Image{
		Data:        data,
		ContentType: info.ContentType,
		ETag:        info.ETag,
		StoredAt:    info.LastModified,
	}, nil
}

func (s *structureStore) Put(ctx context.Context, cid string, img *Image) error {
	if cid == "" || img == nil || len(img.Data) == 0 {
		return ErrInvalidRequest
	}
	if len(img.Data) > MaxImageBytes {
		return errors.New(errors.ErrCodeValidation, "image exceeds size limit")
	}
	if s.client.isClosed() {
		return ErrClientClosed
	}
	ct := img.ContentType
	if ct == "" {
		ct = http.DetectContentType(img.Data[:min(512, len(img.Data))])
	}
	_, err := s.client.api.PutObject(ctx, s.client.bucket, s.key(cid),
		bytes.NewReader(img.Data), int64(len(img.Data)),
		minio.PutObjectOptions{ContentType: ct, UserMetadata: map[string]string{"cid": cid}})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "upload failed")
	}
	s.logger.Debug("Structure image cached", logging.String("cid", cid), logging.Int("bytes", len(img.Data)))
	return nil
}

func (s *structureStore) Delete(ctx context.Context, cid string) error {
	if cid == "" {
		return ErrInvalidRequest
	}
	if err := s.client.api.RemoveObject(ctx, s.client.bucket, s.key(cid), minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete failed")
	}
	return nil
}
