package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/internal/media"
	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/storage"
)

const bytesPerMB = 1 << 20

// Upload describes a blob that has been validated and written to storage.
type Upload struct {
	Kind          enums.MediaKind
	FileName      string
	MimeType      string
	SizeBytes     int64
	StorageKey    string
	SuggestedName string
	Width         *int
	Height        *int
}

// NewItem converts the upload into the store's creation input.
func (u *Upload) NewItem(ownerID uuid.UUID) media.NewItem {
	return media.NewItem{
		OwnerID:     ownerID,
		Kind:        u.Kind,
		DisplayName: u.SuggestedName,
		FileName:    u.FileName,
		MimeType:    u.MimeType,
		SizeBytes:   u.SizeBytes,
		StorageKey:  u.StorageKey,
		Width:       u.Width,
		Height:      u.Height,
	}
}

// Ingestor validates uploaded bytes and writes them to blob storage.
type Ingestor struct {
	storage storage.Storage
	limits  map[enums.MediaKind]int64
	maxRead int64
	logg    *logger.Logger
}

func NewIngestor(store storage.Storage, cfg config.MediaConfig, logg *logger.Logger) (*Ingestor, error) {
	if store == nil {
		return nil, fmt.Errorf("storage required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	limits := map[enums.MediaKind]int64{
		enums.MediaKindImage: int64(cfg.ImageMaxMB) * bytesPerMB,
		enums.MediaKindAudio: int64(cfg.AudioMaxMB) * bytesPerMB,
		enums.MediaKindVideo: int64(cfg.VideoMaxMB) * bytesPerMB,
	}
	for kind, limit := range limits {
		if limit <= 0 {
			return nil, fmt.Errorf("upload limit for %s must be positive", kind)
		}
	}
	return &Ingestor{storage: store, limits: limits, maxRead: cfg.MaxUploadBytes(), logg: logg}, nil
}

// Ingest sniffs the content type, enforces the per-kind size limit, probes images and stores
// the blob under profiles/<owner>/<id>/<file>.
func (i *Ingestor) Ingest(ctx context.Context, ownerID uuid.UUID, fileName string, body io.Reader) (*Upload, error) {
	if body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	data, err := io.ReadAll(io.LimitReader(body, i.maxRead+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}

	mtype := mimetype.Detect(data)
	kind, ok := classify(mtype)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeUnsupportedMedia, "only %s are accepted", allowedDescription).
			WithDetails(map[string]any{"mime_type": mtype.String()})
	}

	size := int64(len(data))
	if limit := i.limits[kind]; size > limit {
		return nil, pkgerrors.Newf(pkgerrors.CodePayloadTooLarge, "%s uploads are limited to %d MB", kind, limit/bytesPerMB).
			WithDetails(map[string]any{"kind": kind, "limit_bytes": limit})
	}

	upload := &Upload{
		Kind:          kind,
		FileName:      strings.TrimSpace(fileName),
		MimeType:      baseMime(mtype.String()),
		SizeBytes:     size,
		SuggestedName: media.DeriveDisplayName(fileName),
	}

	if kind == enums.MediaKindImage {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image could not be decoded")
		}
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		upload.Width, upload.Height = &w, &h
	}

	upload.StorageKey = buildStorageKey(ownerID, uuid.New(), fileName)
	err = i.storage.Save(ctx, upload.StorageKey, bytes.NewReader(data),
		storage.WithContentType(upload.MimeType),
		storage.WithContentLength(size),
		storage.WithMetadata(map[string]string{"owner_id": ownerID.String(), "kind": string(kind)}),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}
	return upload, nil
}

// Discard removes a stored blob after the record that would have owned it failed to persist.
func (i *Ingestor) Discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := i.storage.Delete(ctx, key); err != nil {
		i.logg.Error(i.logg.WithField(ctx, "storage_key", key), "upload.discard_failed", err)
	}
}

func baseMime(value string) string {
	mediaType, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func buildStorageKey(ownerID, id uuid.UUID, fileName string) string {
	clean := sanitizeFileName(fileName)
	if clean == "" {
		clean = id.String()
	}
	return fmt.Sprintf("profiles/%s/%s/%s", ownerID, id, clean)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
