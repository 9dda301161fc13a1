// Package assets manages uploaded post images: validation, naming, and the
// store/delete lifecycle on top of a storage backend.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jeremyjsx/inkwell/internal/storage"
)

const (
	MaxSize   = 5 << 20
	keyPrefix = "posts/"
)

var ErrInvalidAsset = errors.New("invalid asset")

var allowedExt = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Ref is the stable handle stored on a post. It is the storage key.
type Ref string

// Upload is raw file bytes as received from the client.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

type Store struct {
	backend storage.Storage
	baseURL string
	now     func() time.Time
}

// NewStore returns a Store writing to backend. baseURL prefixes refs when
// building public URLs.
func NewStore(backend storage.Storage, baseURL string) *Store {
	return &Store{
		backend: backend,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Validate checks size, extension, declared MIME type and sniffed content.
// It returns the canonical content type.
func Validate(u Upload) (string, error) {
	if len(u.Data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidAsset)
	}
	if len(u.Data) > MaxSize {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidAsset, MaxSize)
	}
	ext := strings.ToLower(path.Ext(u.Filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: extension %q not allowed", ErrInvalidAsset, ext)
	}
	if declared := baseMIME(u.ContentType); declared != "" {
		if _, ok := allowedMIME(declared); !ok {
			return "", fmt.Errorf("%w: content type %q not allowed", ErrInvalidAsset, u.ContentType)
		}
	}
	sniffed := baseMIME(mimetype.Detect(u.Data).String())
	canonical, ok := allowedMIME(sniffed)
	if !ok {
		return "", fmt.Errorf("%w: content is %s", ErrInvalidAsset, sniffed)
	}
	return canonical, nil
}

// Store validates u and writes it under a freshly generated name. Nothing is
// written when validation fails.
func (s *Store) Store(ctx context.Context, u Upload) (Ref, error) {
	contentType, err := Validate(u)
	if err != nil {
		return "", err
	}
	ref := s.newRef(path.Ext(u.Filename))
	if err := s.backend.Upload(ctx, string(ref), bytes.NewReader(u.Data), contentType); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}
	return ref, nil
}

// DeleteIfExists removes the asset behind ref. A missing asset is not an
// error.
func (s *Store) DeleteIfExists(ctx context.Context, ref Ref) error {
	if ref == "" {
		return nil
	}
	if err := s.backend.Delete(ctx, string(ref)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete asset %s: %w", ref, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, ref Ref) (bool, error) {
	return s.backend.Exists(ctx, string(ref))
}

// URL returns the public URL for ref.
func (s *Store) URL(ref Ref) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + string(ref)
}

// newRef follows the post-<millis>-<random><ext> naming of uploaded files.
func (s *Store) newRef(ext string) Ref {
	return Ref(fmt.Sprintf("%spost-%d-%d%s", keyPrefix, s.now().UnixMilli(), rand.Int64N(1e9), strings.ToLower(ext)))
}

func baseMIME(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

func allowedMIME(ct string) (string, bool) {
	switch ct {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "image/jpeg", true
	case "image/png", "image/gif", "image/webp":
		return ct, true
	}
	return "", false
}
