package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jeremyjsx/inkwell/internal/storage"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)
	gifBytes  = append([]byte("GIF89a"), bytes.Repeat([]byte{0}, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0}, 32)...)
)

type mockStorage struct {
	upload func(ctx context.Context, key string, body io.Reader, contentType string) error
	delete func(ctx context.Context, key string) error
	exists func(ctx context.Context, key string) (bool, error)
}

func (m *mockStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if m.upload != nil {
		return m.upload(ctx, key, body, contentType)
	}
	return nil
}

func (m *mockStorage) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	if m.delete != nil {
		return m.delete(ctx, key)
	}
	return nil
}

func (m *mockStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.exists != nil {
		return m.exists(ctx, key)
	}
	return false, nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		upload  Upload
		wantCT  string
		wantErr bool
	}{
		{name: "png", upload: Upload{Data: pngBytes, Filename: "a.png", ContentType: "image/png"}, wantCT: "image/png"},
		{name: "gif upper ext", upload: Upload{Data: gifBytes, Filename: "a.GIF", ContentType: "image/gif"}, wantCT: "image/gif"},
		{name: "jpg ext jpeg content", upload: Upload{Data: jpegBytes, Filename: "a.jpg", ContentType: "image/jpeg"}, wantCT: "image/jpeg"},
		{name: "no declared type", upload: Upload{Data: pngBytes, Filename: "a.png"}, wantCT: "image/png"},
		{name: "empty", upload: Upload{Filename: "a.png"}, wantErr: true},
		{name: "svg ext", upload: Upload{Data: pngBytes, Filename: "a.svg", ContentType: "image/png"}, wantErr: true},
		{name: "declared pdf", upload: Upload{Data: pngBytes, Filename: "a.png", ContentType: "application/pdf"}, wantErr: true},
		{name: "text disguised as png", upload: Upload{Data: []byte("hello there"), Filename: "a.png", ContentType: "image/png"}, wantErr: true},
		{name: "too large", upload: Upload{Data: append(pngBytes, make([]byte, MaxSize)...), Filename: "a.png"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := Validate(tt.upload)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAsset) {
					t.Fatalf("got err %v, want ErrInvalidAsset", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if ct != tt.wantCT {
				t.Errorf("content type = %q, want %q", ct, tt.wantCT)
			}
		})
	}
}

func TestStore_Store(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotKey, gotCT string
		var gotBody []byte
		st := &mockStorage{upload: func(_ context.Context, key string, body io.Reader, ct string) error {
			gotKey, gotCT = key, ct
			gotBody, _ = io.ReadAll(body)
			return nil
		}}
		s := NewStore(st, "https://cdn.example.com/")
		s.now = func() time.Time { return time.UnixMilli(1700000000000) }

		ref, err := s.Store(context.Background(), Upload{Data: pngBytes, Filename: "Photo.PNG", ContentType: "image/png"})
		if err != nil {
			t.Fatalf("Store: %v", err)
		}
		if !regexp.MustCompile(`^posts/post-1700000000000-\d+\.png$`).MatchString(string(ref)) {
			t.Errorf("ref = %q", ref)
		}
		if gotKey != string(ref) || gotCT != "image/png" || !bytes.Equal(gotBody, pngBytes) {
			t.Errorf("upload key=%q ct=%q len=%d", gotKey, gotCT, len(gotBody))
		}
		if url := s.URL(ref); url != "https://cdn.example.com/"+string(ref) {
			t.Errorf("URL = %q", url)
		}
	})

	t.Run("invalid writes nothing", func(t *testing.T) {
		called := false
		st := &mockStorage{upload: func(context.Context, string, io.Reader, string) error {
			called = true
			return nil
		}}
		_, err := NewStore(st, "").Store(context.Background(), Upload{Data: []byte("nope"), Filename: "a.exe"})
		if !errors.Is(err, ErrInvalidAsset) {
			t.Fatalf("got err %v", err)
		}
		if called {
			t.Error("backend upload called for invalid asset")
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		st := &mockStorage{upload: func(context.Context, string, io.Reader, string) error {
			return errors.New("bucket gone")
		}}
		_, err := NewStore(st, "").Store(context.Background(), Upload{Data: gifBytes, Filename: "a.gif"})
		if err == nil || !strings.Contains(err.Error(), "store asset") {
			t.Errorf("got err %v", err)
		}
	})

	t.Run("names do not collide", func(t *testing.T) {
		s := NewStore(&mockStorage{}, "")
		seen := make(map[Ref]bool)
		for i := 0; i < 200; i++ {
			ref, err := s.Store(context.Background(), Upload{Data: pngBytes, Filename: "a.png"})
			if err != nil {
				t.Fatalf("Store: %v", err)
			}
			if seen[ref] {
				t.Fatalf("duplicate ref %q", ref)
			}
			seen[ref] = true
		}
	})
}

func TestStore_DeleteIfExists(t *testing.T) {
	t.Run("missing is not an error", func(t *testing.T) {
		st := &mockStorage{delete: func(context.Context, string) error { return storage.ErrNotFound }}
		if err := NewStore(st, "").DeleteIfExists(context.Background(), "posts/gone.png"); err != nil {
			t.Errorf("got err %v", err)
		}
	})

	t.Run("empty ref skips backend", func(t *testing.T) {
		st := &mockStorage{delete: func(context.Context, string) error {
			t.Error("backend delete called")
			return nil
		}}
		if err := NewStore(st, "").DeleteIfExists(context.Background(), ""); err != nil {
			t.Errorf("got err %v", err)
		}
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		st := &mockStorage{delete: func(context.Context, string) error { return errors.New("timeout") }}
		if err := NewStore(st, "").DeleteIfExists(context.Background(), "posts/a.png"); err == nil {
			t.Error("expected error")
		}
	})
}
