package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/assets"
)

const (
	imageField    = "featuredImage"
	maxFormMemory = 8 << 20
	// maxBodySize leaves room for form fields next to a full-size image.
	maxBodySize = assets.MaxSize + 1<<20
)

var (
	errBadBody          = errors.New("malformed request body")
	errConnectionClosed = errors.New("connection closed")
)

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// decodeBody fills dst from a multipart form or a JSON body and returns the
// uploaded image, if any. fields maps form field names to the pointers that
// receive them; a form field that is absent leaves its pointer untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, fields func(name string, value string)) (*assets.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if !isMultipart(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, fmt.Errorf("%w: body exceeds %d bytes", assets.ErrInvalidAsset, maxBodySize)
			}
			return nil, errBadBody
		}
		return nil, nil
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: file exceeds %d bytes", assets.ErrInvalidAsset, assets.MaxSize)
		}
		return nil, errBadBody
	}
	for name, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields(name, values[0])
		}
	}

	file, header, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errBadBody
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, assets.MaxSize+1))
	if err != nil {
		return nil, errBadBody
	}
	return &assets.Upload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	return id, err == nil
}
