package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
)

const multipartOverhead = 1 << 20

// FormFile is one file part read fully into memory.
type FormFile struct {
	FileName string
	Data     []byte
}

// ReadFormFile parses a multipart body capped at maxBytes plus form overhead
// and returns the named file part. A part larger than maxBytes is rejected
// with PAYLOAD_TOO_LARGE.
func ReadFormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*FormFile, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tooLargeError(field, maxBytes)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body").
			WithDetails(map[string]string{field: "multipart/form-data body required"})
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, pkgerrors.Invalid("no file was submitted", field, "required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file part")
	}
	defer file.Close()

	if maxBytes > 0 && header.Size > maxBytes {
		return nil, tooLargeError(field, maxBytes)
	}
	data, err := readPart(file, maxBytes)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, tooLargeError(field, maxBytes)
	}
	return &FormFile{FileName: cleanFileName(header.Filename), Data: data}, nil
}

func readPart(file multipart.File, maxBytes int64) ([]byte, error) {
	var reader io.Reader = file
	if maxBytes > 0 {
		reader = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read file part")
	}
	return data, nil
}

func tooLargeError(field string, maxBytes int64) error {
	return pkgerrors.New(pkgerrors.CodeTooLarge, "file exceeds the upload limit").
		WithDetails(map[string]any{"field": field, "max_bytes": maxBytes})
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return SanitizeString(name, 255)
}
