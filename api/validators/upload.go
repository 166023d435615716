package validators

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
)

const (
	uploadFileField  = "file"
	uploadUsersField = "users"
)

// Upload is a parsed spreadsheet form.
type Upload struct {
	Filename string
	Content  []byte
	Users    []string
}

// ParseUpload reads a multipart form holding one spreadsheet and the repeated
// users field. Users may also arrive comma separated in a single value.
func ParseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTooLarge, err, "upload exceeds size limit").WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	out := &Upload{Users: splitUsers(r.MultipartForm.Value[uploadUsersField])}

	file, header, err := r.FormFile(uploadFileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return out, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file field")
	}
	defer file.Close()

	content, err := readPart(file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
	}
	out.Filename = header.Filename
	out.Content = content
	return out, nil
}

func readPart(file multipart.File) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func splitUsers(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
