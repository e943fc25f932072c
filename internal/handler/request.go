package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"videotube/internal/model"
)

// pageFromQuery reads ?page=&limit= and clamps them to maxSize.
func pageFromQuery(r *http.Request, maxSize int) model.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("limit"))
	return model.NewPageRequestWithCap(page, size, maxSize)
}

// clientInfo extracts the request metadata recorded on a session.
func clientInfo(r *http.Request) model.ClientInfo {
	return model.ClientInfo{
		DeviceInfo: r.Header.Get("User-Agent"),
		IPAddress:  clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// RemoteAddr is in the format "IP:port"
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

var errInvalidForm = model.NewError(model.ErrValidation, "invalid multipart form")

// parseMultipart bounds the body to limit bytes and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return model.NewError(model.ErrValidation, "request body too large")
		case errors.Is(err, http.ErrNotMultipart):
			return model.NewError(model.ErrValidation, "Content-Type must be multipart/form-data")
		default:
			return errInvalidForm
		}
	}
	return nil
}

// spoolUpload copies the named form file to a temp file and returns its path.
// An absent field returns "" and a nil error. Callers remove the file when done.
func spoolUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", model.Validationf("invalid %s upload", field)
	}
	defer file.Close()

	return spool(file, header)
}

func spool(file multipart.File, header *multipart.FileHeader) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}
	return tmp.Name(), nil
}

func removeAll(paths ...string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(p)
		}
	}
}
