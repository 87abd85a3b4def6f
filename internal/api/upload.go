package api

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ashureev/devgenie/internal/detect"
	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/validate"
)

const uploadMemory = 8 << 20

// UploadedFile is the per-file result of an upload.
type UploadedFile struct {
	Name     string              `json:"name"`
	Size     int64               `json:"size"`
	Lines    int                 `json:"lines,omitempty"`
	Language domain.CodeLanguage `json:"language,omitempty"`
	Preview  string              `json:"preview,omitempty"`
	Content  string              `json:"content,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Upload reads code files and returns their content with a detected language.
// Files are not stored; the client submits the content for analysis.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Limits.MaxRequestBodySize)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		if status, msg := StatusFor(err); status == http.StatusRequestEntityTooLarge {
			Error(w, status, msg)
			return
		}
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		Error(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	if limit := h.cfg.Limits.MaxUploadFiles; limit > 0 && len(headers) > limit {
		Error(w, http.StatusBadRequest, fmt.Sprintf("too many files (max %d)", limit))
		return
	}

	files := make([]UploadedFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, h.readUpload(fh))
	}
	JSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (h *Handler) readUpload(fh *multipart.FileHeader) UploadedFile {
	out := UploadedFile{Name: fh.Filename, Size: fh.Size}
	maxSize := h.cfg.Limits.MaxFileSize
	if maxSize <= 0 {
		maxSize = validate.DefaultMaxFileSize
	}

	f, err := fh.Open()
	if err != nil {
		slog.Warn("Failed to open uploaded file", "file", fh.Filename, "error", err)
		out.Error = "failed to read file"
		return out
	}
	defer f.Close()

	// One byte past the limit is enough to reject the file.
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		out.Error = "failed to read file"
		return out
	}

	text, err := validate.File(fh.Filename, data, maxSize)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	out.Content = text
	out.Lines = strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		out.Lines++
	}
	out.Language = detect.FromFilename(fh.Filename, text)
	out.Preview = domain.Truncate(text, h.cfg.Limits.PreviewLength)
	return out
}
