// AngelaMos | 2026
// uploader.go

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
)

const pdfMIME = "application/pdf"

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrNotPDF       = errors.New("not a pdf")
)

var disablePDFConfigDir sync.Once

type Location string

const (
	LocationRemote Location = "remote"
	LocationLocal  Location = "local"
)

// Stored describes where an uploaded PDF ended up.
type Stored struct {
	PDFURL   string   `json:"pdf_url"`
	FilePath string   `json:"file_path,omitempty"`
	FileSize int64    `json:"file_size"`
	Pages    int      `json:"pages,omitempty"`
	Location Location `json:"location"`
}

type UploaderConfig struct {
	Storage     backend.ObjectStore
	Files       *filestore.Store
	MaxFileSize int64
	Logger      *slog.Logger
}

// Uploader validates PDFs and stores them in the backend bucket, or in the
// local file store when no bucket is configured.
type Uploader struct {
	storage backend.ObjectStore
	files   *filestore.Store
	maxSize int64
	logger  *slog.Logger
	now     func() time.Time
}

func NewUploader(cfg UploaderConfig) *Uploader {
	disablePDFConfigDir.Do(api.DisableConfigDir)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Uploader{
		storage: cfg.Storage,
		files:   cfg.Files,
		maxSize: cfg.MaxFileSize,
		logger:  logger,
		now:     time.Now,
	}
}

func (u *Uploader) MaxFileSize() int64 {
	return u.maxSize
}

// TooLarge rejects an upload whose exact size is not known, such as a
// request body that overran the limit before the file part was read.
func (u *Uploader) TooLarge() error {
	return core.NewAppError(
		ErrFileTooLarge,
		"File exceeds max limit of "+core.FormatFileSize(u.maxSize),
		http.StatusRequestEntityTooLarge,
		"FILE_TOO_LARGE",
	)
}

// CheckSize accepts sizes up to and including the limit.
func (u *Uploader) CheckSize(size int64) error {
	if size <= u.maxSize {
		return nil
	}
	return core.NewAppError(
		ErrFileTooLarge,
		fmt.Sprintf("File size (%s) exceeds max limit of %s",
			core.FormatFileSize(size), core.FormatFileSize(u.maxSize)),
		http.StatusRequestEntityTooLarge,
		"FILE_TOO_LARGE",
	)
}

func CheckPDF(data []byte) error {
	if len(data) == 0 || !mimetype.Detect(data).Is(pdfMIME) {
		return core.NewAppError(
			ErrNotPDF,
			"Please select a valid PDF file",
			http.StatusUnsupportedMediaType,
			"INVALID_FILE_TYPE",
		)
	}
	return nil
}

// CountPages is best effort; 0 means the count could not be determined.
func (u *Uploader) CountPages(data []byte) int {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		u.logger.Debug("page count failed", "error", err)
		return 0
	}
	return pages
}

func (u *Uploader) Store(ctx context.Context, filename string, data []byte) (*Stored, error) {
	size := int64(len(data))
	if err := u.CheckSize(size); err != nil {
		return nil, err
	}
	if err := CheckPDF(data); err != nil {
		return nil, err
	}

	stored := &Stored{FileSize: size, Pages: u.CountPages(data)}

	if u.storage != nil && u.storage.Configured() {
		path, err := u.objectPath(filename)
		if err != nil {
			return nil, err
		}

		if err := u.storage.Upload(ctx, path, pdfMIME, bytes.NewReader(data), size); err != nil {
			return nil, fmt.Errorf("store pdf: %w", err)
		}

		stored.PDFURL = u.storage.PublicURL(path)
		stored.FilePath = path
		stored.Location = LocationRemote
	} else {
		if u.files == nil {
			return nil, fmt.Errorf("store pdf: no storage configured")
		}

		id, err := u.files.Save(ctx, filename, pdfMIME, data)
		if err != nil {
			return nil, fmt.Errorf("store pdf: %w", err)
		}

		stored.PDFURL = id
		stored.Location = LocationLocal
	}

	u.logger.InfoContext(ctx, "pdf stored",
		"location", stored.Location,
		"size", core.FormatFileSize(size),
		"pages", stored.Pages,
	)
	return stored, nil
}

// Discard removes a locally stored upload whose book could not be saved.
func (u *Uploader) Discard(ctx context.Context, stored *Stored) {
	if stored == nil || stored.Location != LocationLocal || u.files == nil {
		return
	}
	if err := u.files.Delete(ctx, stored.PDFURL); err != nil {
		u.logger.WarnContext(ctx, "discard local upload failed", "id", stored.PDFURL, "error", err)
	}
}

// objectPath names an object <unix-ms>-<random>.<ext>.
func (u *Uploader) objectPath(filename string) (string, error) {
	suffix, err := core.RandomBase36(9)
	if err != nil {
		return "", fmt.Errorf("name object: %w", err)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		ext = "pdf"
	}

	return strconv.FormatInt(u.now().UnixMilli(), 10) + "-" + suffix + "." + ext, nil
}
