package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

const attachmentNamespace = "attachments"

// InboundFile carries one attachment from an inbound message envelope.
type InboundFile struct {
	Name     string
	MimeType string
	Content  []byte
}

// FileResult reports validation/upload outcome for one file.
type FileResult struct {
	Name        string `json:"name"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// BatchResult aggregates per-file outcomes. Success is true only when every
// file in the batch succeeded.
type BatchResult struct {
	Success bool         `json:"success"`
	Files   []FileResult `json:"files"`
}

// Gateway validates attachments and moves their bytes to and from the
// object store.
type Gateway struct {
	store    ObjectStore
	maxSize  int64
	allowed  []string
	logger   *zap.Logger
	nowFn    func() time.Time
}

// NewGateway constructs the gateway.
func NewGateway(store ObjectStore, cfg config.StorageConfig, logger *zap.Logger) *Gateway {
	return &Gateway{
		store:   store,
		maxSize: cfg.MaxSizeBytes,
		allowed: cfg.AllowedMimeTypes,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// Process validates each file against the size limit and MIME allow-list,
// uploading the ones that pass. Paths are namespaced by card id and upload
// timestamp.
func (g *Gateway) Process(ctx context.Context, cardID string, files []InboundFile) BatchResult {
	result := BatchResult{Success: true}
	for _, file := range files {
		fr := FileResult{Name: file.Name, MimeType: file.MimeType, SizeBytes: int64(len(file.Content))}

		if reason := g.validate(file); reason != "" {
			fr.Error = reason
			result.Success = false
			result.Files = append(result.Files, fr)
			continue
		}

		path := g.objectPath(cardID, file.Name)
		if err := g.store.Put(path, file.Content, file.MimeType); err != nil {
			g.logger.Error("attachment upload failed",
				zap.String("card_id", cardID), zap.String("name", file.Name), zap.Error(err))
			fr.Error = err.Error()
			result.Success = false
			result.Files = append(result.Files, fr)
			continue
		}

		fr.Success = true
		fr.StoragePath = path
		result.Files = append(result.Files, fr)
	}
	return result
}

func (g *Gateway) validate(file InboundFile) string {
	if int64(len(file.Content)) > g.maxSize {
		return fmt.Sprintf("file size %d exceeds limit %d", len(file.Content), g.maxSize)
	}
	if !g.mimeAllowed(file.MimeType) {
		return fmt.Sprintf("mime type %s not allowed", file.MimeType)
	}
	return ""
}

// mimeAllowed matches exactly or against a category/* wildcard.
func (g *Gateway) mimeAllowed(mimeType string) bool {
	for _, allowed := range g.allowed {
		if allowed == mimeType {
			return true
		}
		if category, ok := strings.CutSuffix(allowed, "/*"); ok &&
			strings.HasPrefix(mimeType, category+"/") {
			return true
		}
	}
	return false
}

func (g *Gateway) objectPath(cardID, name string) string {
	return fmt.Sprintf("%s/%s/%d_%s", attachmentNamespace, cardID, g.nowFn().Unix(), sanitizeName(name))
}

// sanitizeName strips path separators so filenames cannot escape the card's
// namespace.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return strings.TrimSpace(name)
}

// Download fetches object bytes.
func (g *Gateway) Download(ctx context.Context, path string) ([]byte, error) {
	return g.store.Get(path)
}

// Delete removes one stored object.
func (g *Gateway) Delete(ctx context.Context, path string) error {
	return g.store.Delete(path)
}

// Cleanup deletes attachment objects older than the retention window. The
// sweep is time-based only; it does not consult owning records.
func (g *Gateway) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	objects, err := g.store.List(attachmentNamespace + "/")
	if err != nil {
		return 0, err
	}
	cutoff := g.nowFn().Add(-retention)
	deleted := 0
	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := g.store.Delete(obj.Key); err != nil {
			g.logger.Warn("retention delete failed", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}
