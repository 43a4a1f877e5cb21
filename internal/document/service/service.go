// Package service implements the per-user document flow: concurrent uploads
// with independent per-file outcomes, prefix-scoped listing, signed URLs,
// download, and delete.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"virasat/internal/audit"
	"virasat/internal/document/blob"
	"virasat/internal/document/signer"
	id "virasat/pkg/domain"
	derrors "virasat/pkg/domainerrors"
	"virasat/pkg/requestcontext"
	"virasat/pkg/sentinel"
)

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "virasat_document_uploads_total",
	Help: "Document uploads by outcome.",
}, []string{"outcome"})

// Categories assignable to a document. "Other" is the catch-all.
var Categories = []string{"Insurance", "Banking", "Medical", "Property", "Other"}

// maxUploadConcurrency bounds parallel writes per request.
const maxUploadConcurrency = 4

// UploadInput is one file in an upload batch.
type UploadInput struct {
	Name     string
	Data     []byte
	Category string
}

// UploadResult reports one file's independent outcome. A rejected file never
// fails the rest of its batch.
type UploadResult struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// Document is a listed object.
type Document struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Service mediates all access to the blob store, enforcing the owner prefix
// on every path before it reaches a backend.
type Service struct {
	blobs  blob.Store
	signer *signer.Signer
	urlTTL time.Duration
	audit  *audit.Publisher
	logger *slog.Logger
}

func New(blobs blob.Store, urlSigner *signer.Signer, urlTTL time.Duration, publisher *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{
		blobs:  blobs,
		signer: urlSigner,
		urlTTL: urlTTL,
		audit:  publisher,
		logger: logger,
	}
}

// Upload stores each file concurrently and independently: the result slice
// is positionally aligned with the inputs, and one store rejection is
// reported only against its own file.
func (s *Service) Upload(ctx context.Context, files []UploadInput) ([]UploadResult, error) {
	owner, err := s.requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, derrors.New(derrors.CodeValidation, "no files provided")
	}

	now := requestcontext.Now(ctx)
	results := make([]UploadResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxUploadConcurrency)
	for i, file := range files {
		g.Go(func() error {
			results[i] = s.uploadOne(gctx, owner, file, now)
			// Always nil: per-file failures live in the result, and one
			// failure must not cancel the sibling uploads.
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		outcome := "success"
		if results[i].Error != "" {
			outcome = "failure"
		}
		uploadsTotal.WithLabelValues(outcome).Inc()
		if results[i].Error == "" {
			s.emit(ctx, audit.Event{
				UserID:  owner,
				Action:  audit.ActionDocumentUpload,
				Subject: results[i].Path,
			})
		}
	}
	return results, nil
}

func (s *Service) uploadOne(ctx context.Context, owner id.UserID, file UploadInput, now time.Time) UploadResult {
	name := sanitizeName(file.Name)
	if name == "" {
		return UploadResult{Name: file.Name, Error: "invalid file name"}
	}
	if len(file.Data) == 0 {
		return UploadResult{Name: file.Name, Error: "empty file"}
	}

	category := file.Category
	if !contains(Categories, category) {
		category = inferCategory(name)
	}

	// Timestamp prefix avoids collisions between same-named uploads; it has
	// no other meaning.
	objectPath := fmt.Sprintf("%s/%d-%s", owner.String(), now.UnixNano(), name)
	meta := blob.Metadata{
		OriginalName: file.Name,
		Category:     category,
		CreatedAt:    now,
	}
	if err := s.blobs.Put(ctx, objectPath, file.Data, meta); err != nil {
		s.logger.WarnContext(ctx, "document upload failed",
			"name", file.Name,
			"error", err,
		)
		return UploadResult{Name: file.Name, Error: "upload failed"}
	}
	return UploadResult{Name: file.Name, Path: objectPath}
}

// List enumerates the caller's documents, newest-first. Category comes from
// stored metadata; objects without one fall back to filename inference.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	owner, err := s.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	objects, err := s.blobs.List(ctx, owner.String()+"/")
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list documents")
	}

	docs := make([]Document, 0, len(objects))
	for _, obj := range objects {
		name := obj.Metadata.OriginalName
		if name == "" {
			name = displayName(obj.Path)
		}
		category := obj.Metadata.Category
		if category == "" {
			category = inferCategory(name)
		}
		docs = append(docs, Document{
			Path:      obj.Path,
			Name:      name,
			Size:      obj.Size,
			Category:  category,
			CreatedAt: obj.Metadata.CreatedAt,
		})
	}
	return docs, nil
}

// SignedURL issues a time-limited view link for one of the caller's objects.
// Expiry is enforced at redemption, not here.
func (s *Service) SignedURL(ctx context.Context, objectPath string) (string, time.Time, error) {
	owner, err := s.requireOwner(ctx)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.requireOwnedPath(owner, objectPath); err != nil {
		return "", time.Time{}, err
	}

	expires := requestcontext.Now(ctx).Add(s.urlTTL)
	tag := s.signer.Sign(objectPath, expires)
	signedURL := fmt.Sprintf("/documents/view?path=%s&expires=%d&sig=%s",
		url.QueryEscape(objectPath), expires.Unix(), tag)
	return signedURL, expires, nil
}

// Download returns the raw object with its original display name.
func (s *Service) Download(ctx context.Context, objectPath string) ([]byte, string, error) {
	owner, err := s.requireOwner(ctx)
	if err != nil {
		return nil, "", err
	}
	if err := s.requireOwnedPath(owner, objectPath); err != nil {
		return nil, "", err
	}

	data, meta, err := s.blobs.Get(ctx, objectPath)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", derrors.New(derrors.CodeNotFound, "document not found")
		}
		return nil, "", derrors.Wrap(err, derrors.CodeInternal, "failed to read document")
	}
	name := meta.OriginalName
	if name == "" {
		name = displayName(objectPath)
	}
	return data, name, nil
}

// Redeem serves a previously signed URL. No session is required; the
// signature is the capability.
func (s *Service) Redeem(ctx context.Context, objectPath, tag string, expires time.Time) ([]byte, string, error) {
	if err := s.signer.Verify(objectPath, tag, expires, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, signer.ErrExpired) {
			return nil, "", derrors.New(derrors.CodeUnauthorized, "signed url expired")
		}
		return nil, "", derrors.New(derrors.CodeUnauthorized, "invalid signed url")
	}

	data, meta, err := s.blobs.Get(ctx, objectPath)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", derrors.New(derrors.CodeNotFound, "document not found")
		}
		return nil, "", derrors.Wrap(err, derrors.CodeInternal, "failed to read document")
	}
	name := meta.OriginalName
	if name == "" {
		name = displayName(objectPath)
	}
	return data, name, nil
}

// Delete removes one of the caller's objects.
func (s *Service) Delete(ctx context.Context, objectPath string) error {
	owner, err := s.requireOwner(ctx)
	if err != nil {
		return err
	}
	if err := s.requireOwnedPath(owner, objectPath); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, objectPath); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return derrors.New(derrors.CodeNotFound, "document not found")
		}
		return derrors.Wrap(err, derrors.CodeInternal, "failed to delete document")
	}
	s.emit(ctx, audit.Event{
		UserID:  owner,
		Action:  audit.ActionDocumentDelete,
		Subject: objectPath,
	})
	return nil
}

func (s *Service) requireOwner(ctx context.Context) (id.UserID, error) {
	owner := requestcontext.UserID(ctx)
	if owner.IsZero() {
		return id.UserID{}, derrors.New(derrors.CodeUnauthorized, "authentication required")
	}
	return owner, nil
}

// requireOwnedPath rejects any path outside the caller's prefix. This is the
// only authorization check between a session and a stored document.
func (s *Service) requireOwnedPath(owner id.UserID, objectPath string) error {
	if err := blob.ValidatePath(objectPath); err != nil {
		return derrors.New(derrors.CodeBadRequest, "invalid document path")
	}
	if !strings.HasPrefix(objectPath, owner.String()+"/") {
		return derrors.New(derrors.CodeForbidden, "document belongs to another user")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	s.audit.Emit(ctx, event)
}

// sanitizeName keeps only the base name and strips characters that could
// break paths or sidecar files.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	name = strings.Trim(name, "._")
	if name == "" || name == "meta.json" {
		return ""
	}
	return name
}

// displayName strips the collision-avoidance timestamp from an object path.
func displayName(objectPath string) string {
	base := path.Base(objectPath)
	if i := strings.IndexByte(base, '-'); i > 0 {
		if _, err := fmt.Sscanf(base[:i], "%d", new(int64)); err == nil {
			return base[i+1:]
		}
	}
	return base
}

// inferCategory is the legacy filename heuristic, kept for objects uploaded
// before categories were stored explicitly.
func inferCategory(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "insurance"):
		return "Insurance"
	case strings.Contains(lower, "bank"):
		return "Banking"
	case strings.Contains(lower, "medical"), strings.Contains(lower, "health"):
		return "Medical"
	case strings.Contains(lower, "property"):
		return "Property"
	default:
		return "Other"
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
