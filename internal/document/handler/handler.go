// Package handler exposes the document flow over HTTP. Upload is multipart;
// everything else is JSON. The /documents/view redemption route is the one
// unauthenticated endpoint in the API: the signature in the URL is the
// credential.
package handler

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	docservice "virasat/internal/document/service"
	"virasat/internal/http/shared"
	"virasat/internal/platform/middleware"
	derrors "virasat/pkg/domainerrors"
	"virasat/pkg/requestcontext"
)

// maxUploadBytes bounds one multipart request, not one file.
const maxUploadBytes = 32 << 20

// Service defines the document operations the handler needs.
type Service interface {
	Upload(ctx context.Context, files []docservice.UploadInput) ([]docservice.UploadResult, error)
	List(ctx context.Context) ([]docservice.Document, error)
	SignedURL(ctx context.Context, path string) (string, time.Time, error)
	Download(ctx context.Context, path string) ([]byte, string, error)
	Redeem(ctx context.Context, path, tag string, expires time.Time) ([]byte, string, error)
	Delete(ctx context.Context, path string) error
}

// Handler handles the /documents routes.
type Handler struct {
	logger    *slog.Logger
	documents Service
	validator middleware.TokenValidator
}

func New(documents Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		documents: documents,
		validator: validator,
	}
}

// Register mounts the document routes.
func (h *Handler) Register(r chi.Router) {
	docRouter := chi.NewRouter()
	docRouter.Use(middleware.Timeout(60 * time.Second))

	// Signed-URL redemption must work without a session.
	docRouter.Get("/view", h.handleView)

	docRouter.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/", h.handleList)
		r.Post("/", h.handleUpload)
		r.Get("/url", h.handleSignedURL)
		r.Get("/download", h.handleDownload)
		r.Delete("/", h.handleDelete)
	})

	r.Mount("/documents", docRouter)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid multipart body"))
		return
	}
	form := r.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	category := r.FormValue("category")
	var files []docservice.UploadInput
	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "unreadable file part"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "unreadable file part"))
			return
		}
		files = append(files, docservice.UploadInput{
			Name:     header.Filename,
			Data:     data,
			Category: category,
		})
	}

	results, err := h.documents.Upload(ctx, files)
	if err != nil {
		h.logFailure(ctx, "upload failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "list documents failed", err)
		shared.WriteError(w, err)
		return
	}
	if docs == nil {
		docs = []docservice.Document{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	signedURL, expires, err := h.documents.SignedURL(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		h.logFailure(r.Context(), "signed url failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"url":        signedURL,
		"expires_at": expires,
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.documents.Download(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		h.logFailure(r.Context(), "download failed", err)
		shared.WriteError(w, err)
		return
	}
	writeFile(w, data, name, "attachment")
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expiresUnix, err := strconv.ParseInt(q.Get("expires"), 10, 64)
	if err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid expiry"))
		return
	}

	data, name, err := h.documents.Redeem(r.Context(), q.Get("path"), q.Get("sig"), time.Unix(expiresUnix, 0))
	if err != nil {
		h.logFailure(r.Context(), "signed url redemption failed", err)
		shared.WriteError(w, err)
		return
	}
	writeFile(w, data, name, "inline")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.documents.Delete(r.Context(), r.URL.Query().Get("path")); err != nil {
		h.logFailure(r.Context(), "delete document failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeFile(w http.ResponseWriter, data []byte, name, disposition string) {
	contentType := mime.TypeByExtension(extOf(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func extOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i:]
		}
	}
	return ""
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelWarn
	if derrors.CodeOf(err) == derrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
