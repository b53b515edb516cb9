package uploads

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/platform/httpx"
	"github.com/hemam-center/hemam/internal/shared"
)

const maxUploadBytes = 16 << 20

// Handler serves the upload endpoints.
type Handler struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewHandler constructs the uploads handler.
func NewHandler(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, audit: audit, logger: logger}
}

// Routes registers the upload endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.upload)
	r.Get("/", h.list)
}

type documentView struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing file field")
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unreadable upload")
		return
	}

	doc := Document{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.repo.Create(r.Context(), doc); err != nil {
		h.logger.Error("store upload metadata", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	if h.audit != nil {
		entry := shared.AuditLog{
			ActorID:   user.ID,
			Action:    "document.upload",
			Entity:    "document",
			EntityID:  doc.ID,
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
			Meta:      map[string]any{"filename": doc.Filename, "size_bytes": doc.SizeBytes},
		}
		if err := h.audit.Record(r.Context(), entry); err != nil {
			h.logger.Warn("audit write failed", slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusCreated, documentView{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		CreatedAt:   doc.CreatedAt,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	docs, err := h.repo.ListByOwner(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list uploads", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, documentView{
			ID:          doc.ID,
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			SizeBytes:   doc.SizeBytes,
			CreatedAt:   doc.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": views})
}
