package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/realtime"
	"github.com/iudanet/chatsync/internal/server/storage"
	"github.com/iudanet/chatsync/internal/validation"
	"github.com/iudanet/chatsync/pkg/api"
)

// maxDocumentSize ограничение размера тела PUT запроса документа
const maxDocumentSize = 1 << 20

// DocumentHandler обрабатывает запросы к совместно редактируемым документам
type DocumentHandler struct {
	storage   storage.DocumentStorage
	publisher Publisher
	logger    *slog.Logger
}

// NewDocumentHandler создает новый handler документов
func NewDocumentHandler(s storage.DocumentStorage, publisher Publisher, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		storage:   s,
		publisher: publisher,
		logger:    logger,
	}
}

// Get обрабатывает GET /api/v1/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetUserID(r.Context()); !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	doc, err := h.storage.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status, message := storageErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to get document", "error", err)
		}
		writeError(w, h.logger, status, message)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, doc)
}

// Put обрабатывает PUT /api/v1/documents/{id}.
// Присланный документ сливается с сохраненным, в ответе возвращается результат слияния.
// Если клиент принес новые операции, результат рассылается в тему task:<id>.
func (h *DocumentHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := mux.Vars(r)["id"]
	if err := validation.ValidateID("document id", id); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()

	doc := crdt.NewDocument(id)
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentSize)).Decode(doc); err != nil {
		h.logger.Warn("Failed to decode document", "user_id", userID, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid document")
		return
	}
	if doc.ID != id {
		writeError(w, h.logger, http.StatusBadRequest, "document id does not match path")
		return
	}

	// Снимок до слияния нужен только чтобы понять, было ли что-то новое
	changed := true
	if before, err := h.storage.GetDocument(ctx, id); err == nil {
		changed = !before.Covers(doc)
	} else if !errors.Is(err, storage.ErrDocumentNotFound) {
		h.logger.Error("Failed to get document", "user_id", userID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	merged, err := h.storage.MergeDocument(ctx, doc)
	if err != nil {
		if errors.Is(err, crdt.ErrDocumentMismatch) {
			writeError(w, h.logger, http.StatusBadRequest, "document id does not match path")
			return
		}
		h.logger.Error("Failed to merge document", "user_id", userID, "document_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	if changed {
		body, err := json.Marshal(merged)
		if err != nil {
			h.logger.Error("Failed to encode document", "document_id", id, "error", err)
		} else {
			publish(ctx, h.publisher, h.logger, r, realtime.KindUpdated, api.TypeTask,
				api.TaskTopic(id), userID, api.TaskData{DocumentID: id, Document: body})
		}
	}

	h.logger.Debug("Document merged", "user_id", userID, "document_id", id, "ops", merged.Len(), "changed", changed)
	writeJSON(w, h.logger, http.StatusOK, merged)
}
