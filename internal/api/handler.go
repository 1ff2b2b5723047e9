package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ms-groups/internal/dispatch"
	"ms-groups/internal/logger"
	"ms-groups/internal/models"
	"ms-groups/internal/page"
	"ms-groups/internal/sse"
	"ms-groups/internal/store"
	"ms-groups/internal/utils"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Batch, error)
}

// Store is the audit log of batches. It is optional.
type Store interface {
	CreateBatch(ctx context.Context, b *models.Batch) error
	CompleteBatch(ctx context.Context, batchID string, succeeded, failed int) error
	GetBatch(ctx context.Context, batchID string) (*models.Batch, error)
	ListBatchesByPage(ctx context.Context, pageID string) ([]models.Batch, error)
	ListRecords(ctx context.Context, batchID string) ([]models.DispatchRecord, error)
}

type Handler struct {
	Dispatcher Dispatcher
	Pages      page.Pages
	Store      Store
	Emitter    *sse.FragmentEmitter
	Logger     *logger.Logger
}

func NewHandler(d Dispatcher, pages page.Pages, s Store, emitter *sse.FragmentEmitter, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		Dispatcher: d,
		Pages:      pages,
		Store:      s,
		Emitter:    emitter,
		Logger:     log,
	}
}

type dispatchRequest struct {
	Mode    string             `json:"mode"`
	Context models.PageContext `json:"context"`
}

type dispatchResponse struct {
	BatchID string              `json:"batch_id"`
	PageID  string              `json:"page_id"`
	Mode    models.DispatchMode `json:"mode"`
	Total   int                 `json:"total"`
}

// Dispatch opens the page's container and submits one request per group. It
// answers as soon as the requests are on their way.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Dispatch: invalid JSON for page %s: %v", pageID, err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err))
		return
	}

	var mode models.DispatchMode
	if req.Mode != "" {
		parsed, err := models.ParseDispatchMode(req.Mode)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid mode", err))
			return
		}
		mode = parsed
	}

	container, err := h.Pages.Open(r.Context(), pageID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Dispatch: failed to open page %s: %v", pageID, err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not open page", err))
		return
	}
	var target dispatch.Container = container
	if h.Emitter != nil {
		target = page.NewBroadcasting(container, pageID, h.Emitter)
	}

	// the batch outlives this request
	ctx := context.WithoutCancel(r.Context())
	batch, err := h.Dispatcher.Dispatch(ctx, dispatch.Request{
		PageID:    pageID,
		Mode:      mode,
		Context:   req.Context,
		Container: target,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if dispatch.IsValidationError(err) {
			status = http.StatusBadRequest
		}
		h.Logger.Warn("API", fmt.Sprintf("Dispatch: rejected page context for %s: %v", pageID, err))
		h.writeJSON(w, status, utils.ErrorResponse("Dispatch rejected", err))
		return
	}

	h.trackBatch(ctx, batch)

	h.Logger.LogPage(pageID, fmt.Sprintf("batch %s accepted with %d groups", batch.ID, batch.Total))
	h.writeJSON(w, http.StatusAccepted, utils.SuccessResponse("Dispatch accepted", dispatchResponse{
		BatchID: batch.ID,
		PageID:  pageID,
		Mode:    batch.Mode,
		Total:   batch.Total,
	}))
}

// trackBatch persists the batch row and fills in its counts once done.
func (h *Handler) trackBatch(ctx context.Context, batch *dispatch.Batch) {
	if h.Store == nil {
		return
	}
	if err := h.Store.CreateBatch(ctx, &models.Batch{
		BatchID:    batch.ID,
		PageID:     batch.PageID,
		Mode:       string(batch.Mode),
		GroupCount: batch.Total,
	}); err != nil {
		h.Logger.Error("DATABASE", fmt.Sprintf("Failed to create batch %s: %v", batch.ID, err))
		return
	}
	go func() {
		s := batch.Wait()
		if err := h.Store.CompleteBatch(ctx, batch.ID, s.Succeeded, s.Failed); err != nil {
			h.Logger.Error("DATABASE", fmt.Sprintf("Failed to complete batch %s: %v", batch.ID, err))
		}
	}()
}

// RenderGroups writes the page's container as HTML.
func (h *Handler) RenderGroups(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	container, fragments, ok := h.lookupFragments(w, r, pageID)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w, container.Selector(), fragments); err != nil {
		h.Logger.Error("API", fmt.Sprintf("RenderGroups: failed to render page %s: %v", pageID, err))
	}
}

// DeletePage tears the page's container down. Responses still in flight for
// it become no-op failures.
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	err := h.Pages.Close(r.Context(), pageID)
	if errors.Is(err, page.ErrContainerGone) {
		h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Page not found", err))
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeletePage: failed to close page %s: %v", pageID, err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not close page", err))
		return
	}
	if h.Emitter != nil {
		h.Emitter.Disconnect(pageID)
	}

	h.Logger.LogPage(pageID, "page closed")
	w.WriteHeader(http.StatusNoContent)
}

type batchResponse struct {
	Batch   *models.Batch           `json:"batch"`
	Records []models.DispatchRecord `json:"records"`
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	batch, err := h.Store.GetBatch(r.Context(), batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Batch not found", err))
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBatch: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load batch", err))
		return
	}

	records, err := h.Store.ListRecords(r.Context(), batchID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBatch: failed to list records: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load records", err))
		return
	}
	if records == nil {
		records = []models.DispatchRecord{}
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Batch found", batchResponse{Batch: batch, Records: records}))
}

func (h *Handler) ListPageBatches(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	batches, err := h.Store.ListBatchesByPage(r.Context(), pageID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListPageBatches: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not list batches", err))
		return
	}
	if batches == nil {
		batches = []models.Batch{}
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Batches found", batches))
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}

func (h *Handler) lookupFragments(w http.ResponseWriter, r *http.Request, pageID string) (page.Container, []models.Fragment, bool) {
	container, err := h.Pages.Lookup(r.Context(), pageID)
	if err == nil {
		var fragments []models.Fragment
		fragments, err = container.Fragments(r.Context())
		if err == nil {
			return container, fragments, true
		}
	}
	if errors.Is(err, page.ErrContainerGone) {
		h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Page not found", err))
	} else {
		h.Logger.Error("API", fmt.Sprintf("failed to read page %s: %v", pageID, err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not read page", err))
	}
	return nil, nil, false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := utils.WriteJSON(w, status, data); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}
