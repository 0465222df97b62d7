package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerbook/internal/adapter/http/dto"
	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/usecase"
)

// LedgerService is the slice of the ledger use case the HTTP layer needs.
type LedgerService interface {
	Create(ctx context.Context, actor domain.Claim, input usecase.CreateTransactionInput) (*domain.Transaction, error)
	Update(ctx context.Context, actor domain.Claim, id string, input usecase.UpdateTransactionInput) (*domain.Transaction, error)
	SoftDelete(ctx context.Context, actor domain.Claim, id string) (*domain.Transaction, error)
	Restore(ctx context.Context, actor domain.Claim, id string) (*domain.Transaction, error)
	Get(ctx context.Context, actor domain.Claim, id string) (*domain.Transaction, error)
	List(ctx context.Context, actor domain.Claim, input usecase.ListTransactionsInput) (*usecase.TransactionPage, error)
}

// TransactionHandler handles transaction HTTP requests.
type TransactionHandler struct {
	ledger LedgerService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledger LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// Create handles POST /transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := claimFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	t, err := h.ledger.Create(r.Context(), actor, input)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(t))
}

// Update handles PATCH /transactions/{id}.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := claimFrom(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	t, err := h.ledger.Update(r.Context(), actor, chi.URLParam(r, "id"), input)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(t))
}

// Delete handles DELETE /transactions/{id}.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := claimFrom(w, r)
	if !ok {
		return
	}

	if _, err := h.ledger.SoftDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		WriteDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// Restore handles PATCH /transactions/{id}/restore.
func (h *TransactionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := claimFrom(w, r)
	if !ok {
		return
	}

	if _, err := h.ledger.Restore(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		WriteDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// Get handles GET /transactions/{id}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := claimFrom(w, r)
	if !ok {
		return
	}

	t, err := h.ledger.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(t))
}

// List handles GET /transactions.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := claimFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	from, err := dto.ParseOptionalDate(q.Get("from"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	to, err := dto.ParseRangeEnd(q.Get("to"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	input := usecase.ListTransactionsInput{
		From:           from,
		To:             to,
		Search:         q.Get("search"),
		IncludeDeleted: parseBoolQuery(r, "includeDeleted"),
		Page:           parseIntQuery(r, "page", 1),
		PageSize:       parseIntQuery(r, "pageSize", domain.DefaultPageSize),
	}
	if raw := q.Get("type"); raw != "" {
		txType, err := domain.ParseTransactionType(raw)
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		input.Type = &txType
	}

	page, err := h.ledger.List(r.Context(), actor, input)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	limit, offset := domain.ValidatePagination(input.Page, input.PageSize)
	writeJSON(w, http.StatusOK, dto.PageResponse[*dto.TransactionResponse]{
		Data:       dto.TransactionsFromDomain(page.Transactions),
		TotalCount: page.TotalCount,
		Page:       offset/limit + 1,
		PageSize:   limit,
	})
}
