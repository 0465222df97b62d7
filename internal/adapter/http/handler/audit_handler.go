package handler

import (
	"context"
	"net/http"

	"github.com/iho/ledgerbook/internal/adapter/http/dto"
	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/usecase"
)

// AuditLister reads the audit trail.
type AuditLister interface {
	List(ctx context.Context, input usecase.ListAuditInput) (*domain.AuditPage, error)
}

// AuditHandler handles audit trail requests.
type AuditHandler struct {
	audit AuditLister
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit AuditLister) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List handles GET /audit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
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

	input := usecase.ListAuditInput{
		TransactionID: q.Get("transactionId"),
		UserID:        q.Get("userId"),
		Action:        domain.AuditAction(q.Get("action")),
		From:          from,
		To:            to,
		Page:          parseIntQuery(r, "page", 1),
		PageSize:      parseIntQuery(r, "pageSize", domain.DefaultPageSize),
	}

	page, err := h.audit.List(r.Context(), input)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	limit, offset := domain.ValidatePagination(input.Page, input.PageSize)
	writeJSON(w, http.StatusOK, dto.PageResponse[*dto.AuditEntryResponse]{
		Data:       dto.AuditEntriesFromDomain(page.Entries),
		TotalCount: page.TotalCount,
		Page:       offset/limit + 1,
		PageSize:   limit,
	})
}
