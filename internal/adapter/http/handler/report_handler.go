package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/ledgerbook/internal/adapter/http/dto"
	"github.com/iho/ledgerbook/internal/domain"
)

// Summarizer totals transactions over a date range.
type Summarizer interface {
	Summary(ctx context.Context, from, to *time.Time) (*domain.Summary, error)
}

// ReportHandler serves aggregate reports.
type ReportHandler struct {
	summarizer Summarizer
}

func NewReportHandler(summarizer Summarizer) *ReportHandler {
	return &ReportHandler{summarizer: summarizer}
}

// Summary handles GET /reports/summary.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, err := dto.ParseOptionalDate(r.URL.Query().Get("from"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	to, err := dto.ParseRangeEnd(r.URL.Query().Get("to"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	summary, err := h.summarizer.Summary(r.Context(), from, to)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromDomain(summary))
}
