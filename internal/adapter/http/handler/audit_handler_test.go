package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/usecase"
)

type stubAuditLister struct {
	got usecase.ListAuditInput
	err error
}

func (s *stubAuditLister) List(ctx context.Context, input usecase.ListAuditInput) (*domain.AuditPage, error) {
	s.got = input
	if s.err != nil {
		return nil, s.err
	}
	return &domain.AuditPage{}, nil
}

func TestAuditHandler_ParsesQuery(t *testing.T) {
	lister := &stubAuditLister{}
	h := NewAuditHandler(lister)

	req := httptest.NewRequest(http.MethodGet,
		"/audit?transactionId=T&userId=U&action=restore&from=2024-01-01&to=2024-01-31&page=2&pageSize=5", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	got := lister.got
	if got.TransactionID != "T" || got.UserID != "U" || got.Action != domain.AuditActionRestore {
		t.Fatalf("unexpected filter %+v", got)
	}
	if got.Page != 2 || got.PageSize != 5 {
		t.Fatalf("unexpected paging %+v", got)
	}
	wantTo := time.Date(2024, 1, 31, 23, 59, 59, 999999000, time.UTC)
	if got.From == nil || !got.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || got.To == nil || !got.To.Equal(wantTo) {
		t.Fatalf("unexpected range %v..%v", got.From, got.To)
	}
}

func TestAuditHandler_MapsErrors(t *testing.T) {
	h := NewAuditHandler(&stubAuditLister{err: domain.ErrInvalidID})

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/audit?userId=nope", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/audit?from=someday", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rr.Code)
	}
}
