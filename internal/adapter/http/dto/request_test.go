package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbook/internal/domain"
)

func TestCreateTransactionRequest_ToUseCaseInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		check   func(t *testing.T, req *CreateTransactionRequest)
	}{
		{
			name: "numeric amount and calendar date",
			body: `{"type":"income","amount":12.5,"note":"tip","date":"2024-03-01"}`,
			check: func(t *testing.T, req *CreateTransactionRequest) {
				in, err := req.ToUseCaseInput()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if in.Type != domain.TransactionTypeIncome || !in.Amount.Equal(decimal.RequireFromString("12.5")) || in.Note != "tip" {
					t.Fatalf("unexpected input %+v", in)
				}
				if in.Date == nil || !in.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
					t.Fatalf("unexpected date %v", in.Date)
				}
			},
		},
		{
			name: "string amount, no date",
			body: `{"type":"expense","amount":"99.99"}`,
			check: func(t *testing.T, req *CreateTransactionRequest) {
				in, err := req.ToUseCaseInput()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if in.Date != nil {
					t.Fatalf("expected nil date, got %v", in.Date)
				}
			},
		},
		{name: "bad type", body: `{"type":"loan","amount":1}`, wantErr: domain.ErrInvalidType},
		{name: "missing amount", body: `{"type":"income"}`, wantErr: domain.ErrInvalidAmount},
		{name: "bad date", body: `{"type":"income","amount":1,"date":"03/01/2024"}`, wantErr: domain.ErrInvalidDate},
		{name: "tiny exponent", body: `{"type":"income","amount":1e-50000000}`, wantErr: domain.ErrInvalidAmount},
		{name: "huge exponent", body: `{"type":"income","amount":"1e400000000"}`, wantErr: domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateTransactionRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.check != nil {
				tt.check(t, &req)
				return
			}
			if _, err := req.ToUseCaseInput(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpdateTransactionRequest_ToUseCaseInput(t *testing.T) {
	var req UpdateTransactionRequest
	if err := json.Unmarshal([]byte(`{"note":"","date":"2024-05-05T10:00:00+02:00"}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}

	in, err := req.ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Type != nil || in.Amount != nil {
		t.Fatalf("omitted fields must stay nil: %+v", in)
	}
	if in.Note == nil || *in.Note != "" {
		t.Fatalf("explicit empty note must be kept, got %v", in.Note)
	}
	if in.Date == nil || !in.Date.Equal(time.Date(2024, 5, 5, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", in.Date)
	}

	bad := "refund"
	if _, err := (&UpdateTransactionRequest{Type: &bad}).ToUseCaseInput(); !errors.Is(err, domain.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}

	var extreme UpdateTransactionRequest
	if err := json.Unmarshal([]byte(`{"amount":1e-50000000}`), &extreme); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := extreme.ToUseCaseInput(); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestParseRangeEnd(t *testing.T) {
	end, err := ParseRangeEnd("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 2, 29, 23, 59, 59, 999999000, time.UTC); !end.Equal(want) {
		t.Fatalf("calendar date should cover the whole day, got %v", end)
	}

	end, err = ParseRangeEnd("2024-02-29T12:00:00Z")
	if err != nil || !end.Equal(time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp should be kept as-is, got %v %v", end, err)
	}

	if end, err := ParseRangeEnd(""); end != nil || err != nil {
		t.Fatalf("empty value should be unset, got %v %v", end, err)
	}
}
