package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iho/ledgerbook/internal/adapter/http/dto"
)

// render prints data as indented JSON with -o json, otherwise runs table.
func render(cmd *cobra.Command, v *viper.Viper, data any, table func() error) error {
	if v.GetString(keyOutput) == "json" {
		return printJSON(cmd.OutOrStdout(), data)
	}
	return table()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func renderTransactions(w io.Writer, items []dto.TransactionResponse) error {
	data := pterm.TableData{{"ID", "Date", "Type", "Amount", "Note", "Deleted", "Version"}}
	for _, t := range items {
		data = append(data, []string{
			t.ID,
			t.Date.Format("2006-01-02"),
			t.Type,
			t.Amount.StringFixed(2),
			truncate(t.Note, 40),
			fmt.Sprintf("%t", t.Deleted),
			fmt.Sprintf("%d", t.Version),
		})
	}
	return renderTable(w, data)
}

func renderAudit(w io.Writer, entries []dto.AuditEntryResponse) error {
	data := pterm.TableData{{"Timestamp", "Action", "Transaction", "User"}}
	for _, e := range entries {
		data = append(data, []string{
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Action,
			e.TransactionID,
			e.UserID,
		})
	}
	return renderTable(w, data)
}

func renderSummary(w io.Writer, s *dto.SummaryResponse) error {
	return renderTable(w, pterm.TableData{
		{"Income", "Expense", "Balance"},
		{s.TotalIncome.StringFixed(2), s.TotalExpense.StringFixed(2), s.Balance.StringFixed(2)},
	})
}
