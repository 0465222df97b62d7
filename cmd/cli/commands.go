package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iho/ledgerbook/internal/adapter/http/dto"
	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/auth"
	"github.com/iho/ledgerbook/internal/infrastructure/postgres"
)

func tokenCmd(v *viper.Viper) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed access token for a user id and role",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := v.GetString(keySecret)
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or LEDGERCTL_JWT_SECRET)")
			}
			if userID == "" {
				userID = ulid.Make().String()
			}

			token, err := auth.NewJWTManager(secret, ttl).GenerateWithTTL(domain.Claim{
				UserID: userID,
				Role:   domain.Role(role),
			}, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (ULID); a new one is generated when empty")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleReader), "Role: admin, editor or reader")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().String("secret", "", "JWT signing secret")
	_ = v.BindPFlag(keySecret, cmd.Flags().Lookup("secret"))

	return cmd
}

func txCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction"},
		Short:   "Transaction operations",
	}

	cmd.AddCommand(
		txCreateCmd(v),
		txUpdateCmd(v),
		txDeleteCmd(v),
		txRestoreCmd(v),
		txGetCmd(v),
		txListCmd(v),
	)
	return cmd
}

func txCreateCmd(v *viper.Viper) *cobra.Command {
	var txType, amount, note, date string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"type": txType, "amount": amount, "note": note}
			if date != "" {
				body["date"] = date
			}

			var created dto.TransactionResponse
			if err := newClient(v).do(cmd.Context(), http.MethodPost, "/transactions", nil, body, &created); err != nil {
				return err
			}
			return render(cmd, v, &created, func() error {
				fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Created transaction %s", created.ID))
				return renderTransactions(cmd.OutOrStdout(), []dto.TransactionResponse{created})
			})
		},
	}

	cmd.Flags().StringVar(&txType, "type", "", "income or expense")
	cmd.Flags().StringVar(&amount, "amount", "", "Positive amount, e.g. 12.50")
	cmd.Flags().StringVar(&note, "note", "", "Free-form note")
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD or RFC 3339); defaults to now")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func txUpdateCmd(v *viper.Viper) *cobra.Command {
	var txType, amount, note, date string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			for flag, value := range map[string]string{"type": txType, "amount": amount, "note": note, "date": date} {
				if cmd.Flags().Changed(flag) {
					body[flag] = value
				}
			}

			var updated dto.TransactionResponse
			if err := newClient(v).do(cmd.Context(), http.MethodPatch, "/transactions/"+url.PathEscape(args[0]), nil, body, &updated); err != nil {
				return err
			}
			return render(cmd, v, &updated, func() error {
				return renderTransactions(cmd.OutOrStdout(), []dto.TransactionResponse{updated})
			})
		},
	}

	cmd.Flags().StringVar(&txType, "type", "", "income or expense")
	cmd.Flags().StringVar(&amount, "amount", "", "Positive amount")
	cmd.Flags().StringVar(&note, "note", "", "Note")
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD or RFC 3339)")

	return cmd
}

func txDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SuccessResponse
			if err := newClient(v).do(cmd.Context(), http.MethodDelete, "/transactions/"+url.PathEscape(args[0]), nil, nil, &resp); err != nil {
				return err
			}
			return render(cmd, v, &resp, func() error {
				fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Deleted transaction %s", args[0]))
				return nil
			})
		},
	}
}

func txRestoreCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a soft-deleted transaction (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SuccessResponse
			if err := newClient(v).do(cmd.Context(), http.MethodPatch, "/transactions/"+url.PathEscape(args[0])+"/restore", nil, nil, &resp); err != nil {
				return err
			}
			return render(cmd, v, &resp, func() error {
				fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Restored transaction %s", args[0]))
				return nil
			})
		},
	}
}

func txGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t dto.TransactionResponse
			if err := newClient(v).do(cmd.Context(), http.MethodGet, "/transactions/"+url.PathEscape(args[0]), nil, nil, &t); err != nil {
				return err
			}
			return render(cmd, v, &t, func() error {
				return renderTransactions(cmd.OutOrStdout(), []dto.TransactionResponse{t})
			})
		},
	}
}

func txListCmd(v *viper.Viper) *cobra.Command {
	var (
		from, to, txType, search string
		includeDeleted           bool
		page, pageSize           int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIfNotEmpty(query, "from", from)
			setIfNotEmpty(query, "to", to)
			setIfNotEmpty(query, "type", txType)
			setIfNotEmpty(query, "search", search)
			if includeDeleted {
				query.Set("includeDeleted", "true")
			}
			query.Set("page", strconv.Itoa(page))
			query.Set("pageSize", strconv.Itoa(pageSize))

			var result dto.PageResponse[dto.TransactionResponse]
			if err := newClient(v).do(cmd.Context(), http.MethodGet, "/transactions", query, nil, &result); err != nil {
				return err
			}
			return render(cmd, v, &result, func() error {
				if err := renderTransactions(cmd.OutOrStdout(), result.Data); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d\n", result.Page, len(result.Data), result.TotalCount)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Earliest date")
	cmd.Flags().StringVar(&to, "to", "", "Latest date (inclusive)")
	cmd.Flags().StringVar(&txType, "type", "", "income or expense")
	cmd.Flags().StringVar(&search, "search", "", "Match note text or exact amount")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "Include soft-deleted transactions (admin)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", domain.DefaultPageSize, "Page size")

	return cmd
}

func auditCmd(v *viper.Viper) *cobra.Command {
	var (
		transactionID, userID, action, from, to string
		page, pageSize                          int
	)

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List audit entries, newest first (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIfNotEmpty(query, "transactionId", transactionID)
			setIfNotEmpty(query, "userId", userID)
			setIfNotEmpty(query, "action", action)
			setIfNotEmpty(query, "from", from)
			setIfNotEmpty(query, "to", to)
			query.Set("page", strconv.Itoa(page))
			query.Set("pageSize", strconv.Itoa(pageSize))

			var result dto.PageResponse[dto.AuditEntryResponse]
			if err := newClient(v).do(cmd.Context(), http.MethodGet, "/audit", query, nil, &result); err != nil {
				return err
			}
			return render(cmd, v, &result, func() error {
				if err := renderAudit(cmd.OutOrStdout(), result.Data); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d\n", result.Page, len(result.Data), result.TotalCount)
				return nil
			})
		},
	}

	list.Flags().StringVar(&transactionID, "transaction", "", "Filter by transaction id")
	list.Flags().StringVar(&userID, "user", "", "Filter by acting user id")
	list.Flags().StringVar(&action, "action", "", "create, update, soft-delete or restore")
	list.Flags().StringVar(&from, "from", "", "Earliest timestamp")
	list.Flags().StringVar(&to, "to", "", "Latest timestamp (inclusive)")
	list.Flags().IntVar(&page, "page", 1, "Page number")
	list.Flags().IntVar(&pageSize, "page-size", domain.DefaultPageSize, "Page size")

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit trail operations",
	}
	cmd.AddCommand(list)
	return cmd
}

func summaryCmd(v *viper.Viper) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expense and balance totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIfNotEmpty(query, "from", from)
			setIfNotEmpty(query, "to", to)

			var s dto.SummaryResponse
			if err := newClient(v).do(cmd.Context(), http.MethodGet, "/reports/summary", query, nil, &s); err != nil {
				return err
			}
			return render(cmd, v, &s, func() error {
				return renderSummary(cmd.OutOrStdout(), &s)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Earliest date")
	cmd.Flags().StringVar(&to, "to", "", "Latest date (inclusive)")
	return cmd
}

func migrateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (or LEDGERCTL_DATABASE_URL)")
	_ = v.BindPFlag(keyDatabaseURL, cmd.PersistentFlags().Lookup("database-url"))

	databaseURL := func() (string, error) {
		dsn := v.GetString(keyDatabaseURL)
		if dsn == "" {
			return "", fmt.Errorf("a database URL is required (--database-url or LEDGERCTL_DATABASE_URL)")
		}
		return dsn, nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := databaseURL()
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(dsn); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintln("Migrations applied"))
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := databaseURL()
			if err != nil {
				return err
			}
			if err := postgres.RunMigrationsDown(dsn); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Warning.Sprintln("Migrations rolled back"))
			return nil
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := databaseURL()
			if err != nil {
				return err
			}
			ver, dirty, err := postgres.MigrationVersion(dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", ver, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
