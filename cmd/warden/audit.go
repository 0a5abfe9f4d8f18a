package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	var (
		program string
		from    string
		to      string
		since   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded decisions for a program",
		Long: `Print the audit records of one program, newest first.
The range is either --from/--to (RFC 3339) or the last --since.

Examples:
  warden audit --program TANF
  warden audit --program SNAP --from 2026-04-01T00:00:00Z --to 2026-04-30T23:59:59Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := auditRange(from, to, since, time.Now())
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.repo.ListAudit(ctx, program, start, end)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}

	cmd.Flags().StringVarP(&program, "program", "p", "", "benefit program (required)")
	cmd.Flags().StringVar(&from, "from", "", "start of the range, RFC 3339")
	cmd.Flags().StringVar(&to, "to", "", "end of the range, RFC 3339 (default now)")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "range length when --from is not set")
	_ = cmd.MarkFlagRequired("program")
	return cmd
}

// auditRange resolves the audit flags against now.
func auditRange(from, to string, since time.Duration, now time.Time) (time.Time, time.Time, error) {
	end := now
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: --to: %v", domain.ErrInvalidInput, err)
		}
		end = t
	}

	start := end.Add(-since)
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: --from: %v", domain.ErrInvalidInput, err)
		}
		start = t
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range ends before it starts", domain.ErrInvalidInput)
	}
	return start, end, nil
}
