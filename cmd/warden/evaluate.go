package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/spf13/cobra"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [file]",
		Short: "Authorize one transaction read from a JSON file (or - for stdin)",
		Long: `Evaluate a transaction against the configured rules and print the decision.
The decision is recorded in the audit log like any other.

Examples:
  warden evaluate tx.json
  echo '{"id":"t1","program":"SNAP","amount":12,"merchantCategoryCode":"5411"}' | warden evaluate -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := readTransaction(cmd.InOrStdin(), args[0])
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

			res, err := a.orch.Evaluate(ctx, tx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	return cmd
}

func readTransaction(stdin io.Reader, path string) (*domain.TransactionContext, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction: %w", err)
	}

	var tx domain.TransactionContext
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return &tx, nil
}
