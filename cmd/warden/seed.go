package main

import (
	"fmt"
	"log/slog"

	"github.com/opensource-finance/warden/internal/mcc"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var skipMCC bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the baseline program rules and merchant code descriptors",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			created, err := a.admin.SeedInitialRules(ctx, a.policyCfg)
			if err != nil {
				return err
			}

			descriptors := 0
			if !skipMCC {
				for _, d := range mcc.Fallback() {
					if err := a.repo.SaveMCCDescriptor(ctx, d); err != nil {
						return fmt.Errorf("save merchant code %s: %w", d.Code, err)
					}
					descriptors++
				}
			}

			slog.Info("seed complete",
				"rules_created", created,
				"mcc_descriptors", descriptors,
			)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d rules, saved %d merchant codes\n", created, descriptors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipMCC, "skip-mcc", false, "do not write merchant code descriptors")
	return cmd
}
