package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/spf13/cobra"
)

type expiredTokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (repository.PurgeResult, error)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired blacklist entries, verification and reset tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err = configureLogging(cfg); err != nil {
			return err
		}

		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return runSweep(cmd.Context(), repository.NewTokenLedger(db), time.Now(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(ctx context.Context, purger expiredTokenPurger, now time.Time, out io.Writer) error {
	result, err := purger.PurgeExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep expired tokens: %w", err)
	}

	fmt.Fprintf(out, "blacklisted_tokens: %d\n", result.BlacklistedTokens)
	fmt.Fprintf(out, "email_verifications: %d\n", result.EmailVerifications)
	fmt.Fprintf(out, "password_resets: %d\n", result.PasswordResets)
	return nil
}
