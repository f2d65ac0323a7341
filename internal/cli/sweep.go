package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quickbills/billpay-api/internal/domain/purchase"
	"github.com/quickbills/billpay-api/internal/domain/reconcile"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/pkg/database"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().Duration("older-than", 0, "Pending age before a purchase is failed (default SWEEP_PENDING_AGE)")
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one reconciliation sweep",
	Long: `Fail purchases stuck in pending, reversing any committed debit, and credit
direct payments that never reached their purchase. Transactions flagged for
review are listed in the count but not modified.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetDuration("older-than")
	if age <= 0 {
		age = cfg.SweepPendingAge
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	machine := transaction.NewMachine(db)
	guard := wallet.NewGuard()
	sweeper := reconcile.NewSweeper(machine, purchase.NewCompensator(db, machine, guard), age, time.Minute)

	report, err := sweeper.SweepOnce(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "failed:   %d (%d reversed)\n", report.Failed, report.Reversed)
	fmt.Fprintf(out, "flagged:  %d\n", report.Flagged)
	fmt.Fprintf(out, "released: %d\n", report.Released)
	if report.Errors > 0 {
		return fmt.Errorf("%d transactions could not be reconciled, see logs", report.Errors)
	}
	return nil
}
