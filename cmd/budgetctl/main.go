// Command budgetctl runs operator tasks against the FamLedger database:
// schema migrations, budget usage repair, alert evaluation and tailing the
// notification queue.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"famledger/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "FamLedger budget operations",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newRepairCommand(),
		newEvaluateCommand(),
		newNotificationsCommand(),
	)

	return rootCmd
}
