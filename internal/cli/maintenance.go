package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newMaintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "maintenance <reminders|cleanup|archive>",
		Short:     "Run a single tick of a maintenance job and exit",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{jobReminders, jobCleanup, jobArchive},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			name := args[0]
			if err := a.sched.RunOnce(cmd.Context(), name); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			log.Info("maintenance run finished", slog.String("job", name))
			return nil
		},
	}
}
