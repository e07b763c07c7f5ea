package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const secondsPerDay = 24 * 60 * 60

func newCleanTokensCmd() *cobra.Command {
	var skipEvents bool

	cmd := &cobra.Command{
		Use:   "clean-tokens",
		Short: "Remove SMS validation tokens older than the retention window",
		Long: `Deletes every SMS validation token created before now minus
validator.remove_token_after_seconds, active or not. Meant to be run from cron.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgFile, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.service.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removing %d SMS validation tokens\n", removed)

			if skipEvents {
				return nil
			}
			days := retentionDays(a.cfg.Validator.RemoveTokenAfterSeconds)
			eventsRemoved, err := a.events.CleanupOldEvents(days)
			if err != nil {
				a.logger.Warn("failed to clean system events", zap.Error(err))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removing %d system events\n", eventsRemoved)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipEvents, "skip-events", false, "keep old system events")
	return cmd
}

// retentionDays 事件保留天数与 Token 保留期一致，至少 1 天
func retentionDays(seconds int) int {
	days := seconds / secondsPerDay
	if days < 1 {
		return 1
	}
	return days
}
