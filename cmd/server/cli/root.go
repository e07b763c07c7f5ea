package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cfgFile string

// Execute 构建命令树并执行
func Execute(appName, version string) error {
	return newRootCmd(appName, version).Execute()
}

func newRootCmd(appName, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smsvalidator",
		Short: "Issue and validate SMS verification tokens",
		Long: `smsvalidator issues short numeric verification codes bound to a business entity,
delivers them by SMS and validates them on the way back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml); environment variables use the SMS_VALIDATOR_ prefix")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCleanTokensCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appName, version)
		},
	})

	return cmd
}
