package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botparams",
	Short: "botparams runs chat commands uniformly across chat platforms",
	Long: `botparams connects chat platforms (OneBot V11, Feishu, Telegram, QQ Guild,
Discord, DingTalk) and dispatches commands to handlers that resolve the
adapter name, segment factory, image builder and private-message checks
of whichever platform delivered the event.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(adaptersCmd)
	rootCmd.AddCommand(versionCmd)
}
