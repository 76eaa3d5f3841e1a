package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	logLevel    string
	outputFmt   string
	networkFlag string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "xpr-wallet",
	Short: "XPR Network wallet",
	Long: `xpr-wallet reads balances, transfer history, NFTs and voting state of
XPR Network accounts and submits transfers, staking and votes signed with a
locally configured key. The serve and watch commands expose the same data
over HTTP and record portfolio snapshots in PostgreSQL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFmt {
		case outputJSON, outputText:
			return nil
		default:
			return fmt.Errorf("invalid --output %q (json, text)", outputFmt)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", outputJSON, "output format (json, text)")
	rootCmd.PersistentFlags().StringVar(&networkFlag, "network", "", "network to use for this command (mainnet, testnet); defaults to the selected network")
}
