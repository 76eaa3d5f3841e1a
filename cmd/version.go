package cmd

import (
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags at build time)
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildTime, GoVersion: runtime.Version()}
		return render(info, func(w io.Writer) {
			row(w, "xpr-wallet", info.Version)
			row(w, "COMMIT", info.Commit)
			row(w, "BUILT", info.BuildTime)
			row(w, "GO", info.GoVersion)
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
