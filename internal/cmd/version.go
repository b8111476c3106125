package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended to add the commit, build date, Go toolchain and Gofulmen/Crucible versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeVersion(cmd.OutOrStdout(), GetAppIdentity().BinaryName, extended)
	},
}

func writeVersion(w io.Writer, binaryName string, extended bool) error {
	if _, err := fmt.Fprintf(w, "%s %s\n", binaryName, versionInfo.Version); err != nil || !extended {
		return err
	}

	deps := crucible.GetVersion()
	_, err := fmt.Fprintf(w, "Commit: %s\nBuilt: %s\nGo: %s\n\nGofulmen: %s\nCrucible: %s\n",
		versionInfo.Commit, versionInfo.BuildDate, runtime.Version(), deps.Gofulmen, deps.Crucible)
	return err
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
