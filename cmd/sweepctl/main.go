// Command sweepctl stores Level II volumes and renders synthesized sweeps
// from them without a display.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zachdehooge/supercell-wx/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	dbPath     string
	siteID     string
	product    string
	elevation  int
	debug      bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "sweepctl",
		Short:         "Store radar volumes and render synthesized sweeps",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to viewer JSON config (default config/viewer.defaults.json when present)")
	pf.StringVar(&g.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.StringVar(&g.siteID, "site", "", "Radar site ID (overrides config)")
	pf.StringVar(&g.product, "product", "", "Product short name: REF, VEL, SW, ZDR, PHI, RHO, CFP (overrides config)")
	pf.IntVar(&g.elevation, "elevation", -1, "Elevation index (overrides config)")
	pf.BoolVar(&g.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newIngestCmd(g),
		newRenderCmd(g),
		newStatsCmd(g),
		newVolumesCmd(g),
		newPruneCmd(g),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
