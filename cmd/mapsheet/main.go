// Package main provides the mapsheet CLI: serve maps drawn from spreadsheets
// over HTTP, or render one map to a standalone HTML file.
package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/mohammed-shakir/mapsheet/internal/provider/google"
	_ "github.com/mohammed-shakir/mapsheet/internal/provider/leaflet"
	_ "github.com/mohammed-shakir/mapsheet/internal/provider/mapbox"
	_ "github.com/mohammed-shakir/mapsheet/internal/provider/mapquest"
)

var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mapsheet",
		Short: "Draw spreadsheet rows as markers on web maps",
		Long: `mapsheet reads rows from a Google sheet, an XLSX workbook or a CSV file,
turns every row with coordinates into a marker and draws it with Google Maps,
MapQuest, MapBox or Leaflet.

Maps are declared in a YAML file (MAPS_FILE) or, for a single map, with the
SHEET_KEY, SHEET_NAME and PROVIDER environment variables.`,
		Version:      Version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newRenderCmd())
	return root
}
