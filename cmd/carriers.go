package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/quotelane/exchange-cli/internal/carrier"
	"github.com/quotelane/exchange-cli/internal/model"
)

var carriersCatalogPath string

var carriersCmd = &cobra.Command{
	Use:   "carriers",
	Short: "Inspect the carrier catalog",
}

var carriersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List carriers in the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog(carriersCatalogPath)
		if err != nil {
			return err
		}
		formatCarriersList(os.Stdout, catalog.Carriers())
		return nil
	},
}

var carriersShowCmd = &cobra.Command{
	Use:   "show <carrier-id>",
	Short: "Show a carrier's full rate table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog(carriersCatalogPath)
		if err != nil {
			return err
		}
		c, ok := catalog.Get(args[0])
		if !ok {
			return eris.Errorf("unknown carrier: %s", args[0])
		}
		return printJSON(os.Stdout, c)
	},
}

func init() {
	carriersCmd.PersistentFlags().StringVar(&carriersCatalogPath, "catalog", "", "carrier catalog YAML (default from config)")
	carriersCmd.AddCommand(carriersListCmd)
	carriersCmd.AddCommand(carriersShowCmd)
	rootCmd.AddCommand(carriersCmd)
}

func formatCarriersList(out io.Writer, carriers []carrier.Config) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tRATING\tFULL_COVERAGE\tAVAILABLE\tEXCLUSIVE")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------------\t---------\t---------")

	for _, c := range carriers {
		full := "-"
		if rate, ok := c.BaseRate(model.CoverageFull); ok {
			full = fmt.Sprintf("$%.0f/yr", rate)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\t%t\t%s\n",
			c.ID,
			c.Name,
			c.AvgRating,
			full,
			c.Available,
			c.Exclusive,
		)
	}
	_ = w.Flush()
}
