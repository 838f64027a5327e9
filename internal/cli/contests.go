package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/healthrocket-labs/ignition/internal/domain"
)

func init() {
	rootCmd.AddCommand(contestsCmd)
}

var contestsCmd = &cobra.Command{
	Use:   "contests",
	Short: "List the contest catalog",
	RunE:  runContests,
}

func runContests(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tENTRY\tFP\tDEVICE\tDURATION")
	for _, c := range domain.DefaultContests() {
		entry := "free"
		if !c.IsFree() {
			entry = fmt.Sprintf("$%d", c.EntryFeeUSD)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%dd\n",
			c.ID, c.Name, c.Category, entry, c.FuelPoints, c.RequiredDevice, c.DurationDays)
	}
	return w.Flush()
}
