package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthrocket-labs/ignition/internal/app/reset"
	"github.com/healthrocket-labs/ignition/internal/domain"
)

func init() {
	rootCmd.AddCommand(resetinfoCmd)
}

var resetinfoCmd = &cobra.Command{
	Use:   "resetinfo",
	Short: "Show the next burn-streak reset boundary",
	RunE:  runResetinfo,
}

func runResetinfo(cmd *cobra.Command, args []string) error {
	now := time.Now()
	next := reset.NextFire(now, domain.ReferenceLocation(), reset.Margin)

	fmt.Printf("Reference timezone:  %s\n", domain.ReferenceTimezone)
	fmt.Printf("Next streak reset:   %s\n", next.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Time remaining:      %s\n", next.Sub(now).Round(time.Second))
	return nil
}
