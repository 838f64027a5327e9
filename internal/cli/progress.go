package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthrocket-labs/ignition/internal/app/progression"
	"github.com/healthrocket-labs/ignition/internal/daemon"
	"github.com/healthrocket-labs/ignition/internal/domain"
)

func init() {
	rootCmd.AddCommand(progressCmd)
}

var progressCmd = &cobra.Command{
	Use:   "progress <player-id>",
	Short: "Show a player's level, fuel points, and burn streak",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgress,
}

func runProgress(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	playerID := args[0]

	p, err := d.DB.GetProgress(ctx, playerID)
	if err != nil {
		return err
	}
	li, err := progression.LevelFor(p.TotalFuelPoints)
	if err != nil {
		return err
	}

	history, err := d.DB.Completions(ctx, playerID, domain.KindBoost, time.Time{})
	if err != nil {
		return err
	}
	st := progression.ComputeStreak(history, time.Now())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Player:\t%s\n", p.PlayerID)
	fmt.Fprintf(w, "Level:\t%d\n", li.Level)
	fmt.Fprintf(w, "Fuel Points:\t%d\n", p.TotalFuelPoints)
	fmt.Fprintf(w, "Next Level:\t%d FP (%.0f%%)\n", li.NextLevelFP, li.ProgressPct(p.TotalFuelPoints))
	fmt.Fprintf(w, "Burn Streak:\t%d days\n", st.StreakDays)
	fmt.Fprintf(w, "Boost Rotation:\t%d days remaining\n", progression.DaysUntilRotation(time.Now()))
	return w.Flush()
}
