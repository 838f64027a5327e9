package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthrocket-labs/ignition/internal/daemon"
	"github.com/healthrocket-labs/ignition/internal/domain"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <player-id> <boost|contest|assessment> [action-id]",
	Short: "Check whether a gated action is currently allowed",
	Long: `Run the eligibility gate for a player without recording anything.

Examples:
  ignition check p1 boost b-cold-shower
  ignition check p1 contest tc1
  ignition check p1 assessment`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	playerID := args[0]
	var intent domain.Intent
	switch args[1] {
	case "boost":
		intent.Kind = domain.IntentStartBoost
	case "contest":
		intent.Kind = domain.IntentRegisterContest
	case "assessment":
		intent.Kind = domain.IntentSubmitAssessment
	default:
		return fmt.Errorf("unknown intent %q (want boost, contest, or assessment)", args[1])
	}
	if len(args) == 3 {
		intent.ActionID = args[2]
	}
	if intent.Kind != domain.IntentSubmitAssessment && intent.ActionID == "" {
		return fmt.Errorf("%s checks need an action-id", args[1])
	}

	decision, err := d.Gate.Check(context.Background(), playerID, intent)
	if err != nil {
		return err
	}

	if decision.Admitted {
		fmt.Println("allowed")
		if decision.PaymentRequired {
			fmt.Println("  entry fee due at registration")
		}
		if decision.ConsumeCredit {
			fmt.Println("  a contest credit will be consumed")
		}
		return nil
	}

	fmt.Printf("denied (%s)\n", decision.Reason)
	if decision.Display != "" {
		fmt.Printf("  %s\n", decision.Display)
	}
	return nil
}
