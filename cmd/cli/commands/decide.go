package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/lifecycle"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// ApproveCmd creates the approve command
func ApproveCmd(app *AppContext) *cobra.Command {
	return decisionCmd(app, "approve", "Approve a pending application and mint its volunteer id", model.StatusActive)
}

// RejectCmd creates the reject command
func RejectCmd(app *AppContext) *cobra.Command {
	return decisionCmd(app, "reject", "Reject an application (a reason is required)", model.StatusRejected)
}

// BanCmd creates the ban command
func BanCmd(app *AppContext) *cobra.Command {
	return decisionCmd(app, "ban", "Ban a volunteer (a reason is required)", model.StatusBanned)
}

// ReactivateCmd creates the reactivate command
func ReactivateCmd(app *AppContext) *cobra.Command {
	return decisionCmd(app, "reactivate", "Reactivate a rejected or banned volunteer", model.StatusActive)
}

// ReapplyCmd creates the reapply command
func ReapplyCmd(app *AppContext) *cobra.Command {
	return decisionCmd(app, "reapply", "Move a rejected application back to pending", model.StatusPending)
}

func decisionCmd(app *AppContext, name, short string, target model.Status) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <application_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.AdminLifecycle()
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")

			app.Logger.Debug(name+" command",
				zap.String("id", args[0]),
				zap.String("target", string(target)))

			current, err := manager.Find(app.Ctx, args[0])
			if err != nil {
				return err
			}

			result, err := decideWithPrompt(app, manager, *current, target, reason)
			if err != nil {
				return err
			}

			printDecision(app, result)
			return nil
		},
	}

	if target.IsNegative() {
		cmd.Flags().String("reason", "", "Reason shown to the applicant (prompted for when missing)")
	} else {
		cmd.Flags().String("reason", "", "Ignored for this decision")
		cmd.Flags().MarkHidden("reason")
	}
	return cmd
}

// decideWithPrompt asks for a reason whenever the guard demands one and resubmits
func decideWithPrompt(app *AppContext, manager *lifecycle.Manager, current model.VolunteerApplication, target model.Status, reason string) (*lifecycle.DecisionResult, error) {
	for {
		result, err := manager.Decide(app.Ctx, current, target, reason)
		var guard *lifecycle.GuardError
		if err == nil || !errors.As(err, &guard) || !errors.Is(err, lifecycle.ErrReasonRequired) {
			return result, err
		}

		fmt.Fprintf(app.Out, "%s\n", guard.UserMessage())
		reason, err = app.Prompt("Reason: ")
		if err != nil {
			return nil, err
		}
	}
}

func printDecision(app *AppContext, result *lifecycle.DecisionResult) {
	v := result.Application
	if result.Approved {
		fmt.Fprintf(app.Out, "\n🎉 %s approved!\n\n", v.FullName)
		fmt.Fprintf(app.Out, "Volunteer ID: %s\n", v.VolunteerID)
		fmt.Fprintf(app.Out, "Joined:       %s\n\n", v.JoiningDate)
		return
	}

	fmt.Fprintf(app.Out, "\n✓ %s: %s → %s\n", v.FullName, result.Previous, v.Status)
	if reason := v.Reason(); reason != "" {
		fmt.Fprintf(app.Out, "Reason: %s\n", reason)
	}
	if v.VolunteerID != "" {
		fmt.Fprintf(app.Out, "Volunteer ID: %s\n", v.VolunteerID)
	}
	fmt.Fprintln(app.Out)
}

// DeleteVolunteerCmd creates the deleteVolunteer command
func DeleteVolunteerCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteVolunteer <application_id>",
		Short: "Permanently delete an application and its volunteer id",
		Long: `Permanently delete an application together with its volunteer id.
This cannot be undone. You will be asked to type the application id to confirm.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.AdminLifecycle()
			if err != nil {
				return err
			}
			id := args[0]

			current, err := manager.Find(app.Ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "\n⚠️  This will permanently delete %s (%s, status %s).\n", current.FullName, current.Email, current.Status)
			confirmation, err := app.Prompt("Type the application id to confirm: ")
			if err != nil {
				return err
			}

			if err := manager.Delete(app.Ctx, id, confirmation); err != nil {
				if errors.Is(err, lifecycle.ErrConfirmationMismatch) {
					fmt.Fprintf(app.Out, "Confirmation did not match. Nothing was deleted.\n\n")
					return nil
				}
				return err
			}

			fmt.Fprintf(app.Out, "\n✓ Application %s deleted\n\n", id)
			return nil
		},
	}
}
