package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/humanitycalls/volunteer-desk/pkg/core/lifecycle"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// StatusCmd creates the status command
func StatusCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applicant's own application status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.ApplicantLifecycle()
			if err != nil {
				return err
			}

			status, err := manager.MyStatus(app.Ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "\nStatus: %s\n", status.Status)
			if v := status.Volunteer; v != nil {
				if v.VolunteerID != "" {
					fmt.Fprintf(app.Out, "Volunteer ID: %s\n", v.VolunteerID)
				}
				if v.JoiningDate != "" {
					fmt.Fprintf(app.Out, "Joined:       %s\n", v.JoiningDate)
				}
				if reason := v.Reason(); reason != "" {
					fmt.Fprintf(app.Out, "Reason:       %s\n", reason)
				}
			}

			switch {
			case status.Status == model.StatusNone:
				fmt.Fprintln(app.Out, "\nYou have not applied yet. Run 'apply <form.yaml>' to submit an application.")
			case status.Status == model.StatusRejected && lifecycle.CanApply(status.Status):
				fmt.Fprintln(app.Out, "\nYou may submit a new application.")
			}
			fmt.Fprintln(app.Out)
			return nil
		},
	}
}
