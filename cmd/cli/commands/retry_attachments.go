package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/humanitycalls/volunteer-desk/pkg/core/services"
)

// RetryAttachmentsCmd creates the retryAttachments command
func RetryAttachmentsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retryAttachments",
		Short: "Re-link uploaded images whose attach step failed, without uploading again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.ApplicantLifecycle()
			if err != nil {
				return err
			}

			result, err := services.RetryAttachments(
				app.Ctx,
				app.Coordinator(services.VolunteerImageStore(app.Applicant)),
				app.Applicant,
				manager,
				app.Logger,
			)
			if err != nil {
				return err
			}

			if len(result.Resolved) == 0 && len(result.Failed) == 0 {
				fmt.Fprintf(app.Out, "\nNothing to retry.\n")
				printSkipped(app, len(result.Skipped))
				fmt.Fprintln(app.Out)
				return nil
			}

			fmt.Fprintf(app.Out, "\n✓ Attached %d pending uploads\n", len(result.Resolved))
			for _, p := range result.Resolved {
				fmt.Fprintf(app.Out, "  ✓ %s (%d images)\n", p.Target, len(p.AssetURLs))
			}
			if len(result.Failed) > 0 {
				fmt.Fprintf(app.Out, "\n⚠️  %d still failing:\n", len(result.Failed))
				for _, f := range result.Failed {
					fmt.Fprintf(app.Out, "  ✗ %s %s: %s\n", f.Pending.Target, f.Pending.ID, notice(f.Err))
				}
			}
			printSkipped(app, len(result.Skipped))
			fmt.Fprintln(app.Out)
			return nil
		},
	}
}

func printSkipped(app *AppContext, n int) {
	if n > 0 {
		fmt.Fprintf(app.Out, "⏭  %d pending uploads belong to another applicant and were left untouched\n", n)
	}
}
