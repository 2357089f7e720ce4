package commands

import (
	"fmt"
	"io"
	"iter"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/lifecycle"
	"github.com/humanitycalls/volunteer-desk/pkg/core/projection"
)

// ListVolunteersCmd creates the listVolunteers command
func ListVolunteersCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listVolunteers",
		Short: "List applications by status, with search and sorting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.AdminLifecycle()
			if err != nil {
				return err
			}

			bucket, _ := cmd.Flags().GetString("status")
			search, _ := cmd.Flags().GetString("search")
			sort, err := sortFromFlags(cmd)
			if err != nil {
				return err
			}

			app.Logger.Debug("listVolunteers command",
				zap.String("status", bucket),
				zap.String("search", search),
				zap.String("sort", string(sort.Key)))

			apps, err := manager.Roster(app.Ctx, bucket)
			if err != nil {
				return err
			}

			count := printRows(app.Out, projection.Project(apps, projection.Filter{Bucket: bucket, Search: search}, sort))
			fmt.Fprintf(app.Out, "\n%d of %d applications shown\n\n", count, len(apps))
			return nil
		},
	}

	addRosterFlags(cmd)
	return cmd
}

// addRosterFlags registers the filter and sort flags shared by listVolunteers and export
func addRosterFlags(cmd *cobra.Command) {
	cmd.Flags().String("status", lifecycle.BucketAll, "Status bucket: all, pending, active, temporary, rejected or banned")
	cmd.Flags().String("search", "", "Case-insensitive match on name, email, phone or volunteer id")
	cmd.Flags().String("sort", "", "Sort by name, joined, created or volunteerId")
	cmd.Flags().Bool("desc", false, "Sort descending")
}

func sortFromFlags(cmd *cobra.Command) (projection.Sort, error) {
	rawSort, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")

	key, err := projection.ParseSortKey(rawSort)
	if err != nil {
		return projection.Sort{}, err
	}
	return projection.Sort{Key: key, Desc: desc}, nil
}

// printRows writes rows as an aligned table and returns how many were written
func printRows(out io.Writer, rows iter.Seq[projection.Row]) int {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nVOLUNTEER ID\tNAME\tEMAIL\tPHONE\tSTATUS\tJOINED\tREASON\tAPPLICATION")

	count := 0
	for row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.VolunteerID,
			row.FullName,
			row.Email,
			row.Phone,
			row.Status,
			row.JoinedDate,
			orDash(row.Reason),
			row.ID,
		)
		count++
	}
	w.Flush()
	return count
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
