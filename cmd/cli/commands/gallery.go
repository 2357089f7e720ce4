package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/services"
	"github.com/humanitycalls/volunteer-desk/pkg/errorx"
)

// GalleryListCmd creates the galleryList command
func GalleryListCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "galleryList",
		Short: "List gallery images, optionally for one project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Admin == nil {
				return ErrNoAdminToken
			}
			project, _ := cmd.Flags().GetString("project")

			images, err := app.Admin.ListGallery(app.Ctx, project)
			if err != nil {
				return err
			}

			printGallery(app.Out, images)
			return nil
		},
	}
	cmd.Flags().String("project", "", "Only show images for this project id")
	return cmd
}

// GalleryUploadCmd creates the galleryUpload command
func GalleryUploadCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "galleryUpload <project_id> <event_date> <image[@order]>...",
		Short: "Upload images to a project's gallery",
		Long: `Upload one or more images to a project's gallery. Images go up in ascending
order; append @N to a path to move it (e.g. stage.jpg@1). Images without an
explicit order keep their position on the command line.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Admin == nil {
				return ErrNoAdminToken
			}
			projectID, eventDate := args[0], args[1]

			files, err := parseGalleryFiles(args[2:])
			if err != nil {
				return err
			}

			app.Logger.Debug("galleryUpload command",
				zap.String("project_id", projectID),
				zap.String("event_date", eventDate),
				zap.Int("files", len(files)))

			result, err := services.UploadGallery(
				app.Ctx,
				files,
				projectID,
				eventDate,
				app.Cropper,
				app.Coordinator(services.GalleryImageStore(app.Admin)),
				app.Admin,
				app.Logger,
			)
			if err != nil {
				return err
			}

			succeeded := result.Batch.Succeeded()
			fmt.Fprintf(app.Out, "\n✓ Uploaded %d of %d images\n", len(succeeded), len(result.Batch.Results))
			for _, item := range succeeded {
				fmt.Fprintf(app.Out, "  ✓ %s\n", item.Name)
			}

			if failed := result.Batch.Failed(); len(failed) > 0 {
				fmt.Fprintf(app.Out, "\n⚠️  %s\n", errorx.Notify(result.Batch.Err()))
				for _, item := range failed {
					fmt.Fprintf(app.Out, "  ✗ %s: %v\n", item.Name, item.Err)
				}
			}

			printGallery(app.Out, result.Gallery)
			return nil
		},
	}
}

// GalleryUpdateCmd creates the galleryUpdate command
func GalleryUpdateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "galleryUpdate <image_id>",
		Short: "Change a gallery image's project or event date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Admin == nil {
				return ErrNoAdminToken
			}
			project, _ := cmd.Flags().GetString("project")
			date, _ := cmd.Flags().GetString("date")
			if project == "" && date == "" {
				return fmt.Errorf("nothing to update: pass --project and/or --date")
			}

			gallery, err := services.UpdateGalleryImage(app.Ctx, app.Admin, app.Logger, args[0], model.GalleryUpdate{
				ProjectID: project,
				EventDate: date,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "\n✓ Gallery image %s updated\n", args[0])
			printGallery(app.Out, gallery)
			return nil
		},
	}
	cmd.Flags().String("project", "", "New project id")
	cmd.Flags().String("date", "", "New event date (YYYY-MM-DD)")
	return cmd
}

// GalleryDeleteCmd creates the galleryDelete command
func GalleryDeleteCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "galleryDelete <image_id>",
		Short: "Delete a gallery image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Admin == nil {
				return ErrNoAdminToken
			}
			project, _ := cmd.Flags().GetString("project")

			gallery, err := services.DeleteGalleryImage(app.Ctx, app.Admin, app.Logger, args[0], project)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "\n✓ Gallery image %s deleted\n", args[0])
			printGallery(app.Out, gallery)
			return nil
		},
	}
	cmd.Flags().String("project", "", "Project whose gallery to show afterwards")
	return cmd
}

// parseGalleryFiles reads "path" or "path@order" arguments. Paths without an
// order take their 1-based position on the command line.
func parseGalleryFiles(args []string) ([]services.GalleryFile, error) {
	files := make([]services.GalleryFile, 0, len(args))
	for i, arg := range args {
		path, order := arg, i+1
		if at := strings.LastIndex(arg, "@"); at > 0 {
			n, err := strconv.Atoi(arg[at+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid order in %q: %w", arg, err)
			}
			path, order = arg[:at], n
		}
		files = append(files, services.GalleryFile{Path: path, Order: order})
	}
	return files, nil
}

func printGallery(out io.Writer, images []model.GalleryImage) {
	if len(images) == 0 {
		fmt.Fprintf(out, "\nNo gallery images.\n\n")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nID\tPROJECT\tEVENT DATE\tORDER\tURL")
	for _, img := range images {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", img.ID, img.ProjectID, img.EventDate, img.Order, img.ImageURL)
	}
	w.Flush()
	fmt.Fprintln(out)
}
