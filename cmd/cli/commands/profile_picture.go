package commands

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/crop"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/services"
)

// SetProfilePictureCmd creates the setProfilePicture command
func SetProfilePictureCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setProfilePicture <image>",
		Short: "Crop, upload and link a new profile picture",
		Long: `Crop an image to a square and make it the applicant's profile picture.

Pass --x/--y/--width/--height to choose the area in image pixels, or --zoom
(with optional --center-x/--center-y) to take a centred square at that zoom.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Applicant == nil {
				return ErrNoApplicantToken
			}
			path := args[0]

			x, _ := cmd.Flags().GetInt("x")
			y, _ := cmd.Flags().GetInt("y")
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			zoom, _ := cmd.Flags().GetFloat64("zoom")
			cx, _ := cmd.Flags().GetFloat64("center-x")
			cy, _ := cmd.Flags().GetFloat64("center-y")

			var selection *model.CropInput
			switch {
			case width > 0 && height > 0:
				selection = &model.CropInput{X: x, Y: y, Width: width, Height: height}
			case zoom > 1:
				zoomed, err := zoomSelection(path, zoom, crop.Point{X: cx, Y: cy})
				if err != nil {
					return err
				}
				selection = zoomed
			}

			return runProfilePicture(app, path, selection)
		},
	}

	cmd.Flags().Int("x", 0, "Left edge of the crop area in image pixels")
	cmd.Flags().Int("y", 0, "Top edge of the crop area in image pixels")
	cmd.Flags().Int("width", 0, "Width of the crop area in image pixels")
	cmd.Flags().Int("height", 0, "Height of the crop area in image pixels")
	cmd.Flags().Float64("zoom", 1, "Zoom factor (>= 1) for a centred square crop")
	cmd.Flags().Float64("center-x", 0, "Horizontal centre of the zoomed crop in image pixels")
	cmd.Flags().Float64("center-y", 0, "Vertical centre of the zoomed crop in image pixels")

	return cmd
}

func runProfilePicture(app *AppContext, path string, selection *model.CropInput) error {
	app.Logger.Debug("setProfilePicture command", zap.String("path", path), zap.Bool("selection", selection != nil))

	result, err := services.UpdateProfilePicture(
		app.Ctx,
		path,
		selection,
		app.Cropper,
		app.Coordinator(services.VolunteerImageStore(app.Applicant)),
		app.Applicant,
		app.Logger,
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "\n✓ Profile picture updated!\n\n")
	fmt.Fprintf(app.Out, "Image:  %s\n", result.Asset.URL)
	fmt.Fprintf(app.Out, "Status: %s\n\n", result.Status.Status)
	return nil
}

// zoomSelection converts a zoom and centre into the square crop it shows
func zoomSelection(path string, zoom float64, center crop.Point) (*model.CropInput, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	natural, err := crop.Dimensions(source, path)
	if err != nil {
		return nil, err
	}
	region := crop.RegionForZoom(natural, services.ProfileAspect, zoom, center)

	return &model.CropInput{
		X:      int(math.Round(region.X)),
		Y:      int(math.Round(region.Y)),
		Width:  int(math.Round(region.Width)),
		Height: int(math.Round(region.Height)),
		Zoom:   zoom,
	}, nil
}
