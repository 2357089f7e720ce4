package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/services"
)

// ApplyCmd creates the apply command
func ApplyCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <form.yaml>",
		Short: "Submit a volunteer application from a YAML form",
		Long: `Validate the form locally, crop the government ID and profile picture,
upload both, then submit the application. Image paths in the form are
resolved relative to the form file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.ApplicantLifecycle()
			if err != nil {
				return err
			}

			form, err := LoadApplicationForm(args[0])
			if err != nil {
				return err
			}

			app.Logger.Debug("apply command", zap.String("form", args[0]))

			result, err := services.SubmitApplication(
				app.Ctx,
				form,
				app.Validator,
				app.Cropper,
				app.Coordinator(services.VolunteerImageStore(app.Applicant)),
				manager,
				app.Logger,
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "\n✓ Application submitted!\n\n")
			fmt.Fprintf(app.Out, "Status:          %s\n", result.Status.Status)
			fmt.Fprintf(app.Out, "ID image:        %s\n", result.GovIDImage.URL)
			fmt.Fprintf(app.Out, "Profile picture: %s\n\n", result.ProfilePicture.URL)
			fmt.Fprintln(app.Out, "You will be notified once your application has been reviewed.")
			fmt.Fprintln(app.Out)
			return nil
		},
	}
}

// LoadApplicationForm reads a YAML form. Relative image paths are resolved
// against the form's directory.
func LoadApplicationForm(path string) (*model.ApplicationForm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form: %w", err)
	}

	var form model.ApplicationForm
	if err := yaml.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	dir := filepath.Dir(path)
	form.GovIDImagePath = resolvePath(dir, form.GovIDImagePath)
	form.ProfilePicturePath = resolvePath(dir, form.ProfilePicturePath)
	return &form, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
