package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/internal/config"
	"github.com/humanitycalls/volunteer-desk/pkg/clients/sheetsclient"
	"github.com/humanitycalls/volunteer-desk/pkg/core/projection"
	"github.com/humanitycalls/volunteer-desk/pkg/core/services"
)

// ExportCmd creates the export command
func ExportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the roster to CSV, XLSX and PDF files, and optionally a Google Sheet",
		Long: `Fetch the roster once and write every requested format from the same rows,
so the files always agree. With --sheet (or export.rosterSheetID in the config
and --publish) the same rows are written to a new tab of that spreadsheet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.AdminLifecycle()
			if err != nil {
				return err
			}

			bucket, _ := cmd.Flags().GetString("status")
			search, _ := cmd.Flags().GetString("search")
			rawFormats, _ := cmd.Flags().GetStringSlice("format")
			dir, _ := cmd.Flags().GetString("dir")
			sheetID, _ := cmd.Flags().GetString("sheet")
			publish, _ := cmd.Flags().GetBool("publish")

			sort, err := sortFromFlags(cmd)
			if err != nil {
				return err
			}
			formats, err := parseFormats(rawFormats)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = app.Cfg.Export.Dir
			}
			if sheetID == "" && publish {
				sheetID = app.Cfg.Export.RosterSheetID
			}

			app.Logger.Debug("export command",
				zap.String("status", bucket),
				zap.Strings("formats", rawFormats),
				zap.String("sheet_id", sheetID))

			// A nil publisher must stay a nil interface, not a typed nil client
			var publisher services.RosterPublisher
			if sheetID != "" {
				client, err := newSheetsClient(app)
				if err != nil {
					return err
				}
				publisher = client
			}

			result, err := services.ExportRoster(app.Ctx, manager, publisher, app.Logger, services.ExportRequest{
				Bucket:   bucket,
				Search:   search,
				Sort:     sort,
				Formats:  formats,
				Dir:      dir,
				PDFTitle: app.Cfg.Export.PDFTitle,
				SheetID:  sheetID,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "\n✓ Exported %d volunteers\n\n", result.Rows)
			for _, f := range result.Files {
				fmt.Fprintf(app.Out, "  • %s\n", f)
			}
			if result.Sheet != nil {
				verb := "Updated"
				if result.Sheet.Created {
					verb = "Created"
				}
				fmt.Fprintf(app.Out, "  • %s sheet tab %q (%d rows)\n", verb, result.Sheet.Tab, result.Sheet.Rows)
			}
			fmt.Fprintln(app.Out)
			return nil
		},
	}

	addRosterFlags(cmd)
	cmd.Flags().StringSlice("format", []string{"csv", "xlsx", "pdf"}, "Formats to write: csv, xlsx, pdf")
	cmd.Flags().String("dir", "", "Output directory (defaults to export.dir in the config)")
	cmd.Flags().String("sheet", "", "Google Sheets spreadsheet id to publish to")
	cmd.Flags().Bool("publish", false, "Publish to export.rosterSheetID from the config")
	return cmd
}

func parseFormats(raw []string) ([]projection.Format, error) {
	formats := make([]projection.Format, 0, len(raw))
	seen := make(map[projection.Format]bool)
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		f, err := projection.ParseFormat(r)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// newSheetsClient authorises against Google only when a command needs Sheets
func newSheetsClient(app *AppContext) (*sheetsclient.Client, error) {
	oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	client, err := sheetsclient.NewClient(app.Ctx, oauthCfg, app.Env, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return client, nil
}
