package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/cmd/cli/commands"
	"github.com/humanitycalls/volunteer-desk/internal/config"
	"github.com/humanitycalls/volunteer-desk/pkg/clients/apiclient"
	"github.com/humanitycalls/volunteer-desk/pkg/core/crop"
	"github.com/humanitycalls/volunteer-desk/pkg/core/validation"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
	"github.com/humanitycalls/volunteer-desk/pkg/postgres"
	"github.com/humanitycalls/volunteer-desk/pkg/utils/logging"
)

var (
	env      string
	app      = &commands.AppContext{}
	database *postgres.DB
	stop     context.CancelFunc
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hc",
		Short: "Humanity Calls CLI - Volunteer applications, review and gallery",
		Long: `A CLI for the Humanity Calls volunteer workflow: applying, reviewing
applications, exporting the roster and managing the project gallery.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Applicant commands
	rootCmd.AddCommand(commands.ApplyCmd(app))
	rootCmd.AddCommand(commands.StatusCmd(app))
	rootCmd.AddCommand(commands.SetProfilePictureCmd(app))
	rootCmd.AddCommand(commands.RetryAttachmentsCmd(app))

	// Admin commands
	rootCmd.AddCommand(commands.ListVolunteersCmd(app))
	rootCmd.AddCommand(commands.ApproveCmd(app))
	rootCmd.AddCommand(commands.RejectCmd(app))
	rootCmd.AddCommand(commands.BanCmd(app))
	rootCmd.AddCommand(commands.ReactivateCmd(app))
	rootCmd.AddCommand(commands.ReapplyCmd(app))
	rootCmd.AddCommand(commands.DeleteVolunteerCmd(app))
	rootCmd.AddCommand(commands.ExportCmd(app))
	rootCmd.AddCommand(commands.GalleryListCmd(app))
	rootCmd.AddCommand(commands.GalleryUploadCmd(app))
	rootCmd.AddCommand(commands.GalleryUpdateCmd(app))
	rootCmd.AddCommand(commands.GalleryDeleteCmd(app))

	rootCmd.AddCommand(commands.SandboxCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		if app.Logger != nil {
			app.Report(err)
			shutdown()
		} else {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		os.Exit(1)
	}
}

// initApp sets up logger, config, API clients and the attachment ledger
func initApp() error {
	var err error
	app.Env = env
	app.In = bufio.NewReader(os.Stdin)
	app.Out = os.Stdout
	app.Ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt)

	// Load configuration
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	app.Logger, err = logging.InitLogger(env, app.Cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application",
		zap.String("environment", env),
		zap.String("api_base_url", app.Cfg.APIBaseURL))

	// Load credentials
	app.Creds, err = config.LoadCredentials(env)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	// Initialize API clients for whichever credentials are present
	httpClient := &http.Client{Timeout: app.Cfg.RequestTimeout}
	clientOpts := []apiclient.Option{
		apiclient.WithHTTPClient(httpClient),
		apiclient.WithRateLimit(app.Cfg.RequestsPerSecond),
		apiclient.WithLogger(app.Logger),
	}
	if app.Creds.AdminToken != "" {
		app.Admin = apiclient.NewClient(app.Cfg.APIBaseURL, apiclient.BearerToken(app.Creds.AdminToken), clientOpts...)
		app.Logger.Debug("Admin client initialized")
	}
	if app.Creds.ApplicantToken != "" {
		app.Applicant = apiclient.NewClient(app.Cfg.APIBaseURL, apiclient.SessionToken(app.Creds.ApplicantToken), clientOpts...)
		app.Logger.Debug("Applicant client initialized")
	}

	// Initialize the attachment ledger
	if app.Cfg.DatabaseURL != "" {
		app.Logger.Info("Connecting to database")
		database, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL, app.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(app.Ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		app.Ledger = database
		app.Logger.Info("Database initialized successfully")
	} else {
		app.Ledger = db.NewMemoryStore()
		app.Logger.Debug("Using in-memory attachment ledger")
	}

	app.Cropper = crop.NewEngine(app.Cfg.JPEGQuality, app.Cfg.MaxImageWidth)
	app.Validator = validation.New(nil)

	return nil
}

func shutdown() {
	if database != nil {
		database.Close()
		database = nil
	}
	if stop != nil {
		stop()
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
