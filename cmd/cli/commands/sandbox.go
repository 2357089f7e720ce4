package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/humanitycalls/volunteer-desk/pkg/sandbox"
)

// SandboxCmd creates the sandbox command
func SandboxCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run an in-memory copy of the volunteer API for rehearsals",
		Long: `Serve the volunteer and gallery endpoints from memory until interrupted.
Point apiBaseURL at it and use the admin token it prints. Any non-empty
applicant session token is accepted as a separate applicant.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			token, _ := cmd.Flags().GetString("admin-token")
			rps, _ := cmd.Flags().GetFloat64("rps")
			burst, _ := cmd.Flags().GetInt("burst")

			srv := sandbox.NewServer(
				sandbox.WithAdminToken(token),
				sandbox.WithRateLimit(rps, burst),
				sandbox.WithLogger(app.Logger),
			)

			fmt.Fprintf(app.Out, "\n🧪 Sandbox API on http://%s\n", addr)
			fmt.Fprintf(app.Out, "Admin token: %s\n", token)
			fmt.Fprintf(app.Out, "Press Ctrl+C to stop\n\n")

			return srv.Serve(app.Ctx, addr)
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:8088", "Address to listen on")
	cmd.Flags().String("admin-token", sandbox.DefaultAdminToken, "Bearer token admin requests must carry")
	cmd.Flags().Float64("rps", 0, "Requests per second before answering 429 (0 disables limiting)")
	cmd.Flags().Int("burst", 5, "Requests allowed in a burst when --rps is set")
	return cmd
}
