package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// InteractiveCmd creates the interactive command
func InteractiveCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (load config once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands without
reloading configuration or reconnecting to the ledger. Pending attachments
recorded in memory stay available to retryAttachments for the whole session.

Type 'help' to see available commands, 'exit' or 'quit' to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Interactive = true
			defer func() { app.Interactive = false }()

			fmt.Fprintln(app.Out, "\n🚀 Starting interactive session...")
			fmt.Fprintln(app.Out, "Type 'help' for available commands, 'exit' or 'quit' to leave")

			commands := sessionCommands(cmd.Root())

			for {
				fmt.Fprint(app.Out, "> ")
				line, err := app.In.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("error reading input: %w", err)
				}
				eof := errors.Is(err, io.EOF)

				line = strings.TrimSpace(line)
				if line == "" {
					if eof {
						return nil
					}
					continue
				}

				parts := strings.Fields(line)
				cmdName, cmdArgs := parts[0], parts[1:]

				switch cmdName {
				case "exit", "quit":
					fmt.Fprintln(app.Out, "👋 Goodbye!")
					return nil
				case "help":
					printInteractiveHelp(app, commands)
					continue
				}

				targetCmd, exists := commands[cmdName]
				if !exists {
					fmt.Fprintf(app.Out, "❌ Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
					continue
				}

				app.Report(runInSession(targetCmd, cmdArgs))

				if eof {
					return nil
				}
			}
		},
	}
}

// sessionCommands lists the commands that can run inside a session
func sessionCommands(root *cobra.Command) map[string]*cobra.Command {
	commands := make(map[string]*cobra.Command)
	for _, subCmd := range root.Commands() {
		switch subCmd.Name() {
		case "interactive", "completion", "help", "sandbox":
			continue
		}
		commands[subCmd.Name()] = subCmd
	}
	return commands
}

// runInSession executes a command's RunE directly so PersistentPreRunE does not
// initialise the application a second time
func runInSession(cmd *cobra.Command, args []string) error {
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
		flag.Value.Set(flag.DefValue)
	})

	if err := cmd.ParseFlags(args); err != nil {
		return fmt.Errorf("error parsing flags: %w", err)
	}
	args = cmd.Flags().Args()

	if cmd.Args != nil {
		if err := cmd.Args(cmd, args); err != nil {
			return err
		}
	}

	if cmd.RunE != nil {
		return cmd.RunE(cmd, args)
	}
	if cmd.Run != nil {
		cmd.Run(cmd, args)
	}
	return nil
}

func printInteractiveHelp(app *AppContext, commands map[string]*cobra.Command) {
	fmt.Fprintln(app.Out, "\nAvailable commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(app.Out, "  %-45s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Fprintln(app.Out, "\n  help                                          Show this help message")
	fmt.Fprintln(app.Out, "  exit, quit                                    Exit the interactive session")
	fmt.Fprintln(app.Out)
}
