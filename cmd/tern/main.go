package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/five82/tern/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(app.Options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tern: %v\n", err)
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. base carries fields no flag sets,
// such as a test backend.
func newRootCmd(base app.Options) *cobra.Command {
	opts := base

	root := &cobra.Command{
		Use:   "tern",
		Short: "Browse and edit the variables of a flow node instance",
		Long: `tern shows the variables of one flow node instance from the monitoring API
and lets you add or change them. Changes are applied optimistically and
confirmed by polling the server operation.

Without a subcommand tern starts the terminal UI.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().AddFlagSet(sessionFlags(&opts))
	root.AddCommand(newVarsCmd(&opts))
	return root
}

// sessionFlags binds the flags shared by the TUI and the vars commands.
func sessionFlags(opts *app.Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("session", pflag.ContinueOnError)
	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ~/.config/tern/config.toml)")
	fs.StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/tern/prefs.toml)")
	fs.StringVarP(&opts.Scope, "scope", "s", "", "flow node instance key (default: last used)")
	fs.StringVar(&opts.APIURL, "api-url", "", "monitoring API base URL (or TERN_API_URL)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "minimum log level: debug, info, warn, error")
	fs.StringVar(&opts.LogFile, "log-file", "", `log file, "-" for stderr`)
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug output")
	return fs
}
