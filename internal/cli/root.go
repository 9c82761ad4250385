// Package cli is the terminal presentation for the client runtime and its
// composition root: it wires config, session store, bus, transport and
// engine together. It consumes the engine strictly through GetState,
// Subscribe and the two action methods.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fodinha-client/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	ConfigPath string
}

// NewRootCommand creates the root command for the fodinha CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fodinha",
		Short: "Terminal client for the fodinha card game",
		Long: "Terminal client for the fodinha trick-taking card game.\n\n" +
			"Connects to a game server over websocket, keeps a locally\n" +
			"responsive view of the game and relays your bids and plays.",
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewRoomsCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Logger builds the structured logger for a command run.
func (o *RootOptions) Logger() *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Config loads the configuration file, falling back to defaults when no
// path was given.
func (o *RootOptions) Config() (*config.Config, error) {
	if o.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.ConfigPath)
}
