package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/omochice/socket-chat-client/internal/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	endpoint  string
	stateDir  string
	logFile   string
	logLevel  string
	ephemeral bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Terminal client for the socket chat",
		Long: `chat connects to the chat backend over a websocket, joins with a display
name and shows the room. The last used name is remembered between runs.

Without a terminal on stdout it falls back to line mode.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdout) {
				return runLine(cmd, opts, "")
			}
			return runTUI(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.endpoint, "endpoint", "", "websocket endpoint (env CHAT_ENDPOINT)")
	flags.StringVar(&opts.stateDir, "state-dir", "", "directory for the session database and logs (env CHAT_STATE_DIR)")
	flags.StringVar(&opts.logFile, "log-file", "", "log file path (env CHAT_LOG_FILE)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (env CHAT_LOG_LEVEL)")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "do not remember the display name")

	cmd.AddCommand(newLineCmd(opts), newLogoutCmd(opts))
	return cmd
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	n := ui.NewNotifier()
	c := e.newClient(n.SessionChanged, n.ConversationChanged)
	defer c.holder.Close()

	if _, err := c.holder.Restore(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("Could not restore session")
	}

	m := ui.New(ctx, c.holder, c.conv, n.Events(),
		ui.WithLogger(e.logger.With().Str("component", "ui").Logger()))
	p := tea.NewProgram(m, tea.WithAltScreen())

	e.logger.Info().Str("endpoint", e.cfg.Endpoint).Msg("Starting TUI")
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "error running app")
	}
	return nil
}
