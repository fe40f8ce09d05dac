package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/omochice/socket-chat-client/internal/client"
	"github.com/omochice/socket-chat-client/internal/login"
	"github.com/omochice/socket-chat-client/internal/session"
	"github.com/omochice/socket-chat-client/internal/storage"
	"github.com/omochice/socket-chat-client/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errNoUsername is returned by line mode when neither a flag nor a stored
// name gives it someone to log in as.
var errNoUsername = errors.New("no stored username, use --username")

func newLineCmd(opts *rootOptions) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "line",
		Short: "Plain stdin/stdout chat without the TUI",
		Long: `line reads messages from stdin, one per line, and prints the room as
"[user]: text". Commands: /quit exits, /logout forgets the stored name and
exits, /rejoin logs in again after a disconnect.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLine(cmd, opts, username)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "display name to log in with")
	return cmd
}

func runLine(cmd *cobra.Command, opts *rootOptions, username string) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	lc := newLineClient(cmd.OutOrStdout(), e.cfg.Endpoint, e.store, e.factory, e.logger)
	defer lc.close()

	return lc.run(cmd.Context(), cmd.InOrStdin(), username)
}

// lineClient prints the conversation as plain lines.
type lineClient struct {
	*chatClient
	endpoint string

	mu    sync.Mutex
	out   io.Writer
	shown []protocol.ChatMessage
}

func newLineClient(out io.Writer, endpoint string, store storage.Store, factory client.Factory, log zerolog.Logger) *lineClient {
	lc := &lineClient{out: out, endpoint: endpoint}
	lc.chatClient = newChatClient(endpoint, store, factory, log, lc.sessionChanged, lc.conversationChanged)
	return lc
}

func (lc *lineClient) run(ctx context.Context, in io.Reader, username string) error {
	if username != "" {
		name, err := login.Validate(username)
		if err != nil {
			return err
		}
		if err := lc.holder.Login(ctx, name); err != nil {
			return err
		}
	} else {
		restored, err := lc.holder.Restore(ctx)
		if err != nil {
			return err
		}
		if !restored {
			return errNoUsername
		}
	}

	lc.printf("Type your messages (/quit to exit, /logout to log out):\n")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/logout":
			lc.conv.Clear()
			return lc.holder.Logout()
		case "/rejoin":
			lc.rejoin(ctx)
			continue
		}

		sent, err := lc.conv.SendMessage(text)
		switch {
		case err != nil:
			lc.printf("*** failed to send message: %v ***\n", err)
		case !sent:
			lc.printf("*** not connected ***\n")
		}
	}
	return errors.Wrap(scanner.Err(), "error reading input")
}

func (lc *lineClient) rejoin(ctx context.Context) {
	snap := lc.holder.Snapshot()
	if snap.State == session.StateConnected || snap.State == session.StateConnecting {
		lc.printf("*** already connected ***\n")
		return
	}
	if err := lc.holder.Login(ctx, snap.Name); err != nil {
		lc.printf("*** %v ***\n", err)
	}
}

func (lc *lineClient) close() {
	lc.holder.Close()
}

func (lc *lineClient) sessionChanged(s session.Snapshot) {
	switch s.State {
	case session.StateConnecting:
		lc.printf("*** connecting to %s as %s ***\n", lc.endpoint, s.Name)
	case session.StateConnected:
		lc.printf("*** connected as %s ***\n", s.Name)
	case session.StateErrored:
		lc.printf("*** connection error: %v (/rejoin to retry) ***\n", s.Err)
	case session.StateLoggedOut:
		if s.LoggedIn() {
			lc.printf("*** disconnected (/rejoin to reconnect) ***\n")
		} else {
			lc.printf("*** logged out ***\n")
		}
	}
}

// conversationChanged prints what is new since the last call. If the list
// was replaced by a history that does not extend what was shown, the whole
// list is printed.
func (lc *lineClient) conversationChanged() {
	msgs := lc.conv.Messages()

	lc.mu.Lock()
	defer lc.mu.Unlock()

	start := 0
	if hasPrefix(msgs, lc.shown) {
		start = len(lc.shown)
	}
	for _, m := range msgs[start:] {
		fmt.Fprintf(lc.out, "[%s]: %s\n", m.Username, m.Text)
	}
	lc.shown = msgs
}

func (lc *lineClient) printf(format string, args ...any) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	fmt.Fprintf(lc.out, format, args...)
}

func hasPrefix(msgs, prefix []protocol.ChatMessage) bool {
	if len(prefix) > len(msgs) {
		return false
	}
	for i := range prefix {
		if msgs[i].ID != prefix[i].ID {
			return false
		}
	}
	return true
}
