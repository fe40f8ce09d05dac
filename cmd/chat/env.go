package main

import (
	"io"
	"path/filepath"

	"github.com/omochice/socket-chat-client/internal/chat"
	"github.com/omochice/socket-chat-client/internal/client"
	"github.com/omochice/socket-chat-client/internal/client/ws"
	"github.com/omochice/socket-chat-client/internal/config"
	"github.com/omochice/socket-chat-client/internal/logger"
	"github.com/omochice/socket-chat-client/internal/session"
	"github.com/omochice/socket-chat-client/internal/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// env is everything a command needs before it talks to the backend.
type env struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   storage.Store
	factory client.Factory
	closers []io.Closer
}

func setup(opts *rootOptions) (*env, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Overrides{
		Endpoint: opts.endpoint,
		StateDir: opts.stateDir,
		LogFile:  opts.logFile,
		LogLevel: opts.logLevel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error loading config")
	}

	log, logCloser := logger.New(cfg.LogFile, cfg.LogLevel)
	e := &env{
		cfg:     cfg,
		logger:  log,
		closers: []io.Closer{logCloser},
	}

	if opts.ephemeral {
		e.store = storage.NewMemoryStore()
	} else {
		bs, err := storage.OpenBolt(filepath.Join(cfg.StateDir, storage.DefaultFileName))
		if err != nil {
			e.Close()
			return nil, err
		}
		e.store = bs
		// the store must close before the logger
		e.closers = append([]io.Closer{bs}, e.closers...)
	}

	e.factory = ws.Factory(ws.WithLogger(log.With().Str("component", "ws").Logger()))
	return e, nil
}

// Close releases the store and the log file.
func (e *env) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Close failed")
		}
	}
}

// chatClient is a session holder and the conversation fed by its connection.
type chatClient struct {
	holder *session.Holder
	conv   *chat.Conversation
}

func (e *env) newClient(onState func(session.Snapshot), onChange func()) *chatClient {
	return newChatClient(e.cfg.Endpoint, e.store, e.factory, e.logger, onState, onChange)
}

func newChatClient(
	endpoint string,
	store storage.Store,
	factory client.Factory,
	log zerolog.Logger,
	onState func(session.Snapshot),
	onChange func(),
) *chatClient {
	conv := chat.NewConversation(
		chat.WithChangeListener(onChange),
		chat.WithLogger(log.With().Str("component", "conversation").Logger()),
	)
	holder := session.NewHolder(endpoint, store, factory,
		session.WithLogger(log.With().Str("component", "session").Logger()),
		session.WithStateListener(onState),
		session.WithConnListener(func(c client.Conn) {
			if c == nil {
				conv.Detach()
				return
			}
			conv.Attach(c)
		}),
	)
	return &chatClient{holder: holder, conv: conv}
}
