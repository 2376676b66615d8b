package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/sessions"
	"github.com/jhchabran/newsroom"
	"github.com/jhchabran/newsroom/authentication/cookie_auth"
	"github.com/jhchabran/newsroom/authentication/github_auth"
	"github.com/jhchabran/newsroom/notify"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and serve the site until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(c *cobra.Command, args []string) error {
	store := cfg.NewStore()
	if err := store.Connect(); err != nil {
		return err
	}
	defer store.Close()

	version, err := store.Migrate()
	if err != nil {
		return err
	}
	logger.Info().Uint("version", version).Msg("Database is up to date")

	sessionStore := sessions.NewCookieStore([]byte(cfg.ServerSecret))
	authService := cookie_auth.New(sessionStore, logger.With().Str("component", "auth").Logger())

	s := newsroom.NewServer(&newsroom.ServerConfig{Addr: cfg.Addr, NewsPerPage: cfg.NewsPerPage}, logger, store, authService)

	if cfg.GithubEnabled() {
		h, err := github_auth.New(github_auth.Config{
			ClientID:     cfg.GithubClientID,
			ClientSecret: cfg.GithubClientSecret,
			RedirectURL:  cfg.GithubRedirectURL,
		}, sessionStore, authService, logger.With().Str("component", "github auth").Logger())
		if err != nil {
			return err
		}
		s.SetOAuthHandler(h)
	}

	if cfg.SlackWebhookURL != "" {
		slack := notify.NewSlack(cfg.SlackWebhookURL, cfg.BaseURL, logger.With().Str("component", "slack").Logger())
		s.AddCommentHook(slack.CommentHook)
	}

	if err := s.Prepare(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("Listening")
		errc <- s.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
		s.Stop()
		return <-errc
	}
}
