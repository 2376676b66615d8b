// Package notify posts new comments to a Slack channel through an incoming webhook.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jhchabran/newsroom"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const defaultTimeout = 2 * time.Second

type Slack struct {
	webhookURL string
	baseURL    string
	client     *http.Client
	logger     zerolog.Logger
	// timeout bounds each CommentHook call.
	timeout time.Duration
}

// NewSlack returns a notifier posting to webhookURL. Links to news are built on top of
// baseURL, the public address of the server, and left out when it is empty.
func NewSlack(webhookURL string, baseURL string, logger zerolog.Logger) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		client:     &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		timeout:    defaultTimeout,
	}
}

// CommentHook is meant to be given to newsroom.Server.AddCommentHook. Hooks run before
// the author is redirected, so a slow webhook delays the redirect by at most the timeout.
func (s *Slack) CommentHook(news *newsroom.News, comment *newsroom.Comment) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.Notify(ctx, news, comment)
}

func (s *Slack) Notify(ctx context.Context, news *newsroom.News, comment *newsroom.Comment) error {
	err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, s.message(news, comment))
	if err != nil {
		return fmt.Errorf("failed to post comment %d to slack: %w", comment.ID, err)
	}

	s.logger.Debug().Int64("comment_id", comment.ID).Msg("Posted comment to slack")
	return nil
}

func (s *Slack) message(news *newsroom.News, comment *newsroom.Comment) *slack.WebhookMessage {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("%s commented on %s: %s", comment.Author, news.Title, comment.Text),
	}

	if s.baseURL != "" {
		msg.Attachments = []slack.Attachment{{
			Title:     news.Title,
			TitleLink: s.baseURL + news.CommentsPath(),
			Fallback:  news.Title,
		}}
	}

	return msg
}
