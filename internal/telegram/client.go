// Package telegram implements the dispatch target on top of the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/quizcast/internal/config"
	"github.com/hyperjump/quizcast/internal/dispatch"
	"github.com/hyperjump/quizcast/internal/models"
	"github.com/hyperjump/quizcast/pkg/utils"
)

// Bot API payload limits, in characters.
const (
	MaxQuestionLength = 300
	MaxOptionLength   = 100
	MaxMessageLength  = 4000
)

// ErrNotConfigured is returned when no token or chat id is set.
var ErrNotConfigured = errors.New("telegram token and chat id are required")

// Client posts quiz polls and plain messages to one chat.
type Client struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	anonymous  bool
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient sets the HTTP client used for Bot API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient authenticates against the Bot API and returns a client bound to cfg.ChatID.
func NewClient(cfg *config.TelegramConfig, opts ...Option) (*Client, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, ErrNotConfigured
	}
	c := &Client{
		chatID:     cfg.ChatID,
		anonymous:  cfg.AnonymousOrDefault(),
		endpoint:   cfg.APIEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoint == "" {
		c.endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, c.endpoint, c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	c.bot = bot
	c.logger.Info("telegram bot ready",
		zap.String("username", bot.Self.UserName),
		zap.Int64("chat_id", c.chatID))
	return c, nil
}

// SendQuiz posts q as a quiz poll. Texts beyond the Bot API limits are clamped.
func (c *Client) SendQuiz(ctx context.Context, q models.QuestionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	options := make([]string, len(q.Options))
	for i, o := range q.Options {
		options[i] = utils.Clamp(o, MaxOptionLength)
	}
	poll := tgbotapi.NewPoll(c.chatID, utils.Clamp(q.Question, MaxQuestionLength), options...)
	poll.Type = "quiz"
	poll.IsAnonymous = c.anonymous
	poll.CorrectOptionID = int64(q.CorrectOptionID)

	if _, err := c.bot.Send(poll); err != nil {
		return classify(err)
	}
	return nil
}

// Notify posts text as one or more plain messages.
func (c *Client) Notify(ctx context.Context, text string) error {
	for _, chunk := range utils.SplitText(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.bot.Send(tgbotapi.NewMessage(c.chatID, chunk)); err != nil {
			return classify(err)
		}
	}
	return nil
}

// classify turns Bot API flood-control responses into *dispatch.RateLimitError.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.RetryAfter > 0 || apiErr.Code == http.StatusTooManyRequests {
		return &dispatch.RateLimitError{
			RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
			Err:        err,
		}
	}
	return fmt.Errorf("telegram api error %d: %w", apiErr.Code, err)
}
