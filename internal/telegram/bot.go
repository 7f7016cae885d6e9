// Package telegram delivers forwarded messages through the Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender delivers text to a chat
type Sender interface {
	// ResolveChat turns a numeric id or an @channel name into a chat id
	ResolveChat(ctx context.Context, chat string) (int64, error)

	// Send posts markdown text to the chat
	Send(ctx context.Context, chatID int64, text string) error
}

// Options configures a Bot
type Options struct {
	Token         string
	APIEndpoint   string  // defaults to the public Bot API
	ProxyURL      string  // optional HTTP(S) or SOCKS5 proxy
	RatePerSecond float64 // sends per second, defaults to 1
	Timeout       time.Duration
}

// Bot implements Sender on top of the Telegram Bot API
type Bot struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// New connects to the Bot API and verifies the token
func New(opts Options, log *zap.SugaredLogger) (*Bot, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	perSecond := opts.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	client, err := httpClient(opts.ProxyURL, opts.Timeout)
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPIWithClient(opts.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	log.Debugw("Connected to telegram", "bot", api.Self.UserName)

	return &Bot{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log,
	}, nil
}

func httpClient(proxy string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// Username returns the bot's username
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// ResolveChat returns numeric ids unchanged and looks up @names
func (b *Bot) ResolveChat(ctx context.Context, chat string) (int64, error) {
	chat = strings.TrimSpace(chat)
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return id, nil
	}
	if !strings.HasPrefix(chat, "@") {
		return 0, fmt.Errorf("chat must be a numeric id or an @channel name, got %q", chat)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	info, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: chat},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve chat %s: %w", chat, err)
	}
	return info.ID, nil
}

// Send posts text with Markdown parse mode, waiting for the rate limiter
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	b.log.Debugw("Message sent", "chat", chatID, "message_id", sent.MessageID)
	return nil
}
