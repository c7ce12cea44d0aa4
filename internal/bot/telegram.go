package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const maxConcurrentCommands = 5

// Telegram sends messages and long-polls for commands through the Bot API.
type Telegram struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *zap.Logger
}

// apiClient routes long polls and every other Bot API call through separate
// clients so that a send is bounded by its own timeout.
type apiClient struct {
	poll *http.Client
	call *http.Client
}

func newAPIClient(pollTimeout int, requestTimeout time.Duration) apiClient {
	return apiClient{
		poll: &http.Client{Timeout: time.Duration(pollTimeout)*time.Second + requestTimeout},
		call: &http.Client{Timeout: requestTimeout},
	}
}

func (c apiClient) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/getUpdates") {
		return c.poll.Do(req)
	}
	return c.call.Do(req)
}

// NewTelegram connects with token. endpoint overrides the API endpoint when
// non-empty; it must contain two %s verbs for the token and the method.
// requestTimeout bounds each call other than the long poll.
func NewTelegram(token, endpoint string, pollTimeout int, requestTimeout time.Duration, logger *zap.Logger) (*Telegram, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, newAPIClient(pollTimeout, requestTimeout))
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	logger.Info("telegram authorized", zap.String("username", api.Self.UserName))

	return &Telegram{api: api, pollTimeout: pollTimeout, logger: logger}, nil
}

// Send delivers text to a chat. For private chats the chat id equals the
// user id. It returns when ctx is done even if the request is still in
// flight; the request itself ends at the client's request timeout.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send to %d: %w", chatID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send to %d: %w", chatID, ctx.Err())
	}
}

// Poll receives updates until ctx is cancelled and runs each command
// through handler. Commands run concurrently, up to
// maxConcurrentCommands at a time.
func (t *Telegram) Poll(ctx context.Context, handler *Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(u)

	sem := make(chan struct{}, maxConcurrentCommands)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.logger.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() || msg.From == nil {
				continue
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				t.reply(ctx, msg.Chat.ID, handler.Handle(ctx, msg.From.ID, msg.Command(), msg.CommandArguments()))
			}()
		}
	}
}

func (t *Telegram) reply(ctx context.Context, chatID int64, replies []string) {
	for _, text := range replies {
		if err := t.Send(ctx, chatID, text); err != nil {
			t.logger.Warn("failed to reply", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
	}
}
