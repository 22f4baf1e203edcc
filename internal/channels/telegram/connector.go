// Package telegram connects the assistant to a Telegram bot through the telego
// library.
//
// Features:
//   - Long polling for receiving updates
//   - Allow lists for users and chats
//   - Per-chat ordered processing with batching of queued messages
//   - /start and /clear commands
//   - Plain text replies split at the Telegram size limit, files as documents
package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	telegoapi "github.com/mymmrac/telego/telegoapi"

	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/logger"
	"github.com/aatumaykin/microbot/internal/retry"
)

// Replies to bot commands and rejected users.
const (
	MsgGreeting     = "Hello! I'm MicroBot. How can I help?"
	MsgCleared      = "Memory cleared."
	MsgUnauthorized = "Sorry, you are not authorized to use this bot."
)

const (
	queueSize       = 32
	defaultPollSecs = 30
	defaultSendSecs = 10
	sendAttempts    = 3
)

// ErrNotStarted is returned by sends before Start.
var ErrNotStarted = errors.New("telegram connector is not started")

// Processor handles the text of a chat. The orchestration loop implements it.
type Processor interface {
	Process(ctx context.Context, chat, userName, text string) (string, error)
	Clear(chat string) error
}

// Connector represents the Telegram bot connector. It implements channels.Sender.
type Connector struct {
	cfg    config.TelegramConfig
	logger *logger.Logger
	proc   Processor
	bot    BotInterface

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	queues map[int64]chan *telego.Message

	retryBackoff time.Duration
}

var _ channels.Sender = (*Connector)(nil)

// New creates a new Telegram connector.
func New(cfg config.TelegramConfig, log *logger.Logger) *Connector {
	if log == nil {
		log = logger.Nop()
	}
	return &Connector{
		cfg:          cfg,
		logger:       log,
		queues:       make(map[int64]chan *telego.Message),
		retryBackoff: time.Second,
	}
}

// SetBot replaces the bot client. Start creates a telego bot when none is set.
func (c *Connector) SetBot(bot BotInterface) {
	c.bot = bot
}

// Start initializes the bot and starts long polling. Incoming text goes to proc.
func (c *Connector) Start(ctx context.Context, proc Processor) error {
	if proc == nil {
		return fmt.Errorf("processor is required")
	}
	c.proc = proc

	if c.bot == nil {
		if c.cfg.Token == "" {
			return fmt.Errorf("telegram token is required")
		}
		bot, err := telego.NewBot(c.cfg.Token)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		c.bot = NewBotAdapter(bot)
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	botUser, err := c.bot.GetMe(c.ctx)
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	c.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: botUser.ID},
		logger.Field{Key: "username", Value: botUser.Username})

	if err := c.registerCommands(); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to register bot commands", err)
	}

	pollTimeout := c.cfg.PollTimeoutSeconds
	if pollTimeout <= 0 {
		pollTimeout = defaultPollSecs
	}
	updates, err := c.bot.UpdatesViaLongPolling(c.ctx, &telego.GetUpdatesParams{
		Timeout:        pollTimeout,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	c.wg.Add(1)
	go c.poll(updates)
	return nil
}

// Stop cancels polling and waits for in-flight chats to finish.
func (c *Connector) Stop() error {
	c.logger.Info("stopping telegram connector")
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("telegram connector stopped gracefully")
	return nil
}

func (c *Connector) registerCommands() error {
	err := c.bot.SetMyCommands(c.ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "start", Description: "Start over (clears history)"},
			{Command: "clear", Description: "Clear conversation history"},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}

// isAllowed checks the user and chat allow lists. An empty list allows everyone.
func (c *Connector) isAllowed(msg *telego.Message) bool {
	if len(c.cfg.AllowedUsers) > 0 {
		if msg.From == nil || !slices.Contains(c.cfg.AllowedUsers, strconv.FormatInt(msg.From.ID, 10)) {
			return false
		}
	}
	if len(c.cfg.AllowedChats) > 0 {
		return slices.Contains(c.cfg.AllowedChats, strconv.FormatInt(msg.Chat.ID, 10))
	}
	return true
}

// SendMessage sends text as plain text, split at the Telegram limit.
func (c *Connector) SendMessage(ctx context.Context, chat, text string) error {
	if c.bot == nil {
		return ErrNotStarted
	}
	chatID, err := parseChatID(chat)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(StripFormatting(text))
	if text == "" {
		return nil
	}

	for _, part := range SplitMessage(text, MaxMessageRunes) {
		params := &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: chatID},
			Text:   part,
		}
		_, err := retry.Do(ctx, c.retryConfig(), func(ctx context.Context) (*telego.Message, error) {
			sendCtx, cancel := c.sendContext(ctx)
			defer cancel()
			msg, err := c.bot.SendMessage(sendCtx, params)
			return msg, c.classify(ctx, chat, err)
		})
		if err != nil {
			c.logSendError(ctx, "failed to send message", chat, err)
			return err
		}
	}
	return nil
}

// SendFile sends the file at path as a document.
func (c *Connector) SendFile(ctx context.Context, chat, path, caption string) error {
	if c.bot == nil {
		return ErrNotStarted
	}
	chatID, err := parseChatID(chat)
	if err != nil {
		return err
	}

	_, err = retry.Do(ctx, c.retryConfig(), func(ctx context.Context) (*telego.Message, error) {
		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		sendCtx, cancel := c.sendContext(ctx)
		defer cancel()
		msg, err := c.bot.SendDocument(sendCtx, &telego.SendDocumentParams{
			ChatID:   telego.ChatID{ID: chatID},
			Document: telego.InputFile{File: file},
			Caption:  caption,
		})
		return msg, c.classify(ctx, chat, err)
	})
	if err != nil {
		c.logSendError(ctx, "failed to send document", chat, err,
			logger.Field{Key: "path", Value: path})
		return err
	}
	return nil
}

func (c *Connector) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:    sendAttempts,
		InitialBackoff: c.retryBackoff,
		Retryable: func(err error) bool {
			var sendErr *channels.SendError
			return errors.As(err, &sendErr) && sendErr.IsRetryable()
		},
	}
}

// classify turns a Telegram API error into a channels.SendError and honors
// its retry_after hint before the next attempt.
func (c *Connector) classify(ctx context.Context, chat string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *telegoapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	sendErr := &channels.SendError{
		Code:        apiErr.ErrorCode,
		Description: apiErr.Description,
		Chat:        chat,
		Err:         err,
	}
	if apiErr.Parameters != nil {
		sendErr.RetryAfterSec = apiErr.Parameters.RetryAfter
	}
	if sendErr.IsRetryable() && sendErr.RetryAfterSec > 0 {
		_ = retry.Sleep(ctx, sendErr.RetryAfter())
	}
	return sendErr
}

func (c *Connector) logSendError(ctx context.Context, msg, chat string, err error, extra ...logger.Field) {
	fields := []logger.Field{{Key: "chat_id", Value: chat}}
	var sendErr *channels.SendError
	if errors.As(err, &sendErr) {
		fields = sendErr.LogFields()
	}
	c.logger.ErrorCtx(ctx, msg, err, append(fields, extra...)...)
}

// sendContext возвращает контекст с таймаутом для отправки
func (c *Connector) sendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	secs := c.cfg.SendTimeoutSeconds
	if secs <= 0 {
		secs = defaultSendSecs
	}
	return context.WithTimeout(ctx, time.Duration(secs)*time.Second)
}

func parseChatID(chat string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chat), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", chat, err)
	}
	return id, nil
}
