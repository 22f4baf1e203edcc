package telegram

import (
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/aatumaykin/microbot/internal/logger"
)

// poll reads updates until the context is done or the channel closes.
func (c *Connector) poll(updates <-chan telego.Update) {
	defer c.wg.Done()
	c.logger.Info("starting long polling for telegram updates")

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("long polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return
			}
			c.handleUpdate(update)
		}
	}
}

// handleUpdate filters an update and queues its message for the chat worker.
func (c *Connector) handleUpdate(update telego.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		if msg.Caption == "" {
			return
		}
		msg.Text = msg.Caption
	}

	if !c.isAllowed(msg) {
		var userID int64
		if msg.From != nil {
			userID = msg.From.ID
		}
		c.logger.WarnCtx(c.ctx, "message blocked by allow list",
			logger.Field{Key: "user_id", Value: userID},
			logger.Field{Key: "chat_id", Value: msg.Chat.ID})
		c.reply(msg.Chat.ID, MsgUnauthorized)
		return
	}

	c.enqueue(msg)
}

// enqueue hands msg to the worker of its chat, starting one on first use.
func (c *Connector) enqueue(msg *telego.Message) {
	c.mu.Lock()
	queue, ok := c.queues[msg.Chat.ID]
	if !ok {
		queue = make(chan *telego.Message, queueSize)
		c.queues[msg.Chat.ID] = queue
		c.wg.Add(1)
		go c.chatWorker(queue)
	}
	c.mu.Unlock()

	select {
	case queue <- msg:
	case <-c.ctx.Done():
	}
}

// chatWorker processes one chat in arrival order. Messages that queued up
// while the previous request ran are handled together.
func (c *Connector) chatWorker(queue chan *telego.Message) {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-queue:
			batch := []*telego.Message{msg}
		drain:
			for {
				select {
				case next := <-queue:
					batch = append(batch, next)
				default:
					break drain
				}
			}
			c.handleBatch(batch)
		}
	}
}

// handleBatch runs commands one by one; plain messages are joined into one request.
func (c *Connector) handleBatch(batch []*telego.Message) {
	hasCommand := false
	for _, msg := range batch {
		if strings.HasPrefix(strings.TrimSpace(msg.Text), "/") {
			hasCommand = true
			break
		}
	}

	if hasCommand {
		for _, msg := range batch {
			c.handleText(msg, strings.TrimSpace(msg.Text))
		}
		return
	}

	texts := make([]string, 0, len(batch))
	for _, msg := range batch {
		texts = append(texts, msg.Text)
	}
	c.handleText(batch[len(batch)-1], strings.Join(texts, "\n"))
}

func (c *Connector) handleText(msg *telego.Message, text string) {
	chatID := msg.Chat.ID
	chat := strconv.FormatInt(chatID, 10)

	switch command(text) {
	case "start":
		c.clear(chat)
		c.reply(chatID, MsgGreeting)
		return
	case "clear":
		c.clear(chat)
		c.reply(chatID, MsgCleared)
		return
	}

	c.typing(chatID)
	userName := displayName(msg.From)
	c.logger.InfoCtx(c.ctx, "telegram message received",
		logger.Field{Key: "chat_id", Value: chat},
		logger.Field{Key: "user", Value: userName})

	response, err := c.proc.Process(c.ctx, chat, userName, text)
	if err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to process message", err,
			logger.Field{Key: "chat_id", Value: chat})
		return
	}
	if err := c.SendMessage(c.ctx, chat, response); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to deliver reply", err,
			logger.Field{Key: "chat_id", Value: chat})
	}
}

func (c *Connector) clear(chat string) {
	if err := c.proc.Clear(chat); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to clear history", err,
			logger.Field{Key: "chat_id", Value: chat})
	}
}

func (c *Connector) reply(chatID int64, text string) {
	if err := c.SendMessage(c.ctx, strconv.FormatInt(chatID, 10), text); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to send reply", err,
			logger.Field{Key: "chat_id", Value: chatID})
	}
}

func (c *Connector) typing(chatID int64) {
	ctx, cancel := c.sendContext(c.ctx)
	defer cancel()
	err := c.bot.SendChatAction(ctx, &telego.SendChatActionParams{
		ChatID: telego.ChatID{ID: chatID},
		Action: telego.ChatActionTyping,
	})
	if err != nil {
		c.logger.DebugCtx(c.ctx, "failed to send typing action",
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "error", Value: err.Error()})
	}
}

// command returns the bot command of text without the slash and an optional
// @botname suffix, or "" for ordinary text.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func displayName(user *telego.User) string {
	if user == nil {
		return "unknown"
	}
	if user.Username != "" {
		return user.Username
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	return "unknown"
}
