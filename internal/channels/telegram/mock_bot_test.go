package telegram

import (
	"context"
	"sync"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/mock"
)

// MockBot is a testify mock of BotInterface.
type MockBot struct {
	mock.Mock
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.User), args.Error(1)
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.Message), args.Error(1)
}

func (m *MockBot) SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.Message), args.Error(1)
}

func (m *MockBot) SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockBot) UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, opts ...telego.LongPollingOption) (<-chan telego.Update, error) {
	args := m.Called(ctx, params, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(chan telego.Update), args.Error(1)
}

// outbox records the texts passed to SendMessage.
type outbox struct {
	mu    sync.Mutex
	texts map[int64][]string
}

func (o *outbox) record(args mock.Arguments) {
	params := args.Get(1).(*telego.SendMessageParams)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.texts == nil {
		o.texts = make(map[int64][]string)
	}
	o.texts[params.ChatID.ID] = append(o.texts[params.ChatID.ID], params.Text)
}

func (o *outbox) get(chat int64) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.texts[chat]...)
}

// fakeProcessor answers "echo: <text>" and records calls.
type fakeProcessor struct {
	mu      sync.Mutex
	texts   []string
	users   []string
	cleared []string
	block   chan struct{}
}

func (p *fakeProcessor) Process(_ context.Context, chat, userName, text string) (string, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, chat+":"+text)
	p.users = append(p.users, userName)
	return "**echo**: " + text, nil
}

func (p *fakeProcessor) Clear(chat string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = append(p.cleared, chat)
	return nil
}

func (p *fakeProcessor) snapshot() (texts, users, cleared []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...), append([]string(nil), p.users...), append([]string(nil), p.cleared...)
}
