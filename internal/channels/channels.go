// Package channels defines the outbound contract shared by chat transports.
package channels

import (
	"context"
	"strings"
	"sync"
)

// Sender delivers text and files to a chat. Chat ids are transport specific
// strings (a Telegram chat id, a webhook target).
type Sender interface {
	SendMessage(ctx context.Context, chat, text string) error
	SendFile(ctx context.Context, chat, path, caption string) error
}

// Sent is one delivery recorded by RecordingSender.
type Sent struct {
	Chat    string
	Text    string
	Path    string
	Caption string
}

// RecordingSender keeps every delivery in memory. It backs dry runs
// (`schedule check`) and tests.
type RecordingSender struct {
	mu   sync.Mutex
	sent []Sent
	// Err, when set, is returned by every send.
	Err error
}

// SendMessage implements Sender.
func (r *RecordingSender) SendMessage(_ context.Context, chat, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Sent{Chat: chat, Text: text})
	return nil
}

// SendFile implements Sender.
func (r *RecordingSender) SendFile(_ context.Context, chat, path, caption string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Sent{Chat: chat, Path: path, Caption: caption})
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (r *RecordingSender) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Texts returns only the text messages.
func (r *RecordingSender) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.sent {
		if s.Path == "" {
			out = append(out, s.Text)
		}
	}
	return out
}

// FileMarker prefixes tool results that point at a produced file.
const FileMarker = "FILE:"

const (
	fileCaption      = "File downloaded"
	fileSentTemplate = "File sent: "
)

// FilePath returns the path carried by a FILE: result.
func FilePath(result string) (string, bool) {
	if !strings.HasPrefix(result, FileMarker) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(result, FileMarker)), true
}

// DeliverFileResult sends the file named by a FILE: result and returns the
// confirmation text that replaces the result. Other results are returned as is.
func DeliverFileResult(ctx context.Context, sender Sender, chat, result string) (string, error) {
	path, ok := FilePath(result)
	if !ok {
		return result, nil
	}
	if err := sender.SendFile(ctx, chat, path, fileCaption); err != nil {
		return fileSentTemplate + path, err
	}
	return fileSentTemplate + path, nil
}
