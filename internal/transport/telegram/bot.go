package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	logx "github.com/vmk-assistant/server/pkg/logger"
)

const (
	// MaxDownloadBytes is the Bot API getFile limit.
	MaxDownloadBytes = 20 << 20

	typingInterval = 4 * time.Second
	retryDelay     = 3 * time.Second
	sendTimeout    = 15 * time.Second

	msgDownloadFailed = "❌ Could not download the file. Please try again."
)

// Handler is the conversational core the bot forwards turns to.
type Handler interface {
	OnStart(key string) []string
	OnTextTurn(ctx context.Context, key, text string) []string
	OnDocumentTurn(ctx context.Context, key string, data []byte, fileName string) []string
}

type BotConfig struct {
	PollTimeout int
	MaxWorkers  int
}

// Bot long-polls Telegram and serves every update on its own worker.
type Bot struct {
	client  *Client
	handler Handler
	config  BotConfig
}

func NewBot(client *Client, handler Handler, config BotConfig) *Bot {
	if config.PollTimeout <= 0 {
		config.PollTimeout = 30
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 16
	}
	return &Bot{client: client, handler: handler, config: config}
}

// Run polls until ctx is cancelled, then waits for in-flight turns.
func (b *Bot) Run(ctx context.Context) error {
	workers := pool.New().WithMaxGoroutines(b.config.MaxWorkers)
	defer workers.Wait()

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.config.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logx.Warn().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			msg := u.Message
			workers.Go(func() {
				b.handle(ctx, msg)
			})
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *Message) {
	key := strconv.FormatInt(msg.Chat.ID, 10)
	text := strings.TrimSpace(msg.Text)

	switch {
	case isCommand(text, "start"):
		b.send(ctx, msg.Chat.ID, b.handler.OnStart(key))
	case msg.Document != nil:
		stop := b.typing(ctx, msg.Chat.ID)
		data, err := b.download(ctx, msg.Document)
		if err != nil {
			stop()
			logx.Warn().Err(err).Str("conversation_key", key).Msg("document download failed")
			b.send(ctx, msg.Chat.ID, []string{msgDownloadFailed})
			return
		}
		chunks := b.handler.OnDocumentTurn(ctx, key, data, msg.Document.FileName)
		stop()
		b.send(ctx, msg.Chat.ID, chunks)
	case text != "" && !strings.HasPrefix(text, "/"):
		stop := b.typing(ctx, msg.Chat.ID)
		chunks := b.handler.OnTextTurn(ctx, key, msg.Text)
		stop()
		b.send(ctx, msg.Chat.ID, chunks)
	}
}

func (b *Bot) download(ctx context.Context, doc *Document) ([]byte, error) {
	f, err := b.client.GetFile(ctx, doc.FileID)
	if err != nil {
		return nil, err
	}
	return b.client.DownloadFile(ctx, f.FilePath, MaxDownloadBytes)
}

// typing keeps the "typing" indicator alive until the returned func is called.
func (b *Bot) typing(ctx context.Context, chatID int64) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			if err := b.client.SendChatAction(ctx, chatID, "typing"); err != nil && ctx.Err() == nil {
				logx.Debug().Err(err).Int64("chat_id", chatID).Msg("sendChatAction failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, chunks []string) {
	for _, chunk := range chunks {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		err := b.client.SendMessage(sendCtx, chatID, chunk)
		cancel()
		if err != nil {
			logx.Error().Err(err).Int64("chat_id", chatID).Msg("sendMessage failed")
			return
		}
	}
}

// isCommand matches "/name" and "/name@botname".
func isCommand(text, name string) bool {
	if !strings.HasPrefix(text, "/") {
		return false
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd == name
}
