// Package telegram is the chat front-end: photos of handwritten math go in,
// evaluated expressions come back, and assignments stick to the chat.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"drawcal/api/internal/calculator"
)

const maxMessage = 3900

// BotAPI is the part of *tgbotapi.BotAPI the router talks to.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      BotAPI
	Analyzer *calculator.Analyzer
	Logger   *zap.Logger
	// Health reports backing store problems for /health. Optional.
	Health func(ctx context.Context) error
	// Timeout bounds one model call.
	Timeout  time.Duration
	Debounce time.Duration
	Client   *http.Client

	batches sync.Map // key -> *photoBatch
	chats   sync.Map // chatID -> *chatVars
}

func NewRouter(bot BotAPI, analyzer *calculator.Analyzer, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		Bot:      bot,
		Analyzer: analyzer,
		Logger:   logger,
		Timeout:  180 * time.Second,
		Debounce: debounce,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		r.send(msg.Chat.ID, "Send me a photo of your math and I will work it out. /start shows the commands.")
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "vars":
		r.send(cid, FormatVars(r.Vars(cid)))
	case "reset":
		r.resetVars(cid)
		r.send(cid, "🧹 Variables cleared.")
	case "set":
		name, value, ok := parseSet(msg.CommandArguments())
		if !ok {
			r.send(cid, "Usage: /set <name> <value>, e.g. /set x 5")
			return
		}
		r.setVar(cid, name, value)
		r.send(cid, fmt.Sprintf("📌 %s = %v", name, value))
	case "health":
		if r.Health != nil {
			hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := r.Health(hctx); err != nil {
				r.send(cid, "❌ db: "+err.Error())
				return
			}
		}
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Unknown command. Try /start.")
	}
}

const startText = `Send a photo of handwritten math (an album works too) and I will reply with every expression and its result.

Assignments like x = 5 are remembered for this chat and used in later photos.

Commands:
/vars show remembered variables
/set <name> <value> remember a variable by hand
/reset forget all variables
/health check the service`

// parseSet accepts "x 5", "x=5" and "x = 5". Numeric values are kept as numbers.
func parseSet(args string) (string, any, bool) {
	args = strings.TrimSpace(args)
	var name, value string
	if i := strings.Index(args, "="); i >= 0 {
		name, value = args[:i], args[i+1:]
	} else {
		f := strings.Fields(args)
		if len(f) < 2 {
			return "", nil, false
		}
		name, value = f[0], strings.Join(f[1:], " ")
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if name == "" || value == "" || strings.ContainsAny(name, " \t") {
		return "", nil, false
	}
	return name, calculator.Value(value), true
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Logger.Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) SendResult(chatID int64, records []calculator.Record) {
	r.send(chatID, "📝 Results:\n\n"+FormatRecords(records))
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("❌ Could not process the image: %v", err))
}
