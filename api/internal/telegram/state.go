package telegram

import (
	"sync"
	"time"

	"drawcal/api/internal/calculator"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
)

// photoBatch collects the photos of one album (or of quick successive
// messages in one chat) until the debounce timer fires.
type photoBatch struct {
	ChatID int64
	Key    string // "grp:<mediaGroupID>" | "chat:<chatID>"

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
	closed bool // taken by processBatch; late photos start a new batch
}

// chatVars holds the variables a chat has assigned so far.
type chatVars struct {
	mu   sync.Mutex
	vars calculator.Bindings
}

func (r *Router) chat(chatID int64) *chatVars {
	v, _ := r.chats.LoadOrStore(chatID, &chatVars{vars: calculator.Bindings{}})
	return v.(*chatVars)
}

// Vars returns a copy of the chat's bindings.
func (r *Router) Vars(chatID int64) calculator.Bindings {
	c := r.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vars.With(nil)
}

func (r *Router) remember(chatID int64, records []calculator.Record) {
	c := r.chat(chatID)
	c.mu.Lock()
	c.vars = c.vars.With(records)
	c.mu.Unlock()
}

func (r *Router) setVar(chatID int64, name string, value any) {
	c := r.chat(chatID)
	c.mu.Lock()
	next := c.vars.With(nil)
	next[name] = value
	c.vars = next
	c.mu.Unlock()
}

func (r *Router) resetVars(chatID int64) {
	r.chats.Delete(chatID)
}
