package upload

import (
	"sync"
	"time"
)

// BannerTTL is how long a diagnostic banner stays up.
const BannerTTL = 15 * time.Second

// Banner displays a transient diagnostic message.
type Banner interface {
	Show(message string, ttl time.Duration)
}

// Board is an in-memory Banner that dismisses itself once the TTL passes.
type Board struct {
	mu      sync.Mutex
	message string
	expires time.Time
	now     func() time.Time
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{now: time.Now}
}

// Show replaces the current banner.
func (b *Board) Show(message string, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = message
	b.expires = b.now().Add(ttl)
}

// Current returns the visible banner, if any.
func (b *Board) Current() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.message == "" || !b.now().Before(b.expires) {
		return "", false
	}
	return b.message, true
}

// Dismiss hides the banner early.
func (b *Board) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = ""
}
