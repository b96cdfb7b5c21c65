package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"inspection-capture/internal/upload"

	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
)

const defaultBannerWidth = 80

// termBanner prints diagnostic banners to a terminal or log stream. A
// banner that is still visible on the board is not printed again.
type termBanner struct {
	mu    sync.Mutex
	w     io.Writer
	board *upload.Board
}

func newTermBanner(w io.Writer) *termBanner {
	return &termBanner{w: w, board: upload.NewBoard()}
}

func (b *termBanner) Show(message string, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, visible := b.board.Current()
	b.board.Show(message, ttl)
	if visible && current == message {
		return
	}

	width, tty := terminalWidth(b.w)
	fmt.Fprintln(b.w, renderBanner(message, width, tty))
}

// renderBanner fits message on one line of width columns. On a terminal the
// line is padded and highlighted.
func renderBanner(message string, width int, colorize bool) string {
	if width <= 0 {
		width = defaultBannerWidth
	}
	line := "! " + strings.Join(strings.Fields(message), " ")
	line = text.Trim(line, width)
	if !colorize {
		return line
	}
	line = text.Pad(line, width, ' ')
	return text.Colors{text.BgYellow, text.FgBlack}.Sprint(line)
}

func terminalWidth(w io.Writer) (int, bool) {
	file, ok := w.(*os.File)
	if !ok {
		return defaultBannerWidth, false
	}
	fd := int(file.Fd())
	if !term.IsTerminal(fd) {
		return defaultBannerWidth, false
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultBannerWidth, true
	}
	return width, true
}
