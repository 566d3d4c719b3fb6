// Package console renders the chat view to a terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/you/sc-chat-translator/internal/core"
	"github.com/you/sc-chat-translator/internal/translate"
	"github.com/you/sc-chat-translator/internal/welcome"
)

// Named colours used by the chat view and by remote welcome descriptors.
var namedColors = map[string]string{
	"lightgrey":      "#D3D3D3",
	"lightgray":      "#D3D3D3",
	"lightblue":      "#ADD8E6",
	"lightgreen":     "#90EE90",
	"cornflowerblue": "#6495ED",
	"darkorange":     "#FF8C00",
	"limegreen":      "#32CD32",
	"mediumorchid":   "#BA55D3",
	"dodgerblue":     "#1E90FF",
	"gold":           "#FFD700",
	"white":          "#FFFFFF",
	"red":            "#FF0000",
	"orange":         "#FFA500",
	"green":          "#008000",
	"blue":           "#0000FF",
	"purple":         "#800080",
	"teal":           "#008080",
	"yellow":         "#FFFF00",
}

const (
	fallbackColor   = "#1E90FF"
	originalColor   = "lightgrey"
	translatedColor = "lightgreen"
	manualColor     = "gold"
)

// CategoryColor is the header colour for a channel category.
func CategoryColor(c core.Category) string {
	switch {
	case c == core.CategoryTrading:
		return "lightgrey"
	case c.IsGeneral():
		return "lightblue"
	case c == core.CategoryBattle:
		return "CornflowerBlue"
	case c == core.CategorySquad:
		return "DarkOrange"
	case c == core.CategoryClan:
		return "LimeGreen"
	case c.IsPrivate():
		return "MediumOrchid"
	}
	return "white"
}

// Color resolves a colour name or a "#rrggbb" value. Unknown names fall
// back to DodgerBlue.
func Color(name string) lipgloss.Color {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "#") && (len(name) == 7 || len(name) == 4) {
		return lipgloss.Color(name)
	}
	if hex, ok := namedColors[strings.ToLower(name)]; ok {
		return lipgloss.Color(hex)
	}
	return lipgloss.Color(fallbackColor)
}

// Console writes coloured chat output. It is safe for concurrent use.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	renderer *lipgloss.Renderer
	plain    bool
}

// New writes to w. With plain set no escape sequences are emitted.
func New(w io.Writer, plain bool) *Console {
	return &Console{w: w, renderer: lipgloss.NewRenderer(w), plain: plain}
}

func (c *Console) paint(color, text string) string {
	if c.plain || text == "" {
		return text
	}
	return c.renderer.NewStyle().Foreground(Color(color)).Render(text)
}

func (c *Console) println(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range lines {
		fmt.Fprintln(c.w, l)
	}
}

// Present shows one processed chat message.
func (c *Console) Present(msg core.ChatMessage) {
	c.println(
		c.paint(CategoryColor(msg.Category), msg.Header()),
		c.paint(originalColor, ">   '"+msg.Message+"'"),
		c.paint(translatedColor, "→ "+msg.Translated),
		"",
	)
}

// Welcome shows the rendered welcome block.
func (c *Console) Welcome(lines []welcome.Line) {
	out := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		out = append(out, c.paint(l.Color, l.Text))
	}
	c.println(append(out, "")...)
}

// Manual shows a manual translation result.
func (c *Console) Manual(res translate.ManualResult) {
	lines := res.Lines()
	c.println(
		c.paint(manualColor, lines[0]),
		c.paint(originalColor, lines[1]),
		c.paint(translatedColor, lines[2]),
		"",
	)
}

// History prints stored rows the way the history view lists them.
func (c *Console) History(rows []core.ChatMessage) {
	if len(rows) == 0 {
		c.println("No messages found.")
		return
	}
	for _, m := range rows {
		c.println(
			c.paint(CategoryColor(m.Category), fmt.Sprintf("[%s] [%s] [%s]: %s", m.Stamp(), m.Category, m.Username, m.Message)),
			"→ "+m.Translated,
			"",
		)
	}
}

// Info prints a status line.
func (c *Console) Info(text string) {
	c.println(c.paint("lightblue", text))
}
