package integration

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

var (
	// ErrClipboardDisabled is returned by the "none" clipboard.
	ErrClipboardDisabled = errors.New("clipboard disabled")
	// ErrNoClipboardCommand is returned when no clipboard tool is installed.
	ErrNoClipboardCommand = errors.New("no clipboard command found")
)

// Clipboard copies text to the user's clipboard.
type Clipboard interface {
	Copy(text string) error
}

// NewClipboard returns the Clipboard for mode. OSC 52 sequences are written
// to out.
func NewClipboard(mode string, out io.Writer) (Clipboard, error) {
	switch mode {
	case models.ClipboardOSC52:
		return &osc52Clipboard{out: out}, nil
	case models.ClipboardCommand:
		return newSystemClipboard(), nil
	case models.ClipboardNone:
		return noClipboard{}, nil
	case models.ClipboardAuto, "":
		return &autoClipboard{
			primary:  newSystemClipboard(),
			fallback: &osc52Clipboard{out: out},
		}, nil
	default:
		return nil, fmt.Errorf("unknown clipboard mode %q", mode)
	}
}

// osc52Clipboard asks the terminal to set the clipboard. It works over SSH
// but the terminal may ignore the request silently.
type osc52Clipboard struct {
	out io.Writer
}

func (c *osc52Clipboard) Copy(text string) error {
	seq := osc52.New(text)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(os.Getenv("TERM"), "screen"):
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(c.out); err != nil {
		return fmt.Errorf("writing osc52 sequence: %w", err)
	}
	return nil
}

// systemClipboard writes through the OS clipboard: pbcopy, wl-copy, xclip
// or xsel where installed, and the clipboard API on Windows.
type systemClipboard struct {
	unsupported bool
	write       func(text string) error
}

func newSystemClipboard() *systemClipboard {
	return &systemClipboard{
		unsupported: clipboard.Unsupported,
		write:       clipboard.WriteAll,
	}
}

func (c *systemClipboard) Copy(text string) error {
	if c.unsupported {
		return ErrNoClipboardCommand
	}
	if err := c.write(text); err != nil {
		return fmt.Errorf("writing system clipboard: %w", err)
	}
	return nil
}

// autoClipboard prefers the system clipboard and falls back to OSC 52.
type autoClipboard struct {
	primary  Clipboard
	fallback Clipboard
}

func (c *autoClipboard) Copy(text string) error {
	if err := c.primary.Copy(text); err == nil {
		return nil
	}
	return c.fallback.Copy(text)
}

type noClipboard struct{}

func (noClipboard) Copy(string) error { return ErrClipboardDisabled }
