// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package render draws status snapshots on the terminal and on an optional
// SSD1306 display.
package render

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/relabs-tech/nmeatop/internal/dashboard"
	"github.com/relabs-tech/nmeatop/internal/status"
)

// ColumnWidth is the width of each field block.
const ColumnWidth = 20

var (
	titleStyle   = tcell.StyleDefault.Bold(true)
	valueStyle   = tcell.StyleDefault
	unknownStyle = tcell.StyleDefault.Dim(true)
	footerStyle  = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Terminal renders one fixed-width column per field and turns key presses
// into dashboard events.
type Terminal struct {
	screen tcell.Screen
	footer func() string

	events    chan dashboard.Event
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewTerminal takes over the terminal. Close must be called to restore it.
// footer, if set, supplies the text of the bottom line on every frame.
func NewTerminal(footer func() string) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("render: create screen: %w", err)
	}
	return newTerminal(screen, footer)
}

func newTerminal(screen tcell.Screen, footer func() string) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("render: init screen: %w", err)
	}
	screen.HideCursor()
	screen.Clear()
	return &Terminal{
		screen: screen,
		footer: footer,
		events: make(chan dashboard.Event),
		done:   make(chan struct{}),
	}, nil
}

// Render draws snap and shows the frame.
func (t *Terminal) Render(snap status.Snapshot) error {
	t.screen.Clear()

	for i, f := range status.Fields {
		x := i * ColumnWidth
		drawText(t.screen, x, 0, ColumnWidth, f.String(), titleStyle)

		text, style := snap.Display(f), valueStyle
		if _, ok := snap.Get(f); !ok {
			style = unknownStyle
		}
		drawText(t.screen, x, 1, ColumnWidth, text, style)
		drawText(t.screen, x, 2, ColumnWidth, ageText(snap, f), footerStyle)
	}

	if t.footer != nil {
		w, h := t.screen.Size()
		if h > 3 {
			drawText(t.screen, 0, h-1, w, t.footer(), footerStyle)
		}
	}

	t.screen.Show()
	return nil
}

// ageText is how long ago f was written, empty if never.
func ageText(snap status.Snapshot, f status.Field) string {
	w := snap.Written(f)
	if w.IsZero() {
		return ""
	}
	age := snap.At.Sub(w)
	if age < 0 {
		age = 0
	}
	return fmt.Sprintf("%.1fs ago", age.Seconds())
}

func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= width {
			return
		}
		s.SetContent(x+col, y, r, nil, style)
		col++
	}
}

// Events returns the key event stream. The channel is closed when the screen
// is finalized.
func (t *Terminal) Events() <-chan dashboard.Event {
	t.startOnce.Do(func() { go t.pollEvents() })
	return t.events
}

func (t *Terminal) pollEvents() {
	defer close(t.events)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			t.screen.Sync()
		case *tcell.EventKey:
			select {
			case t.events <- keyEvent(ev):
			case <-t.done:
				return
			}
		}
	}
}

func keyEvent(ev *tcell.EventKey) dashboard.Event {
	switch ev.Key() {
	case tcell.KeyEscape:
		return dashboard.Event{Key: dashboard.KeyEscape}
	case tcell.KeyCtrlC:
		return dashboard.Event{Key: dashboard.KeyCtrlC}
	case tcell.KeyRune:
		return dashboard.Event{Key: dashboard.KeyRune, Rune: ev.Rune()}
	default:
		return dashboard.Event{Key: dashboard.KeyOther}
	}
}

// Close restores the terminal to its previous state.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.screen.Fini()
	})
	return nil
}
