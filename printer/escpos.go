// Package printer renders ticket snapshots for receipt printers, screens and PDF.
package printer

import (
	"bytes"
	"strings"
)

const (
	esc = 0x1B
	gs  = 0x1D

	// LineWidth is the character width of an 80mm roll in the normal font.
	LineWidth = 48
)

type Align byte

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Encoder builds an ESC/POS byte stream. Methods chain.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Initialize resets the printer (ESC @).
func (e *Encoder) Initialize() *Encoder {
	e.buf.Write([]byte{esc, 0x40})
	return e
}

func (e *Encoder) Text(s string) *Encoder {
	e.buf.WriteString(s)
	return e
}

func (e *Encoder) Newline(n int) *Encoder {
	for i := 0; i < n; i++ {
		e.buf.WriteByte('\n')
	}
	return e
}

func (e *Encoder) Align(a Align) *Encoder {
	e.buf.Write([]byte{esc, 0x61, byte(a)})
	return e
}

func (e *Encoder) Bold(on bool) *Encoder {
	e.buf.Write([]byte{esc, 0x45, flag(on)})
	return e
}

// Size sets the character multipliers (GS !). Both are clamped to 1..8.
func (e *Encoder) Size(width, height int) *Encoder {
	w := clamp(width, 1, 8) - 1
	h := clamp(height, 1, 8) - 1
	e.buf.Write([]byte{gs, 0x21, byte(w<<4 | h)})
	return e
}

// Invert toggles white on black printing (GS B).
func (e *Encoder) Invert(on bool) *Encoder {
	e.buf.Write([]byte{gs, 0x42, flag(on)})
	return e
}

// Line prints a full width rule of ch.
func (e *Encoder) Line(ch string) *Encoder {
	if ch == "" {
		ch = "-"
	}
	return e.Text(strings.Repeat(ch, LineWidth/len(ch))).Newline(1)
}

// Cut feeds and performs a full cut (GS V A 3).
func (e *Encoder) Cut() *Encoder {
	e.buf.Write([]byte{gs, 0x56, 0x41, 0x03})
	return e
}

func (e *Encoder) Bytes() []byte {
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out
}

func flag(on bool) byte {
	if on {
		return 1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
