// Copyright (c) the snow authors
// Licensed under the MIT license

package wscode

import "fmt"

// Encoder packs 3-bit groups arriving one bit at a time into a cover text,
// as runs of 0-7 spaces terminated by tabs, line-length aware. It
// implements [Sink]; feed it bits from the cipher stage.
type Encoder struct {
	Cover      LineReader
	Out        LineWriter
	LineLength int

	bitCount int
	value    int

	buffer       []byte
	bufferLoaded bool
	column       int
	firstTab     bool
	needsTab     bool

	BitsUsed      uint64
	BitsAvailable uint64
	ExtraLines    uint64
}

// NewEncoder builds an Encoder targeting lineLength-column lines. lineLength
// must be at least [MinLineLength].
func NewEncoder(cover LineReader, out LineWriter, lineLength int) (*Encoder, error) {
	if lineLength < MinLineLength {
		return nil, fmt.Errorf("wscode: line length %d below minimum %d", lineLength, MinLineLength)
	}
	return &Encoder{Cover: cover, Out: out, LineLength: lineLength}, nil
}

// Bit accumulates one payload bit; every third call packs a 3-bit group
// into the cover text.
func (e *Encoder) Bit(bit int) error {
	e.value = (e.value << 1) | (bit & 1)
	e.bitCount++
	e.BitsUsed++

	if e.bitCount == 3 {
		if err := e.writeValue(e.value); err != nil {
			return err
		}
		e.value = 0
		e.bitCount = 0
	}

	return nil
}

// Flush pads any partial final group with zero bits, writes the
// in-progress cover line, and copies through any remaining cover lines
// unchanged, tallying their nominal capacity for the usage report.
func (e *Encoder) Flush() error {
	if e.bitCount > 0 {
		for e.bitCount < 3 {
			e.value <<= 1
			e.bitCount++
		}
		if err := e.writeValue(e.value); err != nil {
			return err
		}
		e.bitCount = 0
	}

	if e.bufferLoaded {
		if err := e.Out.WriteLine(string(e.buffer)); err != nil {
			return err
		}
		e.bufferLoaded = false
		e.buffer = nil
		e.column = 0
	}

	var lo, hi uint64
	for {
		line, ok, err := e.Cover.ReadLine()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		l, h := LineCapacity(line, e.LineLength)
		lo += l
		hi += h
		if err := e.Out.WriteLine(line); err != nil {
			return err
		}
	}
	e.BitsAvailable += (lo + hi) / 2

	return nil
}

// UsedPercent reports BitsUsed as a percentage of BitsAvailable. When
// ExtraLines were synthesized the result exceeds 100; the overrun is that
// excess over 100.
func (e *Encoder) UsedPercent() float64 {
	if e.BitsAvailable == 0 {
		return 0
	}
	return float64(e.BitsUsed) / float64(e.BitsAvailable) * 100.0
}

func (e *Encoder) loadBuffer() error {
	line, ok, err := e.Cover.ReadLine()
	if err != nil {
		return err
	}
	if !ok {
		line = ""
		e.ExtraLines++
	}
	e.buffer = []byte(line)
	e.column = expandColumn(line)
	e.bufferLoaded = true
	e.needsTab = false
	return nil
}

func (e *Encoder) flushBuffer() error {
	if err := e.Out.WriteLine(string(e.buffer)); err != nil {
		return err
	}
	return e.loadBuffer()
}

// appendWhitespace tries to append a 0-7 space run (plus its terminating
// or owed tab) to the loaded buffer. It reports whether the group fit.
func (e *Encoder) appendWhitespace(nsp int) bool {
	col := e.column
	if e.needsTab {
		col = tabpos(col)
	}
	if nsp == 0 {
		col = tabpos(col)
	} else {
		col += nsp
	}
	if col >= e.LineLength {
		return false
	}

	if e.needsTab {
		e.buffer = append(e.buffer, '\t')
		e.column = tabpos(e.column)
	}

	if nsp == 0 {
		e.buffer = append(e.buffer, '\t')
		e.column = tabpos(e.column)
		e.needsTab = false
	} else {
		for i := 0; i < nsp; i++ {
			e.buffer = append(e.buffer, ' ')
		}
		e.column += nsp
		e.needsTab = true
	}

	return true
}

func (e *Encoder) writeValue(val int) error {
	if !e.bufferLoaded {
		if err := e.loadBuffer(); err != nil {
			return err
		}
	}

	if !e.firstTab {
		for tabpos(e.column) >= e.LineLength {
			if err := e.flushBuffer(); err != nil {
				return err
			}
		}
		e.buffer = append(e.buffer, '\t')
		e.column = tabpos(e.column)
		e.firstTab = true
	}

	nspc := reverseGroup(val)
	for !e.appendWhitespace(nspc) {
		if err := e.flushBuffer(); err != nil {
			return err
		}
	}

	if e.ExtraLines == 0 {
		e.BitsAvailable += 3
	}

	return nil
}
