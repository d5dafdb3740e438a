// Copyright (c) the snow authors
// Licensed under the MIT license

// Package wscode implements the whitespace encoder and decoder: the stage
// that packs 3-bit groups from the cipher into runs of 0-7 spaces
// terminated by tabs against a line-length-aware cover text, and the
// inverse that recovers them.
package wscode

import "errors"

// ErrIllegalEncoding is returned by the decoder when a trailing run holds
// more than 7 consecutive spaces before a tab -- an encoding that can never
// have been produced by [Encoder], and so signals either a corrupted stream
// or a non-stego line being misread as one.
var ErrIllegalEncoding = errors.New("wscode: illegal space run length")

// Sink accepts one bit at a time, downstream of the decoder (the
// decryptor) or upstream of the encoder is fed bits from the cipher.
type Sink interface {
	Bit(bit int) error
}

// MinLineLength is the smallest line length the encoder accepts, matching
// the original tool's -l validation floor.
const MinLineLength = 8

// tabpos returns the next tab stop strictly after column n, with stops
// every 8 columns.
func tabpos(n int) int {
	return (n + 8) &^ 7
}

// reverseGroup reverses the three bits of a 3-bit group: (b2 b1 b0) MSB..LSB
// is transmitted as a space count with its bits reversed, n = (b0<<2)|(b1<<1)|b2.
func reverseGroup(v int) int {
	return ((v & 1) << 2) | (v & 2) | ((v & 4) >> 2)
}

// expandColumn returns the tab-expanded display column after line, with
// tab stops every 8 columns, starting from column 0.
func expandColumn(line string) int {
	col := 0
	for _, c := range []byte(line) {
		if c == '\t' {
			col = tabpos(col)
		} else {
			col++
		}
	}
	return col
}

// stripTrailingWhitespace removes trailing spaces, tabs, CR and LF from s,
// the way the original tool's wsgets reads a cover line.
func stripTrailingWhitespace(s string) string {
	n := len(s)
	for n > 0 {
		switch s[n-1] {
		case ' ', '\t', '\r', '\n':
			n--
		default:
			return s[:n]
		}
	}
	return s[:n]
}
