// Copyright (c) the snow authors
// Licensed under the MIT license

package huffman

import "testing"

func TestTablePrefixFree(t *testing.T) {
	for i := range table {
		for j := range table {
			if i == j {
				continue
			}
			ci, cj := table[i], table[j]
			if len(ci) <= len(cj) && cj[:len(ci)] == ci {
				t.Fatalf("table[%d]=%q is a prefix of table[%d]=%q", i, ci, j, cj)
			}
		}
	}
}

func TestTableTotal(t *testing.T) {
	for i, code := range table {
		if code == "" {
			t.Fatalf("byte %d has an empty code word", i)
		}
		for _, r := range code {
			if r != '0' && r != '1' {
				t.Fatalf("byte %d code %q has illegal symbol %q", i, code, r)
			}
		}
	}
}

type collectSink struct{ bits []int }

func (s *collectSink) Bit(bit int) error {
	s.bits = append(s.bits, bit)
	return nil
}

func bytesToBits(data []byte) []int {
	var bits []int
	for _, b := range data {
		for i := 0; i < 8; i++ {
			bit := 0
			if b&(128>>uint(i)) != 0 {
				bit = 1
			}
			bits = append(bits, bit)
		}
	}
	return bits
}

func bitsToBytes(bits []int) []byte {
	var out []byte
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | byte(bits[i+j])
		}
		out = append(out, b)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	msg := []byte("the quick brown fox jumps over the lazy dog, again and again.")

	mid := &collectSink{}
	comp := &Compressor{Enabled: true, Down: mid}
	for _, bit := range bytesToBits(msg) {
		if err := comp.Bit(bit); err != nil {
			t.Fatalf("compress: %v", err)
		}
	}

	out := &collectSink{}
	decomp := &Decompressor{Enabled: true, Down: out}
	for _, bit := range mid.bits {
		if err := decomp.Bit(bit); err != nil {
			t.Fatalf("decompress: %v", err)
		}
	}

	got := bitsToBytes(out.bits)
	if string(got) != string(msg) {
		t.Fatalf("round trip mismatch: got %q want %q", got, msg)
	}
}

func TestCompressesTypicalEnglish(t *testing.T) {
	msg := []byte(
		"the rain in spain falls mainly on the plain and everyone agrees that it is mostly annoying",
	)

	mid := &collectSink{}
	comp := &Compressor{Enabled: true, Down: mid}
	for _, bit := range bytesToBits(msg) {
		if err := comp.Bit(bit); err != nil {
			t.Fatalf("compress: %v", err)
		}
	}

	if comp.BitsOut >= comp.BitsIn {
		t.Fatalf("expected compression to shrink the stream: in=%d out=%d", comp.BitsIn, comp.BitsOut)
	}
}

func TestPassThrough(t *testing.T) {
	out := &collectSink{}
	comp := &Compressor{Enabled: false, Down: out}
	bits := []int{1, 0, 1, 1, 0, 0, 1, 0, 1}
	for _, b := range bits {
		if err := comp.Bit(b); err != nil {
			t.Fatal(err)
		}
	}
	if len(out.bits) != len(bits) {
		t.Fatalf("pass-through changed bit count: got %d want %d", len(out.bits), len(bits))
	}
}

func TestBufferOverflow(t *testing.T) {
	known := make(map[string]bool, 256)
	for _, code := range table {
		known[code] = true
	}

	// Build a bit sequence that never completes a valid code word, by always
	// extending with whichever bit keeps the running prefix out of the table.
	out := &collectSink{}
	decomp := &Decompressor{Enabled: true, Down: out}
	prefix := ""
	var err error
	for i := 0; i < maxCodeLen+1; i++ {
		bit := 0
		if known[prefix+"0"] {
			bit = 1
		}
		prefix += string(rune('0' + bit))
		if known[prefix] {
			t.Fatalf("could not build a non-matching prefix at length %d", len(prefix))
		}
		if err = decomp.Bit(bit); err != nil {
			break
		}
	}
	if err != ErrBufferOverflow {
		t.Fatalf("expected ErrBufferOverflow, got %v", err)
	}
}
