// Copyright (c) the snow authors
// Licensed under the MIT license

// Package pipeline composes the Huffman, CFB and whitespace stages into
// the two directions of the steganography tool: Embed and Extract. It
// replaces the original tool's global-variable wiring with explicit
// composition, so each stage stays independently testable.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/hollowtext/snow/internal/cfb"
	"github.com/hollowtext/snow/internal/huffman"
	"github.com/hollowtext/snow/internal/ice"
	"github.com/hollowtext/snow/internal/wscode"
)

// Config is the read-only, per-run configuration threaded explicitly
// through the pipeline, replacing the original tool's process-wide
// compress_flag/quiet_flag/line_length globals.
type Config struct {
	Compress bool
	Quiet    bool

	// LineLength is only consulted by Embed.
	LineLength int

	// Password, when non-nil, enables the CFB stage (an empty string is a
	// legal, if discouraged, password -- distinct from no -p flag at all).
	Password *string

	// Logger receives warnings and flush-time statistics. A nil Logger
	// falls back to slog.Default(). With Quiet set, the pipeline sends no
	// warnings or statistics to the logger at all.
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) warn(msg string, args ...any) {
	if c.Quiet {
		return
	}
	c.logger().Warn(msg, args...)
}

func (c Config) deriveKey() (*ice.Key, [8]byte, bool) {
	if c.Password == nil {
		return nil, [8]byte{}, false
	}
	key, iv, err := cfb.DeriveKey(*c.Password, func(msg string) { c.warn(msg) })
	if err != nil {
		c.warn("failed to set password, continuing without encryption", "error", err)
		return nil, [8]byte{}, false
	}
	return key, iv, true
}

// EmbedStats reports the flush-time statistics the original tool printed
// to stderr as prose; here they are structured fields a caller can log or
// render however it likes.
type EmbedStats struct {
	CompressionApplied bool
	CompressRatioPct   float64
	UsedPercent        float64
	ExtraLines         uint64
	OverrunPercent     float64
}

// Embed reads payload bytes, pushes them through the compress/encrypt/
// whitespace-encode stages, and writes the resulting stego text to out via
// cover and out.
func Embed(cfg Config, payload io.Reader, cover wscode.LineReader, out wscode.LineWriter) (EmbedStats, error) {
	var stats EmbedStats

	encoder, err := wscode.NewEncoder(cover, out, cfg.LineLength)
	if err != nil {
		return stats, err
	}

	encryptor := &cfb.Encryptor{Down: encoder}
	if key, iv, ok := cfg.deriveKey(); ok {
		encryptor.Key = key
		encryptor.IV = iv
	}

	compressor := &huffman.Compressor{Enabled: cfg.Compress, Down: encryptor}

	br := bufio.NewReader(payload)
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("pipeline: reading payload: %w", err)
		}
		for i := 0; i < 8; i++ {
			bit := 0
			if b&(128>>uint(i)) != 0 {
				bit = 1
			}
			if err := compressor.Bit(bit); err != nil {
				return stats, err
			}
		}
	}

	if r := compressor.Residual(); r != 0 {
		cfg.warn("residual bits not compressed", "bits", r)
	}
	stats.CompressionApplied = cfg.Compress
	stats.CompressRatioPct = compressor.Ratio()
	if compressor.BitsOut > 0 {
		if stats.CompressRatioPct < 0 {
			cfg.warn("compression enlarged data, recommend not using compression", "enlarged_by_pct", -stats.CompressRatioPct)
		} else {
			cfg.warn("compressed", "ratio_pct", stats.CompressRatioPct)
		}
	}

	if encryptor.Key != nil {
		encryptor.Key.Destroy()
	}

	if err := encoder.Flush(); err != nil {
		return stats, err
	}

	stats.UsedPercent = encoder.UsedPercent()
	stats.ExtraLines = encoder.ExtraLines
	if encoder.ExtraLines > 0 {
		stats.OverrunPercent = stats.UsedPercent - 100.0
		cfg.warn("message exceeded available space", "overrun_pct", stats.OverrunPercent, "extra_lines", encoder.ExtraLines)
	} else {
		cfg.warn("message used available space", "used_pct", stats.UsedPercent)
	}

	return stats, nil
}

// Extract reads stego text from in, reverses the whitespace-decode/
// decrypt/decompress stages, and writes the recovered payload bytes to
// out.
func Extract(cfg Config, stego wscode.LineReader, out io.Writer) error {
	bw := &byteSink{w: out}
	decompressor := &huffman.Decompressor{Enabled: cfg.Compress, Down: bw}
	decryptor := &cfb.Decryptor{Down: decompressor}
	if key, iv, ok := cfg.deriveKey(); ok {
		decryptor.Key = key
		decryptor.IV = iv
	}
	decoder := &wscode.Decoder{Down: decryptor}

	if err := decoder.Run(stego); err != nil {
		return err
	}

	if decryptor.Key != nil {
		decryptor.Key.Destroy()
	}

	if r := bw.Residual(); r > 2 {
		cfg.warn("residual bits not output", "bits", r)
	}
	if r := decompressor.Residual(); r > 2 {
		cfg.warn("residual bits not uncompressed", "bits", r)
	}

	return nil
}

// byteSink accumulates bits MSB-first into bytes and writes them through.
type byteSink struct {
	w        io.Writer
	bitCount int
	value    byte
}

func (b *byteSink) Bit(bit int) error {
	b.value = (b.value << 1) | byte(bit&1)
	b.bitCount++
	if b.bitCount == 8 {
		if _, err := b.w.Write([]byte{b.value}); err != nil {
			return fmt.Errorf("pipeline: writing payload: %w", err)
		}
		b.value = 0
		b.bitCount = 0
	}
	return nil
}

func (b *byteSink) Residual() int { return b.bitCount }
