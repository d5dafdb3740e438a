// Copyright (c) the snow authors
// Licensed under the MIT license

// Package cfb wraps the [ice.Key] block primitive into a 1-bit cipher
// feedback stream: a self-synchronizing keystream in which each bit's
// feedback is the ciphertext bit, making the encrypt and decrypt state
// updates byte-for-byte identical.
package cfb

import (
	"fmt"

	"github.com/hollowtext/snow/internal/ice"
)

// Sink accepts one bit at a time from an upstream stage.
type Sink interface {
	Bit(bit int) error
}

const (
	keyBufSize  = 1024
	maxPackBits = 8184
)

// DeriveKey builds an ICE schedule and initial feedback register from a
// password, following the exact bit-packing contract of the original tool:
// the low 7 bits of each password byte are packed MSB-first into a
// zero-filled 1024-byte buffer using the three-case shift that straddles
// byte boundaries (see the doc comment on packPassword), up to 8184 bits
// (1170 characters). An empty password still derives a level-1 key; warn
// is called with an advisory message in that case and when the password is
// truncated, mirroring the original's stderr warnings without hardcoding a
// presentation.
func DeriveKey(password string, warn func(string)) (*ice.Key, [8]byte, error) {
	if warn == nil {
		warn = func(string) {}
	}

	level := (len(password)*7 + 63) / 64
	if level == 0 {
		warn("an empty password is being used")
		level = 1
	} else if level > ice.MaxLevel {
		warn("password truncated to 1170 characters")
		level = ice.MaxLevel
	}

	buf := packPassword(password)

	key, err := ice.Create(level)
	if err != nil {
		return nil, [8]byte{}, fmt.Errorf("cfb: %w", err)
	}
	if err := key.Set(buf[:8*level]); err != nil {
		return nil, [8]byte{}, fmt.Errorf("cfb: %w", err)
	}

	var ivInput [8]byte
	copy(ivInput[:], buf[:8])
	iv := key.Encrypt(ivInput)

	return key, iv, nil
}

// packPassword packs the low 7 bits of each password byte, MSB-first
// within each 7-bit unit, into a 1024-byte buffer. The three branches
// (bit offset 0, 1, or 2-7) are a bit-exact contract: an implementer must
// reproduce this exact packing to stay compatible with streams produced by
// the original tool, since flipping the shift order would shift every
// subsequent character's bits.
func packPassword(password string) [keyBufSize]byte {
	var buf [keyBufSize]byte

	i := 0
	for n := 0; n < len(password); n++ {
		c := password[n] & 0x7f
		idx := i / 8
		bit := i & 7

		switch bit {
		case 0:
			buf[idx] = c << 1
		case 1:
			buf[idx] |= c
		default:
			buf[idx] |= c >> uint(bit-1)
			if idx+1 < keyBufSize {
				buf[idx+1] = c << uint(9-bit)
			}
		}

		i += 7
		if i > maxPackBits {
			break
		}
	}

	return buf
}

// Encryptor is the encryption-direction CFB stage. With Key nil it is a
// pass-through.
type Encryptor struct {
	Key  *ice.Key
	IV   [8]byte
	Down Sink
}

// Bit encrypts one plaintext bit and feeds the resulting ciphertext bit
// downstream.
func (e *Encryptor) Bit(p int) error {
	if e.Key == nil {
		return e.Down.Bit(p)
	}

	out := e.Key.Encrypt(e.IV)
	mask := 0
	if out[0]&0x80 != 0 {
		mask = 1
	}
	c := (p ^ mask) & 1

	shiftInsert(&e.IV, byte(c))

	return e.Down.Bit(c)
}

// Decryptor is the decryption-direction CFB stage. With Key nil it is a
// pass-through.
type Decryptor struct {
	Key  *ice.Key
	IV   [8]byte
	Down Sink
}

// Bit decrypts one ciphertext bit and feeds the recovered plaintext bit
// downstream. The feedback register is updated with the ciphertext bit,
// exactly as encryption does, which is what makes 1-bit CFB
// self-synchronizing.
func (d *Decryptor) Bit(c int) error {
	if d.Key == nil {
		return d.Down.Bit(c)
	}

	out := d.Key.Encrypt(d.IV)
	mask := 0
	if out[0]&0x80 != 0 {
		mask = 1
	}
	p := (c ^ mask) & 1

	shiftInsert(&d.IV, byte(c&1))

	return d.Down.Bit(p)
}

// shiftInsert rotates iv left by one bit across all 8 bytes -- byte i's
// MSB is delivered into byte i-1's LSB -- then sets the new LSB of byte 7
// to bit, discarding whatever bit would otherwise have rotated out of
// byte 0.
func shiftInsert(iv *[8]byte, bit byte) {
	old := *iv
	for i := 0; i < 8; i++ {
		iv[i] = old[i] << 1
		if i < 7 && old[i+1]&0x80 != 0 {
			iv[i] |= 1
		}
	}
	iv[7] |= bit & 1
}
