// Package qrcode renders session codes as QR images and turns scanned
// payloads back into codes.
package qrcode

import (
	"errors"
	"fmt"
	"strings"

	goqr "github.com/skip2/go-qrcode"
)

// ErrUndecodable is returned when a scanned payload does not carry a code.
var ErrUndecodable = errors.New("qr payload does not contain a session code")

const (
	minSize    = 64
	maxCodeLen = 32
)

// Codec converts between redemption codes and QR payloads.
type Codec struct {
	size  int
	level goqr.RecoveryLevel
}

// NewCodec builds a codec rendering size×size PNGs at the named recovery
// level (low, medium, high, highest).
func NewCodec(size int, recovery string) *Codec {
	if size < minSize {
		size = 256
	}
	return &Codec{size: size, level: parseRecovery(recovery)}
}

// Encode renders code as a PNG image.
func (c *Codec) Encode(code string) ([]byte, error) {
	if code == "" {
		return nil, fmt.Errorf("encode qr: empty code")
	}
	png, err := goqr.Encode(code, c.level, c.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Decode extracts the code from a scanned payload. Surrounding whitespace
// added by scanners is dropped; the code itself is returned unchanged, so a
// lowercase payload is undecodable.
func (c *Codec) Decode(payload string) (string, error) {
	code := strings.TrimSpace(payload)
	if code == "" || len(code) > maxCodeLen {
		return "", ErrUndecodable
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrUndecodable
		}
	}
	return code, nil
}

func parseRecovery(raw string) goqr.RecoveryLevel {
	switch strings.ToLower(raw) {
	case "low":
		return goqr.Low
	case "high":
		return goqr.High
	case "highest":
		return goqr.Highest
	default:
		return goqr.Medium
	}
}
