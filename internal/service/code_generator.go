package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet omits characters that are easily confused when read aloud or
// copied from a projector (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeGenerator produces candidate redemption codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodeGenerator draws uniformly from codeAlphabet.
type RandomCodeGenerator struct {
	length int
}

// NewRandomCodeGenerator builds a generator of fixed-length codes.
func NewRandomCodeGenerator(length int) *RandomCodeGenerator {
	if length < 4 {
		length = 6
	}
	return &RandomCodeGenerator{length: length}
}

// Generate returns a new random code.
func (g *RandomCodeGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
