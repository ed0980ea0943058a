package qrcode

import (
	"bytes"
	"testing"

	goqr "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestEncodeProducesPNG(t *testing.T) {
	png, err := NewCodec(128, "high").Encode("ABC123")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestEncodeRejectsEmpty(t *testing.T) {
	_, err := NewCodec(128, "").Encode("")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	codec := NewCodec(0, "")

	code, err := codec.Decode(" ABC123\n")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", code)

	for _, bad := range []string{"", "   ", "abc123", "ABC-123", "https://x.test/ABC123"} {
		_, err := codec.Decode(bad)
		assert.ErrorIs(t, err, ErrUndecodable, bad)
	}
}

func TestParseRecovery(t *testing.T) {
	assert.Equal(t, goqr.Low, parseRecovery("LOW"))
	assert.Equal(t, goqr.Highest, parseRecovery("highest"))
	assert.Equal(t, goqr.Medium, parseRecovery("bogus"))
}
