package codepage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, cp := range []nwtypes.CodePage{nwtypes.CP1250, nwtypes.CP1251, nwtypes.CP1252} {
		encoded, err := Encode("Hello, World!", cp)
		require.NoError(t, err)
		decoded, err := Decode(encoded, cp)
		require.NoError(t, err)
		assert.Equal(t, "Hello, World!", decoded)
	}
}

func TestEncodeRejectsUnrepresentableCharacters(t *testing.T) {
	_, err := Encode("中文", nwtypes.CP1252) // Chinese text has no CP1252 mapping
	assert.Error(t, err)
}

func TestUnsupportedCodePage(t *testing.T) {
	_, err := Encode("test", nwtypes.CodePage(9999))
	assert.Error(t, err)
	_, err = Decode([]byte("test"), nwtypes.CodePage(9999))
	assert.Error(t, err)
}
