package webauthn

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0xfb, 0xef, 0xff}, // encodes to chars needing the url alphabet
		[]byte("hello webauthn"),
		bytes.Repeat([]byte{0xff}, 32),
	}
	for _, in := range cases {
		encoded := Encode(in)
		require.NotContains(t, encoded, "+")
		require.NotContains(t, encoded, "/")
		require.NotContains(t, encoded, "=")

		out, err := Decode(encoded)
		require.NoError(t, err)
		require.True(t, bytes.Equal(in, out))
	}
}

func TestDecodeToleratesPaddingAndAlphabet(t *testing.T) {
	raw := []byte{0xfb, 0xef, 0xbe, 0xad, 0xde}

	stdPadded := base64.StdEncoding.EncodeToString(raw)
	require.True(t, strings.ContainsAny(stdPadded, "+/="))

	out, err := Decode(stdPadded)
	require.NoError(t, err)
	require.Equal(t, raw, out)

	unpadded := strings.TrimRight(stdPadded, "=")
	out, err = Decode(unpadded)
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("!!!not base64!!!")
	require.Error(t, err)
}

func TestNormalizeChallenge(t *testing.T) {
	raw := []byte{0xfb, 0xef, 0xbe, 0xad, 0xde}

	canonical := Encode(raw)
	stdPadded := base64.StdEncoding.EncodeToString(raw)

	require.Equal(t, canonical, NormalizeChallenge(stdPadded))
	require.Equal(t, canonical, NormalizeChallenge(canonical))
}

func TestGenerateChallengeUniqueAndDecodable(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := GenerateChallenge()
		require.False(t, seen[c], "challenge repeated")
		seen[c] = true

		raw, err := Decode(c)
		require.NoError(t, err)
		require.Len(t, raw, 32)
	}
}

func TestEncodeUserHandle(t *testing.T) {
	handle := EncodeUserHandle(42)
	raw, err := Decode(handle)
	require.NoError(t, err)
	require.Equal(t, "42", string(raw))
}
