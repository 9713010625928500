package webauthn

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildAuthData(rpID string, flags byte, signCount uint32) []byte {
	hash := sha256.Sum256([]byte(rpID))
	buf := make([]byte, 37)
	copy(buf[:32], hash[:])
	buf[32] = flags
	binary.BigEndian.PutUint32(buf[33:37], signCount)
	return buf
}

func TestParseAuthenticatorDataLayout(t *testing.T) {
	raw := buildAuthData("example.com", FlagUserPresent|FlagUserVerified, 0xDEADBEEF)

	ad, err := ParseAuthenticatorData(raw)
	require.NoError(t, err)

	want := sha256.Sum256([]byte("example.com"))
	require.Equal(t, want, ad.RPIDHash)
	require.True(t, ad.UserPresent())
	require.True(t, ad.UserVerified())
	require.Equal(t, uint32(0xDEADBEEF), ad.SignCount)
}

func TestParseAuthenticatorDataCounterIsBigEndian(t *testing.T) {
	raw := buildAuthData("example.com", FlagUserPresent, 0)
	raw[33], raw[34], raw[35], raw[36] = 0x00, 0x00, 0x01, 0x02

	ad, err := ParseAuthenticatorData(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(0x0102), ad.SignCount)
}

func TestParseAuthenticatorDataIgnoresTrailingBytes(t *testing.T) {
	raw := buildAuthData("example.com", FlagUserPresent, 7)
	raw = append(raw, 0xAA, 0xBB, 0xCC)

	ad, err := ParseAuthenticatorData(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(7), ad.SignCount)
}

func TestParseAuthenticatorDataTooShort(t *testing.T) {
	_, err := ParseAuthenticatorData(make([]byte, 36))
	require.Error(t, err)
}

func TestParseAuthenticatorDataFlags(t *testing.T) {
	ad, err := ParseAuthenticatorData(buildAuthData("example.com", FlagUserPresent, 1))
	require.NoError(t, err)
	require.True(t, ad.UserPresent())
	require.False(t, ad.UserVerified())
}

func TestParseClientData(t *testing.T) {
	payload, err := json.Marshal(map[string]string{
		"type":      ClientDataTypeGet,
		"challenge": "abc123",
		"origin":    "https://app.example.com",
	})
	require.NoError(t, err)

	cd, err := ParseClientData(Encode(payload))
	require.NoError(t, err)
	require.Equal(t, ClientDataTypeGet, cd.Type)
	require.Equal(t, "abc123", cd.Challenge)
	require.Equal(t, "https://app.example.com", cd.Origin)
}

func TestParseClientDataRejectsBadInput(t *testing.T) {
	_, err := ParseClientData("!!!")
	require.Error(t, err)

	_, err = ParseClientData(Encode([]byte("not json")))
	require.Error(t, err)
}
