package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()
	v := NewKeyring()

	_, err := v.Get("acc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	want := Tokens{AccessToken: "a.b.c", MSARefreshToken: "refresh"}
	require.NoError(t, v.Set("acc-1", want))

	got, err := v.Get("acc-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, v.Delete("acc-1"))
	_, err = v.Get("acc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, v.Delete("acc-1"))
}
