package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-2-h/TextSecure-Server/pkg/util"
)

func TestContactToken(t *testing.T) {
	token := util.ContactToken("+14152222222")

	assert.Len(t, token, 10)
	// Derivation is deterministic.
	assert.Equal(t, token, util.ContactToken("+14152222222"))
	assert.NotEqual(t, token, util.ContactToken("+14152222223"))
}

func TestEncodedContactToken_NoPadding(t *testing.T) {
	encoded := util.EncodedContactToken("+14152222222")

	assert.NotEmpty(t, encoded)
	assert.NotContains(t, encoded, "=")
}

func TestIsValidNumber(t *testing.T) {
	valid := []string{"+14151231234", "+442071231234", "+4915123456789"}
	for _, number := range valid {
		assert.True(t, util.IsValidNumber(number), number)
	}

	invalid := []string{"", "14151231234", "+1415123", "+1415123abcd", "+1415 1231234"}
	for _, number := range invalid {
		assert.False(t, util.IsValidNumber(number), number)
	}
}

func TestCombine(t *testing.T) {
	combined := util.Combine([]byte{1, 2}, nil, []byte{3}, []byte{4, 5})
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, combined)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 3}, util.Truncate([]byte{1, 2, 3, 4, 5}, 3))
	// Short input zero-pads.
	assert.Equal(t, []byte{1, 2, 0}, util.Truncate([]byte{1, 2}, 3))
}

func TestSplit(t *testing.T) {
	t.Run("exact consumption", func(t *testing.T) {
		parts, err := util.Split([]byte{1, 2, 3, 4, 5, 6}, 1, 2, 3)

		require.NoError(t, err)
		require.Len(t, parts, 3)
		assert.Equal(t, []byte{1}, parts[0])
		assert.Equal(t, []byte{2, 3}, parts[1])
		assert.Equal(t, []byte{4, 5, 6}, parts[2])
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := util.Split([]byte{1, 2, 3}, 1, 3)
		require.Error(t, err)
	})
}

func TestTodayInMillisAt(t *testing.T) {
	now := time.Date(2014, 5, 8, 17, 30, 12, 0, time.UTC)
	midnight := time.Date(2014, 5, 8, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, midnight.UnixMilli(), util.TodayInMillisAt(now))
	assert.Equal(t, midnight.UnixMilli(), util.TodayInMillisAt(midnight))
}
