package ids

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAcrossManyCalls(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := New()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewCarriesTimestampPrefix(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id := newAt(at)

	prefix := strconv.FormatInt(at.UnixMilli(), 36)
	assert.True(t, strings.HasPrefix(id, prefix))
	assert.Len(t, id, len(prefix)+suffixLen)
}

func TestTokenIs256BitHex(t *testing.T) {
	tok, err := Token()
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	other, err := Token()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}
