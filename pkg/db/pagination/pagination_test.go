package pagination

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-02T03:04:05Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", cursor.CreatedAt)
}

func TestFinalizeTrimsLookAheadRow(t *testing.T) {
	a, b, c := 1, 2, 3
	items, info, err := Finalize([]*int{&a, &b, &c}, Pagination{PageSize: 2}, func(v *int) Cursor {
		return Cursor{ID: fmt.Sprint(*v)}
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)

	items, info, err = Finalize([]*int{&a}, Pagination{PageSize: 2}, func(*int) Cursor { return Cursor{} })
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestNormalizeClampsPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Normalize().PageSize)
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Normalize().PageSize)
}

func TestApplyRejectsMalformedToken(t *testing.T) {
	_, err := Apply(nil, Pagination{PageToken: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}
