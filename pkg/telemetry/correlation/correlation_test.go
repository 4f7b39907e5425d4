package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	_, err := ulid.Parse(cid)
	require.NoError(t, err)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))

	_, again := EnsureCorrelationID(ctx)
	assert.Equal(t, cid, again)
}

func TestUpstreamIDIsKept(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "from-mobile-app")
	ctx = ContextWithCorrelationID(ctx, "")

	_, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "from-mobile-app", cid)
}
