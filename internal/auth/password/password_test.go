package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"))

	assert.True(t, Verify("correct horse", encoded))
	assert.False(t, Verify("wrong horse", encoded))
	assert.False(t, NeedsRehash(encoded))

	again, err := Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$YQ$YQ",
		"$argon2id$v=18$m=1,t=1,p=1$YQ$YQ",
		"$argon2id$v=19$m=x,t=1,p=1$YQ$YQ",
		"$argon2id$v=19$m=1,t=1,p=1$$YQ",
	} {
		assert.False(t, Verify("pw", encoded), encoded)
		assert.True(t, NeedsRehash(encoded), encoded)
	}
}

func TestNeedsRehashOnWeakerParams(t *testing.T) {
	assert.True(t, NeedsRehash("$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5"))
}
