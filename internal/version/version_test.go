package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, Version, String())

	orig := GitCommit
	t.Cleanup(func() { GitCommit = orig })
	GitCommit = "abc1234"
	assert.Equal(t, Version+" (abc1234, built "+BuildTime+")", String())
}
