package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratedTagsAreValid(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tag := GenerateJobTag("SoHo", "10012")
		assert.True(t, IsValidJobTag(tag), "generated tag %q should be valid", tag)
		assert.False(t, seen[tag], "tag %q issued twice", tag)
		seen[tag] = true
	}
}

func TestIsValidJobTagRejectsForeignTags(t *testing.T) {
	invalid := []string{
		"",
		"soho_10012-abc",
		"bxlog_soho_10012",
		"bxlog_soho-abc",
		"bxlog__10012-abc",
		"bxlog_soho_1001-abc",
		"bxlog_soho_10012-",
		"otherprefix_soho_10012-abc",
	}
	for _, tag := range invalid {
		assert.False(t, IsValidJobTag(tag), "tag %q should be invalid", tag)
	}
}

func TestIsValidJobTagAcceptsShortSuffix(t *testing.T) {
	assert.True(t, IsValidJobTag("bxlog_soho_10012-abc"))
}
