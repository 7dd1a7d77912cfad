package command

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Job tags look like bxlog_soho_10012-9a1b... : system prefix, borough tag,
// zip code, then a dash and a unique suffix.
const TagPrefix = "bxlog"

var jobTagRx = regexp.MustCompile(`^` + TagPrefix + `_[a-z0-9]+_[0-9]{5}-[0-9a-z\-]+$`)

// GenerateJobTag mints a globally unique tag for a new delivery job.
func GenerateJobTag(boroughTag, zip string) string {
	return fmt.Sprintf("%s_%s_%s-%s",
		TagPrefix,
		strings.ToLower(boroughTag),
		zip,
		uuid.NewString())
}

// IsValidJobTag reports whether a token is well-formed as a job tag. It does
// not check that the tag was ever issued.
func IsValidJobTag(tag string) bool {
	return jobTagRx.MatchString(tag)
}

// HasTagPrefix reports whether message text opens with the reserved job tag
// prefix, which routes it to the tagged-command branch of the grammar.
func HasTagPrefix(text string) bool {
	return strings.HasPrefix(text, TagPrefix+"_")
}
