package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaggedCommand(t *testing.T) {
	cmd, err := Parse("bxlog_soho_10012-abc bid")
	require.NoError(t, err)

	sc, ok := cmd.(SystemCommand)
	require.True(t, ok, "expected a system command")
	assert.Equal(t, "bid", sc.Spec.Code)
	assert.Equal(t, "bxlog_soho_10012-abc", sc.JobTag)
	assert.Empty(t, sc.Modifiers)
}

func TestParseTaggedCommandSynonymAndModifiers(t *testing.T) {
	cmd, err := Parse("bxlog_soho_10012-abc DT extra tokens")
	require.NoError(t, err)

	sc := cmd.(SystemCommand)
	assert.Equal(t, "det", sc.Spec.Code)
	assert.Equal(t, []string{"extra", "tokens"}, sc.Modifiers)
}

func TestParseTaggedCommandUnknownName(t *testing.T) {
	_, err := Parse("bxlog_soho_10012-abc frobnicate")

	var unrec *UnrecognizedCommandError
	require.ErrorAs(t, err, &unrec)
}

func TestParseTagWithoutCommandName(t *testing.T) {
	_, err := Parse("bxlog_soho_10012-abc")

	var unrec *UnrecognizedCommandError
	require.ErrorAs(t, err, &unrec)
}

func TestParseBareSystemCommand(t *testing.T) {
	cmd, err := Parse("dut")
	require.NoError(t, err)

	sc := cmd.(SystemCommand)
	assert.Equal(t, "dut", sc.Spec.Code)
	assert.Empty(t, sc.JobTag)
}

func TestParseSystemCommandIsCaseInsensitive(t *testing.T) {
	cmd, err := Parse("HELP")
	require.NoError(t, err)
	assert.Equal(t, "hlp", cmd.(SystemCommand).Spec.Code)
}

func TestParseGeneratorCommand(t *testing.T) {
	cmd, err := Parse("opn.3 dt")
	require.NoError(t, err)

	gc, ok := cmd.(GeneratorCommand)
	require.True(t, ok, "expected a generator command")
	assert.Equal(t, "opn", gc.Spec.Code)
	assert.Equal(t, "opn.3", gc.CommandString)
	assert.Equal(t, []string{"dt"}, gc.Modifiers)
}

func TestParseGeneratorCommandWithFilter(t *testing.T) {
	cmd, err := Parse("opn?soho.2")
	require.NoError(t, err)

	gc := cmd.(GeneratorCommand)
	assert.Equal(t, "opn", gc.Spec.Code)
	assert.Equal(t, "opn?soho.2", gc.CommandString)
}

func TestParseGeneratorCommandBare(t *testing.T) {
	cmd, err := Parse("my")
	require.NoError(t, err)
	assert.Equal(t, "my", cmd.(GeneratorCommand).Spec.Code)
}

func TestParsePrefixCommandSimple(t *testing.T) {
	cmd, err := Parse("$details")
	require.NoError(t, err)

	pc := cmd.(PrefixCommand)
	assert.Equal(t, "$", pc.Spec.Symbol)
	assert.Equal(t, PrefixSimple, pc.Mode)
	assert.Equal(t, "details", pc.Name)
	assert.Empty(t, pc.Body)
}

func TestParsePrefixCommandExtended(t *testing.T) {
	cmd, err := Parse("$details:bxlog_soho_10012-abc det")
	require.NoError(t, err)

	pc := cmd.(PrefixCommand)
	assert.Equal(t, PrefixExtended, pc.Mode)
	assert.Equal(t, "details", pc.Name)
	assert.Equal(t, "bxlog_soho_10012-abc det", pc.Body)
}

func TestParseBarePrefixSymbolIsIncomplete(t *testing.T) {
	for _, symbol := range []string{"$", "&", "@"} {
		_, err := Parse(symbol)
		assert.True(t, errors.Is(err, ErrIncompletePrefixCommand), "symbol %q", symbol)
	}
}

func TestParseUnrecognized(t *testing.T) {
	for _, text := range []string{"", "   ", "zork", "what is this"} {
		_, err := Parse(text)
		var unrec *UnrecognizedCommandError
		assert.ErrorAs(t, err, &unrec, "text %q", text)
	}
}
