package command

import "strings"

// SysCommandSpec describes a system command: a short code, its synonyms,
// and whether the command only makes sense when addressed to a job tag.
type SysCommandSpec struct {
	Code        string
	Definition  string
	Synonyms    []string
	TagRequired bool
}

// GeneratorCommandSpec describes a command that produces an indexable,
// filterable list. The specifier separates the command code from a list
// extension ("opn.3"); the filter char introduces a filter expression
// ("opn?soho.2").
type GeneratorCommandSpec struct {
	Code       string
	Definition string
	Specifier  string
	FilterChar string
}

// PrefixCommandSpec describes a single-symbol command family. The delimiter
// splits the extended form into a name and a body ("$save:bxlog_... bid").
type PrefixCommandSpec struct {
	Symbol     string
	Delimiter  string
	Definition string
}

const (
	DefaultSpecifier  = "."
	DefaultFilterChar = "?"
)

var SystemCommands = map[string]SysCommandSpec{
	"hlp": {Code: "hlp", Definition: "list commands", Synonyms: []string{"help"}},
	"dut": {Code: "dut", Definition: "toggle duty status"},
	"bid": {Code: "bid", Definition: "bid on an open job", TagRequired: true},
	"acc": {Code: "acc", Definition: "accept a job you won", Synonyms: []string{"accept"}, TagRequired: true},
	"det": {Code: "det", Definition: "show job details", Synonyms: []string{"dt"}, TagRequired: true},
	"ert": {Code: "ert", Definition: "mark a job en route", Synonyms: []string{"enr"}},
	"fin": {Code: "fin", Definition: "mark a job finished", Synonyms: []string{"done"}},
	"can": {Code: "can", Definition: "cancel a job", Synonyms: []string{"cancel"}, TagRequired: true},
	"bst": {Code: "bst", Definition: "show bidding status", TagRequired: true},
}

var GeneratorCommands = map[string]GeneratorCommandSpec{
	"opn": {Code: "opn", Definition: "list open jobs", Specifier: DefaultSpecifier, FilterChar: DefaultFilterChar},
	"my":  {Code: "my", Definition: "list your current jobs", Specifier: DefaultSpecifier, FilterChar: DefaultFilterChar},
	"mac": {Code: "mac", Definition: "list your macros", Specifier: DefaultSpecifier, FilterChar: DefaultFilterChar},
}

var PrefixCommands = map[string]PrefixCommandSpec{
	"$": {Symbol: "$", Delimiter: ":", Definition: "define or run a macro"},
	"&": {Symbol: "&", Delimiter: ":", Definition: "set your handle"},
	"@": {Symbol: "@", Delimiter: ":", Definition: "send a message to a handle"},
}

// ResolveSystemCommand matches a lower-cased token against the system command
// table, either by code or by listed synonym.
func ResolveSystemCommand(name string) (SysCommandSpec, bool) {
	if spec, ok := SystemCommands[name]; ok {
		return spec, true
	}
	for _, spec := range SystemCommands {
		for _, syn := range spec.Synonyms {
			if syn == name {
				return spec, true
			}
		}
	}
	return SysCommandSpec{}, false
}

// ResolveGeneratorCommand matches the name portion of a token, which may be
// followed by a filter expression, a list extension, or both.
func ResolveGeneratorCommand(token string) (GeneratorCommandSpec, bool) {
	for _, spec := range GeneratorCommands {
		if token == spec.Code ||
			strings.HasPrefix(token, spec.Code+spec.Specifier) ||
			strings.HasPrefix(token, spec.Code+spec.FilterChar) {
			return spec, true
		}
	}
	return GeneratorCommandSpec{}, false
}
