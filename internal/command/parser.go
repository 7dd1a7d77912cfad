package command

import (
	"errors"
	"fmt"
	"strings"
)

// Command is one of SystemCommand, GeneratorCommand, or PrefixCommand.
type Command interface {
	isCommand()
}

// SystemCommand is a resolved system-table command, optionally addressed to a
// job tag, with any trailing tokens carried as modifiers.
type SystemCommand struct {
	Spec      SysCommandSpec
	JobTag    string
	Modifiers []string
}

// GeneratorCommand carries the full first token (code plus any filter
// expression and list extension) so the list responder can apply its
// sub-grammar, with trailing tokens as chain modifiers.
type GeneratorCommand struct {
	Spec          GeneratorCommandSpec
	CommandString string
	Modifiers     []string
}

type PrefixMode int

const (
	PrefixSimple PrefixMode = iota
	PrefixExtended
)

// PrefixCommand is a single-symbol command. In extended mode the remainder is
// split at the symbol's delimiter into a name and a body.
type PrefixCommand struct {
	Spec PrefixCommandSpec
	Mode PrefixMode
	Name string
	Body string
}

func (SystemCommand) isCommand()    {}
func (GeneratorCommand) isCommand() {}
func (PrefixCommand) isCommand()    {}

// ErrIncompletePrefixCommand is returned when a message consists of a
// registered prefix symbol and nothing else.
var ErrIncompletePrefixCommand = errors.New("incomplete prefix command")

// UnrecognizedCommandError is a parse failure for text that matches no
// command family. It is user-recoverable; callers reply with help text.
type UnrecognizedCommandError struct {
	Text string
}

func (e *UnrecognizedCommandError) Error() string {
	return fmt.Sprintf("unrecognized command: %q", e.Text)
}

// Parse turns raw (already percent-decoded) message text into a typed
// command. The grammar is evaluated in order: tagged command, prefix
// command, generator command, bare system command.
func Parse(raw string) (Command, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &UnrecognizedCommandError{Text: raw}
	}

	if HasTagPrefix(text) {
		return parseTagged(text)
	}

	if spec, ok := PrefixCommands[string(text[0])]; ok {
		return parsePrefix(spec, text)
	}

	tokens := strings.Fields(text)
	head := strings.ToLower(tokens[0])

	if spec, ok := ResolveGeneratorCommand(head); ok {
		return GeneratorCommand{
			Spec:          spec,
			CommandString: head,
			Modifiers:     tokens[1:],
		}, nil
	}

	if spec, ok := ResolveSystemCommand(head); ok {
		return SystemCommand{Spec: spec, Modifiers: tokens[1:]}, nil
	}

	return nil, &UnrecognizedCommandError{Text: text}
}

func parseTagged(text string) (Command, error) {
	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return nil, &UnrecognizedCommandError{Text: text}
	}

	name := strings.ToLower(tokens[1])
	spec, ok := ResolveSystemCommand(name)
	if !ok {
		return nil, &UnrecognizedCommandError{Text: text}
	}

	return SystemCommand{
		Spec:      spec,
		JobTag:    tokens[0],
		Modifiers: tokens[2:],
	}, nil
}

func parsePrefix(spec PrefixCommandSpec, text string) (Command, error) {
	remainder := text[1:]
	if strings.TrimSpace(remainder) == "" {
		return nil, ErrIncompletePrefixCommand
	}

	if name, body, found := strings.Cut(remainder, spec.Delimiter); found {
		return PrefixCommand{
			Spec: spec,
			Mode: PrefixExtended,
			Name: name,
			Body: body,
		}, nil
	}

	return PrefixCommand{Spec: spec, Mode: PrefixSimple, Name: remainder}, nil
}
