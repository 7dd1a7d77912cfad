package dialog

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/binarymachines/bxlogic/internal/command"
)

// RenderFunc formats one list item for display at a 1-based index.
type RenderFunc func(index int, item string) string

// FilterFunc tests one item against a filter expression.
type FilterFunc func(item, expr string) bool

var (
	posIntRx = regexp.MustCompile(`^[0-9]+$`)
	negIntRx = regexp.MustCompile(`^-[0-9]+$`)
	rangeRx  = regexp.MustCompile(`^[0-9]+-[0-9]+$`)
)

// ListResponder is the shared pagination/filter/chaining engine behind
// every generator command. Given the command string's sub-grammar
// (<code>[<filterchar><expr>][<specifier><extension>]) and a concrete
// ordered item list, it renders the selection -- or, when a selection is
// followed by modifier tokens, synthesizes a chained command from the
// selected element and re-dispatches it through the engine.
type ListResponder struct {
	Spec         command.GeneratorCommandSpec
	SingularNoun string
	PluralNoun   string
}

func (lr *ListResponder) Generate(ctx context.Context, eng *Engine, cmd command.GeneratorCommand, items []string, render RenderFunc, filter FilterFunc, dctx *Context) string {
	rest := strings.TrimPrefix(cmd.CommandString, lr.Spec.Code)

	filterExpr := "*"
	if strings.HasPrefix(rest, lr.Spec.FilterChar) {
		rest = rest[len(lr.Spec.FilterChar):]
		if idx := strings.Index(rest, lr.Spec.Specifier); idx >= 0 {
			filterExpr = rest[:idx]
			rest = rest[idx:]
		} else {
			filterExpr = rest
			rest = ""
		}
	}

	if filterExpr != "*" && filterExpr != "" && filter != nil {
		filtered := make([]string, 0, len(items))
		for _, item := range items {
			if filter(item, filterExpr) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	if rest == "" {
		if len(items) == 0 {
			return fmt.Sprintf("There are no %s to list.", lr.PluralNoun)
		}
		lines := make([]string, 0, len(items))
		for i, item := range items {
			lines = append(lines, render(i+1, item))
		}
		return strings.Join(lines, "\n")
	}

	ext := strings.TrimPrefix(rest, lr.Spec.Specifier)

	switch {
	case posIntRx.MatchString(ext):
		return lr.positiveIndex(ctx, eng, cmd, items, render, ext, dctx)
	case negIntRx.MatchString(ext):
		return lr.negativeIndex(ctx, eng, cmd, items, render, ext, dctx)
	case rangeRx.MatchString(ext):
		return lr.indexRange(ctx, eng, cmd, items, render, ext, dctx)
	default:
		return fmt.Sprintf("The list extension %q is not recognized. Use a number, a negative number, or a range A-B.", ext)
	}
}

func (lr *ListResponder) zerothElementMsg() string {
	return "You may not request the 0th element of a list. (Nice try, C programmers.)"
}

func (lr *ListResponder) positiveIndex(ctx context.Context, eng *Engine, cmd command.GeneratorCommand, items []string, render RenderFunc, ext string, dctx *Context) string {
	index, _ := strconv.Atoi(ext)
	if index == 0 {
		return lr.zerothElementMsg()
	}
	if index > len(items) {
		return fmt.Sprintf("You requested %s #%d, but there are only %d %s in this list.",
			lr.SingularNoun, index, len(items), lr.PluralNoun)
	}

	element := items[index-1]
	if len(cmd.Modifiers) == 0 {
		return render(1, element)
	}
	return lr.chain(ctx, eng, element, cmd.Modifiers, dctx)
}

func (lr *ListResponder) negativeIndex(ctx context.Context, eng *Engine, cmd command.GeneratorCommand, items []string, render RenderFunc, ext string, dctx *Context) string {
	offset, _ := strconv.Atoi(ext)
	if offset == 0 {
		return fmt.Sprintf("-0 is not a valid negative index. Use -1 to specify the last %s in the list.", lr.SingularNoun)
	}

	index := len(items) + offset
	if index < 0 {
		return fmt.Sprintf("You specified a negative list offset (%d), but there are only %d %s in the list.",
			offset, len(items), lr.PluralNoun)
	}

	element := items[index]
	if len(cmd.Modifiers) == 0 {
		return render(1, element)
	}
	return lr.chain(ctx, eng, element, cmd.Modifiers, dctx)
}

func (lr *ListResponder) indexRange(ctx context.Context, eng *Engine, cmd command.GeneratorCommand, items []string, render RenderFunc, ext string, dctx *Context) string {
	bounds := strings.SplitN(ext, "-", 2)
	min, _ := strconv.Atoi(bounds[0])
	max, _ := strconv.Atoi(bounds[1])

	if min > max {
		return "The first number in your range specification A-B must be less than or equal to the second number."
	}
	if max > len(items) {
		return fmt.Sprintf("There are only %d %s in this list.", len(items), lr.PluralNoun)
	}
	if min == 0 {
		return lr.zerothElementMsg()
	}

	lines := make([]string, 0, max-min+1)
	if len(cmd.Modifiers) == 0 {
		for i := min; i <= max; i++ {
			lines = append(lines, render(i, items[i-1]))
		}
		return strings.Join(lines, "\n")
	}

	// with modifiers, chain every element in the range independently
	for i := min; i <= max; i++ {
		lines = append(lines, lr.chain(ctx, eng, items[i-1], cmd.Modifiers, dctx))
	}
	return strings.Join(lines, "\n\n")
}

// chain builds a new command string from a selected element and the trailing
// modifiers, then re-parses and re-dispatches it one level deeper.
func (lr *ListResponder) chain(ctx context.Context, eng *Engine, element string, modifiers []string, dctx *Context) string {
	tokens := append([]string{element}, modifiers...)
	cmdString := strings.Join(tokens, " ")

	chained, err := command.Parse(cmdString)
	if err != nil {
		return fmt.Sprintf("The chained command %q is not recognized.", cmdString)
	}
	return eng.Reply(ctx, chained, dctx.Child())
}
