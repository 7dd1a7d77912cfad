package dialog

import (
	"context"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/command"
)

// MaxChainDepth bounds recursive dispatch through list chaining and macro
// expansion, so a self-referential macro terminates instead of looping.
const MaxChainDepth = 5

// NoHandlerReply is returned when a recognized command code has no handler
// registered. That is a deployment gap, not a user error.
const NoHandlerReply = "That command is registered but not wired up yet. Dispatch has been notified."

// ChainDepthReply is returned when a command chain exceeds MaxChainDepth.
const ChainDepthReply = "That command chains too deeply -- stopping here."

// Context is the read-only dialog state handed to every handler: the
// resolved courier, their normalized number, and the original message.
type Context struct {
	Courier    *bidding.Courier
	Mobile     string
	RawMessage string

	depth int
}

// Child derives a context for one level of chained or macro-expanded
// dispatch.
func (c *Context) Child() *Context {
	child := *c
	child.depth++
	return &child
}

type SystemHandler func(ctx context.Context, eng *Engine, cmd command.SystemCommand, dctx *Context) string

type GeneratorHandler func(ctx context.Context, eng *Engine, cmd command.GeneratorCommand, dctx *Context) string

type PrefixHandler func(ctx context.Context, eng *Engine, cmd command.PrefixCommand, dctx *Context) string

// Engine routes typed commands to handlers through three independent
// lookup tables, populated once at startup and never mutated per-request.
type Engine struct {
	system     map[string]SystemHandler
	generators map[string]GeneratorHandler
	prefixes   map[string]PrefixHandler
}

func NewEngine() *Engine {
	return &Engine{
		system:     make(map[string]SystemHandler),
		generators: make(map[string]GeneratorHandler),
		prefixes:   make(map[string]PrefixHandler),
	}
}

func (e *Engine) RegisterSystem(code string, h SystemHandler) {
	e.system[code] = h
}

func (e *Engine) RegisterGenerator(code string, h GeneratorHandler) {
	e.generators[code] = h
}

func (e *Engine) RegisterPrefix(symbol string, h PrefixHandler) {
	e.prefixes[symbol] = h
}

// Reply routes one typed command to its handler and returns the reply text.
// Every path returns a string; nothing here is fatal.
func (e *Engine) Reply(ctx context.Context, cmd command.Command, dctx *Context) string {
	if dctx.depth > MaxChainDepth {
		return ChainDepthReply
	}

	switch c := cmd.(type) {
	case command.SystemCommand:
		h, ok := e.system[c.Spec.Code]
		if !ok {
			return NoHandlerReply
		}
		return h(ctx, e, c, dctx)
	case command.GeneratorCommand:
		h, ok := e.generators[c.Spec.Code]
		if !ok {
			return NoHandlerReply
		}
		return h(ctx, e, c, dctx)
	case command.PrefixCommand:
		h, ok := e.prefixes[c.Spec.Symbol]
		if !ok {
			return NoHandlerReply
		}
		return h(ctx, e, c, dctx)
	default:
		return NoHandlerReply
	}
}
