// Package responder binds the text-command grammar to the job-bidding state
// machine: it resolves the sender, parses their message, and dispatches the
// typed command through the dialog engine to a reply string.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/command"
	"github.com/binarymachines/bxlogic/internal/dialog"
	"github.com/binarymachines/bxlogic/internal/metrics"
)

const (
	unknownNumberReply = "We don't recognize this number. If you're a courier, contact dispatch to get signed up."
	apologyReply       = "Sorry -- something went wrong on our end handling that. Dispatch has been notified."
)

type Responder struct {
	svc    *bidding.Service
	repo   *bidding.Repo
	engine *dialog.Engine
	stats  *metrics.Collector
}

func New(svc *bidding.Service, stats *metrics.Collector) *Responder {
	r := &Responder{
		svc:    svc,
		repo:   svc.Repo(),
		engine: dialog.NewEngine(),
		stats:  stats,
	}
	r.registerHandlers()
	return r
}

func (r *Responder) Engine() *dialog.Engine { return r.engine }

var nonDigitRx = regexp.MustCompile(`[^0-9]`)

// NormalizeNumber reduces a phone number to ten digits, dropping any
// country-code prefix and punctuation.
func NormalizeNumber(raw string) string {
	digits := nonDigitRx.ReplaceAllString(raw, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return digits
}

// HandleMessage turns one inbound text into one reply. Every path returns a
// string; parse failures come back as help text, guard violations as their
// user-facing sentence, and anything unexpected as a generic apology.
func (r *Responder) HandleMessage(ctx context.Context, fromNumber, body string) string {
	mobile := NormalizeNumber(fromNumber)

	courier, err := r.repo.CourierByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return unknownNumberReply
		}
		log.Printf("responder: courier lookup for %s failed: %v", mobile, err)
		return apologyReply
	}

	cmd, err := command.Parse(body)
	if err != nil {
		r.stats.ParseFailed()
		if errors.Is(err, command.ErrIncompletePrefixCommand) {
			return "That prefix needs more. " + r.helpText()
		}
		return "We didn't recognize that command.\n" + r.helpText()
	}

	r.stats.CommandDispatched(commandFamily(cmd))

	dctx := &dialog.Context{Courier: courier, Mobile: mobile, RawMessage: body}
	return r.engine.Reply(ctx, cmd, dctx)
}

func commandFamily(cmd command.Command) string {
	switch cmd.(type) {
	case command.SystemCommand:
		return "system"
	case command.GeneratorCommand:
		return "generator"
	case command.PrefixCommand:
		return "prefix"
	default:
		return "unknown"
	}
}

// replyFor maps a state-machine error to reply text: guard violations carry
// their own sentence, everything else gets the apology and an operator log
// line.
func (r *Responder) replyFor(err error) string {
	var guard *bidding.GuardError
	if errors.As(err, &guard) {
		return guard.Error()
	}
	log.Printf("responder: %v", err)
	return apologyReply
}

func (r *Responder) helpText() string {
	lines := []string{"Commands:"}

	sysCodes := make([]string, 0, len(command.SystemCommands))
	for code := range command.SystemCommands {
		sysCodes = append(sysCodes, code)
	}
	sort.Strings(sysCodes)
	for _, code := range sysCodes {
		lines = append(lines, fmt.Sprintf("%s -- %s", code, command.SystemCommands[code].Definition))
	}

	genCodes := make([]string, 0, len(command.GeneratorCommands))
	for code := range command.GeneratorCommands {
		genCodes = append(genCodes, code)
	}
	sort.Strings(genCodes)
	for _, code := range genCodes {
		lines = append(lines, fmt.Sprintf("%s -- %s", code, command.GeneratorCommands[code].Definition))
	}

	symbols := make([]string, 0, len(command.PrefixCommands))
	for sym := range command.PrefixCommands {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		lines = append(lines, fmt.Sprintf("%s -- %s", sym, command.PrefixCommands[sym].Definition))
	}

	return strings.Join(lines, "\n")
}
