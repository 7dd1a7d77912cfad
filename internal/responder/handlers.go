package responder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/command"
	"github.com/binarymachines/bxlogic/internal/dialog"
)

func (r *Responder) registerHandlers() {
	r.engine.RegisterSystem("hlp", r.handleHelp)
	r.engine.RegisterSystem("dut", r.handleDuty)
	r.engine.RegisterSystem("bid", r.handleBid)
	r.engine.RegisterSystem("det", r.handleDetails)
	r.engine.RegisterSystem("acc", r.handleAccept)
	r.engine.RegisterSystem("ert", r.handleEnRoute)
	r.engine.RegisterSystem("fin", r.handleFinish)
	r.engine.RegisterSystem("can", r.handleCancel)
	r.engine.RegisterSystem("bst", r.handleBiddingStatus)

	r.engine.RegisterGenerator("opn", r.handleOpenJobs)
	r.engine.RegisterGenerator("my", r.handleMyJobs)
	r.engine.RegisterGenerator("mac", r.handleMacroList)

	r.engine.RegisterPrefix("$", r.handleMacro)
	r.engine.RegisterPrefix("&", r.handleSetHandle)
	r.engine.RegisterPrefix("@", r.handleSendLog)
}

// --- system commands ---

func (r *Responder) handleHelp(_ context.Context, _ *dialog.Engine, _ command.SystemCommand, _ *dialog.Context) string {
	return r.helpText()
}

func (r *Responder) handleDuty(ctx context.Context, _ *dialog.Engine, _ command.SystemCommand, dctx *dialog.Context) string {
	on, err := r.svc.ToggleDuty(ctx, dctx.Courier)
	if err != nil {
		return r.replyFor(err)
	}
	if on {
		return "You are now on duty and will receive broadcast job notices."
	}
	return "You are now off duty. Text \"dut\" again to come back on."
}

func (r *Responder) handleBid(ctx context.Context, _ *dialog.Engine, cmd command.SystemCommand, dctx *dialog.Context) string {
	_, promoted, err := r.svc.Bid(ctx, dctx.Courier, cmd.JobTag)
	if err != nil {
		return r.replyFor(err)
	}
	r.stats.BidRecorded()

	reply := fmt.Sprintf("Your bid for the job %s is in. Good luck!", cmd.JobTag)
	if promoted {
		reply += " You were off duty, so we've marked you back on."
	}
	return reply
}

func (r *Responder) handleDetails(ctx context.Context, _ *dialog.Engine, cmd command.SystemCommand, _ *dialog.Context) string {
	if cmd.JobTag == "" {
		return "Text a job tag, a space, and \"det\" to see that job's details."
	}

	job, err := r.repo.JobByTag(ctx, cmd.JobTag)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Sprintf("We don't show a job with the tag %s.", cmd.JobTag)
		}
		return r.replyFor(err)
	}

	current, err := r.repo.CurrentStatus(ctx, cmd.JobTag)
	if err != nil {
		return r.replyFor(err)
	}

	lines := []string{
		fmt.Sprintf("Job %s [%s]", job.JobTag, current.Status),
		fmt.Sprintf("pickup: %s, %s %s", job.PickupAddress, job.PickupBorough, job.PickupZip),
		fmt.Sprintf("deliver: %s, %s %s", job.DeliveryAddress, job.DeliveryBorough, job.DeliveryZip),
		fmt.Sprintf("items: %s", job.Items),
		fmt.Sprintf("payment: %s", job.PaymentMethod),
	}
	return strings.Join(lines, "\n")
}

func (r *Responder) handleAccept(ctx context.Context, _ *dialog.Engine, cmd command.SystemCommand, dctx *dialog.Context) string {
	assignment, err := r.svc.Accept(ctx, dctx.Courier, cmd.JobTag)
	if err != nil {
		return r.replyFor(err)
	}
	return fmt.Sprintf("You've accepted the job %s. It's yours -- text \"ert\" when you're en route.", assignment.JobTag)
}

func (r *Responder) handleEnRoute(ctx context.Context, _ *dialog.Engine, cmd command.SystemCommand, dctx *dialog.Context) string {
	tag, err := r.svc.EnRoute(ctx, dctx.Courier, cmd.JobTag)
	if err != nil {
		return r.replyFor(err)
	}
	return fmt.Sprintf("The job %s is marked in progress. Safe travels!", tag)
}

func (r *Responder) handleFinish(ctx context.Context, _ *dialog.Engine, cmd command.SystemCommand, dctx *dialog.Context) string {
	tag, err := r.svc.Finish(ctx, dctx.Courier, cmd.JobTag)
	if err != nil {
		return r.replyFor(err)
	}
	return fmt.Sprintf("The job %s is marked complete. Nice work!", tag)
}

func (r *Responder) handleCancel(_ context.Context, _ *dialog.Engine, _ command.SystemCommand, _ *dialog.Context) string {
	return "Canceling a job by text isn't supported yet. Contact dispatch directly."
}

func (r *Responder) handleBiddingStatus(_ context.Context, _ *dialog.Engine, _ command.SystemCommand, _ *dialog.Context) string {
	return "Bidding status lookups aren't supported yet."
}

// --- generator commands ---

func renderNumberedItem(index int, item string) string {
	return fmt.Sprintf("%d. %s", index, item)
}

func filterBySubstring(item, expr string) bool {
	return strings.Contains(item, strings.ToLower(expr))
}

func (r *Responder) generatorReply(ctx context.Context, eng *dialog.Engine, cmd command.GeneratorCommand, dctx *dialog.Context, items []string, singular, plural string) string {
	lr := &dialog.ListResponder{Spec: cmd.Spec, SingularNoun: singular, PluralNoun: plural}
	return lr.Generate(ctx, eng, cmd, items, renderNumberedItem, filterBySubstring, dctx)
}

func (r *Responder) handleOpenJobs(ctx context.Context, eng *dialog.Engine, cmd command.GeneratorCommand, dctx *dialog.Context) string {
	tags, err := r.repo.OpenJobTags(ctx)
	if err != nil {
		return r.replyFor(err)
	}
	return r.generatorReply(ctx, eng, cmd, dctx, tags, "open job", "open jobs")
}

func (r *Responder) handleMyJobs(ctx context.Context, eng *dialog.Engine, cmd command.GeneratorCommand, dctx *dialog.Context) string {
	tags, err := r.repo.LiveAssignmentTags(ctx, dctx.Courier.ID)
	if err != nil {
		return r.replyFor(err)
	}
	return r.generatorReply(ctx, eng, cmd, dctx, tags, "job", "jobs")
}

func (r *Responder) handleMacroList(ctx context.Context, eng *dialog.Engine, cmd command.GeneratorCommand, dctx *dialog.Context) string {
	names, err := r.repo.MacroNames(ctx, dctx.Courier.ID)
	if err != nil {
		return r.replyFor(err)
	}
	return r.generatorReply(ctx, eng, cmd, dctx, names, "macro", "macros")
}

// --- prefix commands ---

const macroUsage = "To save a macro, text $name:command. To run one, text $name."

func (r *Responder) handleMacro(ctx context.Context, eng *dialog.Engine, cmd command.PrefixCommand, dctx *dialog.Context) string {
	name := strings.TrimSpace(cmd.Name)

	if cmd.Mode == command.PrefixExtended {
		body := strings.TrimSpace(cmd.Body)
		if name == "" || body == "" {
			return macroUsage
		}
		err := r.repo.SaveMacro(ctx, &bidding.UserMacro{
			CourierID:     dctx.Courier.ID,
			Name:          name,
			CommandString: body,
		})
		if err != nil {
			return r.replyFor(err)
		}
		return fmt.Sprintf("Macro $%s saved. Text $%s to run it.", name, name)
	}

	macro, err := r.repo.MacroByName(ctx, dctx.Courier.ID, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Sprintf("You don't have a macro named $%s. %s", name, macroUsage)
		}
		return r.replyFor(err)
	}

	expanded, err := command.Parse(macro.CommandString)
	if err != nil {
		return fmt.Sprintf("Your macro $%s holds %q, which isn't a recognized command.", name, macro.CommandString)
	}
	return eng.Reply(ctx, expanded, dctx.Child())
}

var handleRx = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

func (r *Responder) handleSetHandle(ctx context.Context, _ *dialog.Engine, cmd command.PrefixCommand, dctx *dialog.Context) string {
	if cmd.Mode != command.PrefixSimple {
		return "To set your handle, text & followed by the handle, like &swiftone."
	}
	handle := strings.TrimSpace(cmd.Name)
	if !handleRx.MatchString(handle) {
		return "Handles are letters, numbers, dashes, and underscores only."
	}

	if err := r.svc.SetHandle(ctx, dctx.Courier, handle); err != nil {
		return r.replyFor(err)
	}
	return fmt.Sprintf("You are now @%s. Other couriers can reach you with @%s:message.", handle, handle)
}

func (r *Responder) handleSendLog(ctx context.Context, _ *dialog.Engine, cmd command.PrefixCommand, dctx *dialog.Context) string {
	if cmd.Mode != command.PrefixExtended {
		return "To send a message, text @handle:your message."
	}

	toHandle := strings.TrimSpace(cmd.Name)
	text := strings.TrimSpace(cmd.Body)
	if toHandle == "" || text == "" {
		return "To send a message, text @handle:your message."
	}

	target, err := r.svc.LogMessage(ctx, dctx.Courier, toHandle, text)
	if err != nil {
		return r.replyFor(err)
	}
	return fmt.Sprintf("Your message has been logged for @%s (%s).", toHandle, target.FirstName)
}
