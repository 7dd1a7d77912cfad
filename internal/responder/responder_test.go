package responder

import (
	"context"
	"fmt"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/dialog"
	"github.com/binarymachines/bxlogic/internal/metrics"
	"github.com/binarymachines/bxlogic/internal/sms"
)

func newTestResponder(t *testing.T) (*Responder, *bidding.Service, *bidding.Repo, *sms.MemorySender) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(bidding.Entities()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	repo := bidding.NewRepo(db)
	sender := sms.NewMemorySender()
	svc := bidding.NewService(db, repo, sender)
	return New(svc, metrics.NewCollector(nil)), svc, repo, sender
}

func seedCourier(t *testing.T, repo *bidding.Repo, first, mobile string, duty int) *bidding.Courier {
	t.Helper()
	c := &bidding.Courier{FirstName: first, LastName: "Tester", MobileNumber: mobile, DutyStatus: duty}
	if err := repo.CreateCourier(context.Background(), c); err != nil {
		t.Fatalf("seed courier: %v", err)
	}
	return c
}

func seedJob(t *testing.T, svc *bidding.Service) *bidding.Job {
	t.Helper()
	job := &bidding.Job{
		PickupAddress:   "1 Spring St",
		PickupBorough:   "Manhattan",
		PickupZip:       "10012",
		DeliveryAddress: "99 Prince St",
		DeliveryBorough: "SoHo",
		DeliveryZip:     "10012",
		PaymentMethod:   "cash",
		Items:           "1 envelope",
	}
	policy := bidding.WindowPolicy{LimitType: bidding.LimitTypeNumBids, Limit: 3}
	if err := svc.CreateJob(context.Background(), job, policy); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

// awardToFirstBidder closes the tag's window and stamps the earliest bid as
// the winner, standing in for the sweeper.
func awardToFirstBidder(t *testing.T, svc *bidding.Service, repo *bidding.Repo, tag string) {
	t.Helper()
	ctx := context.Background()
	window, err := repo.OpenWindowForTag(ctx, tag)
	if err != nil {
		t.Fatalf("open window lookup: %v", err)
	}
	bids, err := repo.ActiveBidsForTag(ctx, tag)
	if err != nil {
		t.Fatalf("active bids: %v", err)
	}
	if len(bids) == 0 {
		t.Fatalf("no bids to award for %s", tag)
	}
	if err := svc.Award(ctx, window.ID, bids[:1]); err != nil {
		t.Fatalf("award: %v", err)
	}
}

func TestUnknownNumberGetsSignupReply(t *testing.T) {
	r, _, _, _ := newTestResponder(t)
	got := r.HandleMessage(context.Background(), "+19175550000", "hlp")
	if got != unknownNumberReply {
		t.Fatalf("unknown number reply: %q", got)
	}
}

func TestNormalizeNumber(t *testing.T) {
	cases := map[string]string{
		"+19175550100":   "9175550100",
		"(917) 555-0100": "9175550100",
		"9175550100":     "9175550100",
		"19175550100":    "9175550100",
	}
	for raw, want := range cases {
		if got := NormalizeNumber(raw); got != want {
			t.Fatalf("NormalizeNumber(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestHelpListsEveryCommand(t *testing.T) {
	r, _, repo, _ := newTestResponder(t)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	got := r.HandleMessage(context.Background(), "9175550100", "help")
	for _, code := range []string{"hlp", "dut", "bid", "acc", "det", "ert", "fin", "can", "bst", "opn", "my", "mac", "$", "&", "@"} {
		if !strings.Contains(got, code+" -- ") {
			t.Fatalf("help text missing %q:\n%s", code, got)
		}
	}
}

func TestUnparseableMessageReturnsHelp(t *testing.T) {
	r, _, repo, _ := newTestResponder(t)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	got := r.HandleMessage(context.Background(), "9175550100", "xyzzy plugh")
	if !strings.HasPrefix(got, "We didn't recognize that command.") {
		t.Fatalf("expected help fallback, got %q", got)
	}
}

func TestDutyToggleRoundTrip(t *testing.T) {
	r, _, repo, _ := newTestResponder(t)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOff)

	got := r.HandleMessage(context.Background(), "9175550100", "dut")
	if !strings.Contains(got, "on duty") {
		t.Fatalf("first toggle: %q", got)
	}
	got = r.HandleMessage(context.Background(), "9175550100", "dut")
	if !strings.Contains(got, "off duty") {
		t.Fatalf("second toggle: %q", got)
	}
}

func TestDuplicateBidIsIdempotent(t *testing.T) {
	r, svc, repo, _ := newTestResponder(t)
	job := seedJob(t, svc)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	first := r.HandleMessage(context.Background(), "9175550100", job.JobTag+" bid")
	if !strings.Contains(first, "Your bid for the job "+job.JobTag+" is in.") {
		t.Fatalf("first bid reply: %q", first)
	}

	second := r.HandleMessage(context.Background(), "9175550100", job.JobTag+" bid")
	want := fmt.Sprintf("You have already bid on the job: %s. Hang tight -- we'll let you know if it's yours.", job.JobTag)
	if second != want {
		t.Fatalf("duplicate bid reply: %q", second)
	}

	bids, err := repo.ActiveBidsForTag(context.Background(), job.JobTag)
	if err != nil {
		t.Fatalf("active bids: %v", err)
	}
	if len(bids) != 1 {
		t.Fatalf("expected a single bid row, got %d", len(bids))
	}
}

func TestOffDutyBidderIsPromoted(t *testing.T) {
	r, svc, repo, _ := newTestResponder(t)
	job := seedJob(t, svc)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOff)

	got := r.HandleMessage(context.Background(), "9175550100", job.JobTag+" bid")
	if !strings.Contains(got, "marked you back on") {
		t.Fatalf("expected promotion notice, got %q", got)
	}
}

func TestAcceptRefusedWhileWindowOpen(t *testing.T) {
	r, svc, repo, _ := newTestResponder(t)
	job := seedJob(t, svc)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	r.HandleMessage(context.Background(), "9175550100", job.JobTag+" bid")
	got := r.HandleMessage(context.Background(), "9175550100", job.JobTag+" acc")
	if got != "Sorry -- the bidding window for this job is still open." {
		t.Fatalf("early accept reply: %q", got)
	}
}

func TestAwardThenAcceptCreatesAssignment(t *testing.T) {
	r, svc, repo, sender := newTestResponder(t)
	job := seedJob(t, svc)
	courier := seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	r.HandleMessage(context.Background(), "9175550100", job.JobTag+" bid")
	awardToFirstBidder(t, svc, repo, job.JobTag)

	sent := sender.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Body, "you have been awarded the delivery job with tag "+job.JobTag) {
		t.Fatalf("award notice not sent: %+v", sent)
	}

	got := r.HandleMessage(context.Background(), "9175550100", job.JobTag+" acc")
	if !strings.Contains(got, "You've accepted the job "+job.JobTag) {
		t.Fatalf("accept reply: %q", got)
	}

	tags, err := repo.LiveAssignmentTags(context.Background(), courier.ID)
	if err != nil {
		t.Fatalf("live assignments: %v", err)
	}
	if len(tags) != 1 || tags[0] != job.JobTag {
		t.Fatalf("expected one live assignment for %s, got %v", job.JobTag, tags)
	}
}

func TestEnRouteAndFinishWithInferredTag(t *testing.T) {
	r, svc, repo, _ := newTestResponder(t)
	job := seedJob(t, svc)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	r.HandleMessage(context.Background(), "9175550100", job.JobTag+" bid")
	awardToFirstBidder(t, svc, repo, job.JobTag)
	r.HandleMessage(context.Background(), "9175550100", job.JobTag+" acc")

	got := r.HandleMessage(context.Background(), "9175550100", "ert")
	if !strings.Contains(got, "The job "+job.JobTag+" is marked in progress.") {
		t.Fatalf("ert reply: %q", got)
	}

	got = r.HandleMessage(context.Background(), "9175550100", "fin")
	if !strings.Contains(got, "The job "+job.JobTag+" is marked complete.") {
		t.Fatalf("fin reply: %q", got)
	}

	// after completion there is no live assignment left to infer
	got = r.HandleMessage(context.Background(), "9175550100", "ert")
	if got != "You don't have any current jobs in the system." {
		t.Fatalf("post-completion ert reply: %q", got)
	}
}

func TestOpenJobsListingAndChaining(t *testing.T) {
	r, svc, repo, _ := newTestResponder(t)
	job := seedJob(t, svc)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	got := r.HandleMessage(context.Background(), "9175550100", "opn")
	if got != "1. "+job.JobTag {
		t.Fatalf("opn listing: %q", got)
	}

	// selecting an element and appending a system command chains into it
	got = r.HandleMessage(context.Background(), "9175550100", "opn.1 det")
	if !strings.HasPrefix(got, "Job "+job.JobTag+" [broadcast]") {
		t.Fatalf("chained detail reply: %q", got)
	}

	got = r.HandleMessage(context.Background(), "9175550100", "opn.1 bid")
	if !strings.Contains(got, "Your bid for the job "+job.JobTag+" is in.") {
		t.Fatalf("chained bid reply: %q", got)
	}
}

func TestNegativeIndexSelectsFromListEnd(t *testing.T) {
	r, svc, repo, _ := newTestResponder(t)
	var tags []string
	for i := 0; i < 4; i++ {
		tags = append(tags, seedJob(t, svc).JobTag)
	}
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	got := r.HandleMessage(context.Background(), "9175550100", "opn.-1")
	if got != "1. "+tags[3] {
		t.Fatalf("opn.-1 reply: %q, want last of %v", got, tags)
	}

	got = r.HandleMessage(context.Background(), "9175550100", "opn.-5")
	if !strings.Contains(got, "negative list offset (-5)") {
		t.Fatalf("out-of-range negative reply: %q", got)
	}

	got = r.HandleMessage(context.Background(), "9175550100", "opn.0")
	if !strings.Contains(got, "0th element") {
		t.Fatalf("zeroth reply: %q", got)
	}
}

func TestMacroDefineAndRun(t *testing.T) {
	r, svc, repo, _ := newTestResponder(t)
	job := seedJob(t, svc)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	got := r.HandleMessage(context.Background(), "9175550100", "$jobs:opn")
	if !strings.Contains(got, "Macro $jobs saved.") {
		t.Fatalf("macro save reply: %q", got)
	}

	got = r.HandleMessage(context.Background(), "9175550100", "$jobs")
	if got != "1. "+job.JobTag {
		t.Fatalf("macro run reply: %q", got)
	}

	got = r.HandleMessage(context.Background(), "9175550100", "mac")
	if got != "1. jobs" {
		t.Fatalf("mac listing: %q", got)
	}

	got = r.HandleMessage(context.Background(), "9175550100", "$missing")
	if !strings.Contains(got, "You don't have a macro named $missing.") {
		t.Fatalf("missing macro reply: %q", got)
	}
}

func TestSelfReferentialMacroStopsAtDepthLimit(t *testing.T) {
	r, _, repo, _ := newTestResponder(t)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	r.HandleMessage(context.Background(), "9175550100", "$loop:$loop")
	got := r.HandleMessage(context.Background(), "9175550100", "$loop")
	if got != dialog.ChainDepthReply {
		t.Fatalf("self-referential macro reply: %q", got)
	}
}

func TestHandleRegistrationAndMessaging(t *testing.T) {
	r, _, repo, _ := newTestResponder(t)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)
	seedCourier(t, repo, "Yolanda", "9175550200", bidding.DutyOn)

	got := r.HandleMessage(context.Background(), "9175550100", "&swift")
	if !strings.Contains(got, "You are now @swift.") {
		t.Fatalf("handle set reply: %q", got)
	}

	got = r.HandleMessage(context.Background(), "9175550200", "@swift:package is at the front desk")
	if !strings.Contains(got, "logged for @swift (Xavier)") {
		t.Fatalf("message reply: %q", got)
	}

	got = r.HandleMessage(context.Background(), "9175550200", "@ghost:anyone home")
	if got != "Nobody here goes by the handle @ghost." {
		t.Fatalf("unknown handle reply: %q", got)
	}

	// re-registering moves the handle to the new courier
	got = r.HandleMessage(context.Background(), "9175550200", "&swift2")
	if !strings.Contains(got, "You are now @swift2.") {
		t.Fatalf("second handle reply: %q", got)
	}
}

func TestCancelAndBidStatusAreStubbed(t *testing.T) {
	r, svc, repo, _ := newTestResponder(t)
	job := seedJob(t, svc)
	seedCourier(t, repo, "Xavier", "9175550100", bidding.DutyOn)

	got := r.HandleMessage(context.Background(), "9175550100", job.JobTag+" can")
	if !strings.Contains(got, "isn't supported yet") {
		t.Fatalf("can reply: %q", got)
	}
	got = r.HandleMessage(context.Background(), "9175550100", job.JobTag+" bst")
	if !strings.Contains(got, "aren't supported yet") {
		t.Fatalf("bst reply: %q", got)
	}
}
