package sweep

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/metrics"
	"github.com/binarymachines/bxlogic/internal/sms"
)

func newTestSweeper(t *testing.T) (*Sweeper, *bidding.Service, *bidding.Repo, *gorm.DB) {
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
	svc := bidding.NewService(db, repo, sms.NewMemorySender())
	arbiter := bidding.NewUniformArbiter(rand.NewSource(42))
	sweeper := New(svc, arbiter, metrics.NewCollector(nil), time.Minute)
	return sweeper, svc, repo, db
}

func seedJobWithPolicy(t *testing.T, svc *bidding.Service, policy bidding.WindowPolicy) *bidding.Job {
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
	if err := svc.CreateJob(context.Background(), job, policy); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func placeBid(t *testing.T, svc *bidding.Service, repo *bidding.Repo, mobile, tag string) *bidding.Courier {
	t.Helper()
	c := &bidding.Courier{FirstName: "Bidder", LastName: "Tester", MobileNumber: mobile, DutyStatus: bidding.DutyOn}
	if err := repo.CreateCourier(context.Background(), c); err != nil {
		t.Fatalf("seed courier: %v", err)
	}
	if _, _, err := svc.Bid(context.Background(), c, tag); err != nil {
		t.Fatalf("bid: %v", err)
	}
	return c
}

func TestSweepAwardsWindowAtBidLimit(t *testing.T) {
	sweeper, svc, repo, db := newTestSweeper(t)
	job := seedJobWithPolicy(t, svc, bidding.WindowPolicy{LimitType: bidding.LimitTypeNumBids, Limit: 2})

	placeBid(t, svc, repo, "9175550100", job.JobTag)

	awarded, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if awarded != 0 {
		t.Fatalf("window awarded below bid limit")
	}

	placeBid(t, svc, repo, "9175550200", job.JobTag)

	awarded, err = sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if awarded != 1 {
		t.Fatalf("expected 1 award, got %d", awarded)
	}

	var accepted []bidding.JobBid
	if err := db.Where("job_tag = ? AND accepted_ts IS NOT NULL", job.JobTag).Find(&accepted).Error; err != nil {
		t.Fatalf("query accepted bids: %v", err)
	}
	if len(accepted) != 1 {
		t.Fatalf("expected exactly 1 winning bid, got %d", len(accepted))
	}

	current, err := repo.CurrentStatus(context.Background(), job.JobTag)
	if err != nil {
		t.Fatalf("current status: %v", err)
	}
	if current.Status != bidding.StatusAwarded {
		t.Fatalf("job status after sweep: %s", current.Status)
	}
}

func TestSweepAwardsExpiredTimeWindow(t *testing.T) {
	sweeper, svc, repo, _ := newTestSweeper(t)
	job := seedJobWithPolicy(t, svc, bidding.WindowPolicy{LimitType: bidding.LimitTypeTimeSeconds, Limit: 300})
	placeBid(t, svc, repo, "9175550100", job.JobTag)

	awarded, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if awarded != 0 {
		t.Fatalf("window awarded before its time limit")
	}

	sweeper.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	awarded, err = sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if awarded != 1 {
		t.Fatalf("expected 1 award after time limit, got %d", awarded)
	}
}

func TestExpiredTimeWindowWithNoBidsStaysOpen(t *testing.T) {
	sweeper, svc, repo, _ := newTestSweeper(t)
	job := seedJobWithPolicy(t, svc, bidding.WindowPolicy{LimitType: bidding.LimitTypeTimeSeconds, Limit: 1})

	sweeper.now = func() time.Time { return time.Now().Add(time.Hour) }

	awarded, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if awarded != 0 {
		t.Fatalf("bidless window should not award")
	}

	if _, err := repo.OpenWindowForTag(context.Background(), job.JobTag); err != nil {
		t.Fatalf("window should still be open: %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	sweeper, _, _, _ := newTestSweeper(t)
	sweeper.interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := sweeper.Run(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
