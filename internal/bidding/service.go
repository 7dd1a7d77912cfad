package bidding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/command"
	"github.com/binarymachines/bxlogic/internal/sms"
)

// WindowPolicy bounds a bidding window by elapsed time or bid count.
type WindowPolicy struct {
	LimitType string
	Limit     int
}

func (p WindowPolicy) Validate() error {
	switch p.LimitType {
	case LimitTypeTimeSeconds, LimitTypeNumBids:
	default:
		return fmt.Errorf("invalid bidding limit type %q, allowed types are %s and %s",
			p.LimitType, LimitTypeTimeSeconds, LimitTypeNumBids)
	}
	if p.Limit <= 0 {
		return fmt.Errorf("bidding limit must be positive, got %d", p.Limit)
	}
	return nil
}

// Service drives the job lifecycle: broadcast, bid, award, accept,
// en route, completion. Every transition runs inside one transaction with
// commit-on-success and rollback on any error.
type Service struct {
	db     *gorm.DB
	repo   *Repo
	sender sms.Sender
}

func NewService(db *gorm.DB, repo *Repo, sender sms.Sender) *Service {
	return &Service{db: db, repo: repo, sender: sender}
}

func (s *Service) Repo() *Repo { return s.repo }

func (s *Service) txn(ctx context.Context, fn func(r *Repo) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx))
	})
}

// CreateJob inserts the job, its BROADCAST status row, and an open bidding
// window carrying the deployment's window policy.
func (s *Service) CreateJob(ctx context.Context, job *Job, policy WindowPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	job.ID = ulid.Make().String()
	job.JobTag = command.GenerateJobTag(boroughTag(job.DeliveryBorough), job.DeliveryZip)
	now := time.Now().UTC()

	return s.txn(ctx, func(r *Repo) error {
		if err := r.CreateJob(ctx, job); err != nil {
			return err
		}
		if _, err := r.InsertStatus(ctx, job.JobTag, StatusBroadcast, now); err != nil {
			return err
		}

		// at most one open window per tag
		if _, err := r.OpenWindowForTag(ctx, job.JobTag); err == nil {
			return fmt.Errorf("bidding window already open for tag %s", job.JobTag)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return r.OpenWindow(ctx, &BiddingWindow{
			JobTag:    job.JobTag,
			OpenTS:    now,
			LimitType: policy.LimitType,
			Limit:     policy.Limit,
		})
	})
}

func boroughTag(borough string) string {
	return strings.ToLower(strings.ReplaceAll(borough, " ", ""))
}

// Bid records a courier's interest in a broadcast job. An off-duty courier
// who bids is flipped on duty in the same transaction; the returned flag
// reports that promotion.
func (s *Service) Bid(ctx context.Context, courier *Courier, tag string) (*JobBid, bool, error) {
	if tag == "" {
		return nil, false, errMissingJobTag()
	}
	if !command.IsValidJobTag(tag) {
		return nil, false, errInvalidJobTag(tag)
	}

	now := time.Now().UTC()
	bid := &JobBid{CourierID: courier.ID, JobTag: tag, WriteTS: now}
	promoted := false

	err := s.txn(ctx, func(r *Repo) error {
		current, err := r.CurrentStatus(ctx, tag)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errJobNotAvailable(tag)
			}
			return err
		}
		if current.Status != StatusBroadcast {
			return errJobNotAvailable(tag)
		}

		window, err := r.OpenWindowForTag(ctx, tag)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errWindowNotOpen(tag)
			}
			return err
		}

		if _, err := r.ActiveBidForCourier(ctx, courier.ID, tag); err == nil {
			return errAlreadyBid(tag)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		bid.BiddingWindowID = window.ID
		if err := r.CreateBid(ctx, bid); err != nil {
			return err
		}

		if courier.DutyStatus == DutyOff {
			if err := r.SetCourierDuty(ctx, courier.ID, DutyOn); err != nil {
				return err
			}
			courier.DutyStatus = DutyOn
			promoted = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return bid, promoted, nil
}

// Award closes the window, stamps every winning bid, and moves the job to
// AWARDED, atomically. Winners are then notified by SMS outside the
// transaction; a failed send is logged, never retried.
func (s *Service) Award(ctx context.Context, windowID uint64, winners []JobBid) error {
	now := time.Now().UTC()
	var notify []Courier
	var jobTag string

	err := s.txn(ctx, func(r *Repo) error {
		window, err := r.WindowByID(ctx, windowID)
		if err != nil {
			return err
		}
		jobTag = window.JobTag

		if err := r.CloseWindow(ctx, window.ID, now); err != nil {
			return err
		}

		for _, bid := range winners {
			if err := r.MarkBidAccepted(ctx, bid.ID, now); err != nil {
				return err
			}
			winner, err := r.CourierByID(ctx, bid.CourierID)
			if err != nil {
				return err
			}
			notify = append(notify, *winner)
		}

		current, err := r.CurrentStatus(ctx, window.JobTag)
		if err != nil {
			return err
		}
		if current.Status == StatusBroadcast {
			if err := r.ExpireCurrentStatus(ctx, window.JobTag, now); err != nil {
				return err
			}
			if _, err := r.InsertStatus(ctx, window.JobTag, StatusAwarded, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, winner := range notify {
		body := awardNotice(winner.FirstName, jobTag)
		if _, err := s.sender.Send(ctx, winner.MobileNumber, body); err != nil {
			log.Printf("award: sms to courier %d failed: %v", winner.ID, err)
		}
	}
	return nil
}

func awardNotice(firstName, tag string) string {
	lines := []string{
		"*********",
		fmt.Sprintf("Hello %s, you have been awarded the delivery job with tag %s.", firstName, tag),
		"Text the job tag, a space, and \"acc\" to accept it.",
		"Godspeed!",
		"*********",
	}
	return strings.Join(lines, "\n")
}

// Accept commits an awarded courier to a job: the window must be closed,
// the courier must hold a live bid, and the acceptance creates the job's
// one assignment row.
func (s *Service) Accept(ctx context.Context, courier *Courier, tag string) (*JobAssignment, error) {
	if tag == "" {
		return nil, errMissingJobTag()
	}
	if !command.IsValidJobTag(tag) {
		return nil, errInvalidJobTag(tag)
	}

	now := time.Now().UTC()
	assignment := &JobAssignment{CourierID: courier.ID, JobTag: tag}

	err := s.txn(ctx, func(r *Repo) error {
		if _, err := r.LiveBidForCourier(ctx, courier.ID, tag); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errBidNotFound(tag)
			}
			return err
		}

		if _, err := r.OpenWindowForTag(ctx, tag); err == nil {
			return errWindowStillOpen()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		current, err := r.CurrentStatus(ctx, tag)
		if err != nil {
			return err
		}
		if current.Status == StatusAccepted {
			return errAlreadyInStatus(tag, StatusAccepted)
		}

		if err := r.ExpireCurrentStatus(ctx, tag, now); err != nil {
			return err
		}
		if _, err := r.InsertStatus(ctx, tag, StatusAccepted, now); err != nil {
			return err
		}

		job, err := r.JobByTag(ctx, tag)
		if err != nil {
			return err
		}
		assignment.JobID = job.ID
		return r.CreateAssignment(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// EnRoute marks a courier's job in progress. With no tag, the courier's
// single live assignment is used; zero or several live assignments are
// distinct errors.
func (s *Service) EnRoute(ctx context.Context, courier *Courier, tag string) (string, error) {
	return s.progress(ctx, courier, tag, StatusInProgress)
}

// Finish marks a courier's job completed, with the same tag inference as
// EnRoute.
func (s *Service) Finish(ctx context.Context, courier *Courier, tag string) (string, error) {
	return s.progress(ctx, courier, tag, StatusCompleted)
}

func (s *Service) progress(ctx context.Context, courier *Courier, tag string, target Status) (string, error) {
	if tag == "" {
		tags, err := s.repo.LiveAssignmentTags(ctx, courier.ID)
		if err != nil {
			return "", err
		}
		switch len(tags) {
		case 0:
			return "", errNoActiveJobs()
		case 1:
			tag = tags[0]
		default:
			return "", errAmbiguousJob()
		}
	} else if !command.IsValidJobTag(tag) {
		return "", errInvalidJobTag(tag)
	}

	now := time.Now().UTC()
	err := s.txn(ctx, func(r *Repo) error {
		if _, err := r.AssignmentForCourierAndTag(ctx, courier.ID, tag); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errJobNotOwned(tag)
			}
			return err
		}

		current, err := r.CurrentStatus(ctx, tag)
		if err != nil {
			return err
		}
		if current.Status == target {
			return errAlreadyInStatus(tag, target)
		}

		if err := r.ExpireCurrentStatus(ctx, tag, now); err != nil {
			return err
		}
		_, err = r.InsertStatus(ctx, tag, target, now)
		return err
	})
	if err != nil {
		return "", err
	}
	return tag, nil
}

// ToggleDuty flips a courier between on and off duty and reports the new
// state.
func (s *Service) ToggleDuty(ctx context.Context, courier *Courier) (bool, error) {
	next := DutyOn
	if courier.DutyStatus == DutyOn {
		next = DutyOff
	}
	if err := s.repo.SetCourierDuty(ctx, courier.ID, next); err != nil {
		return false, err
	}
	courier.DutyStatus = next
	return next == DutyOn, nil
}
