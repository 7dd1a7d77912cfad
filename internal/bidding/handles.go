package bidding

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// SetHandle registers a new live handle for the courier, expiring any prior
// live handle in the same transaction so a courier never has two.
func (s *Service) SetHandle(ctx context.Context, courier *Courier, handle string) error {
	now := time.Now().UTC()
	return s.txn(ctx, func(r *Repo) error {
		if err := r.ExpireLiveHandles(ctx, courier.ID, now); err != nil {
			return err
		}
		return r.CreateHandle(ctx, &UserHandle{
			CourierID: courier.ID,
			Handle:    handle,
			CreatedTS: now,
		})
	})
}

// LogMessage resolves the target courier by live handle and appends a
// one-way log entry addressed to them.
func (s *Service) LogMessage(ctx context.Context, from *Courier, toHandle, text string) (*Courier, error) {
	target, err := s.repo.CourierByLiveHandle(ctx, toHandle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, guardf("Nobody here goes by the handle @%s.", toHandle)
		}
		return nil, err
	}

	err = s.repo.CreateMessage(ctx, &Message{
		FromCourierID: from.ID,
		ToCourierID:   target.ID,
		MimeType:      "text/plain",
		MsgData:       text,
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}
