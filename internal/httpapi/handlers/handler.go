package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/config"
	"github.com/binarymachines/bxlogic/internal/metrics"
	"github.com/binarymachines/bxlogic/internal/responder"
	"github.com/binarymachines/bxlogic/internal/sms"
	"github.com/binarymachines/bxlogic/internal/store/redisstore"
)

// JobEventPublisher fans out a broadcast notice when a job is posted.
type JobEventPublisher interface {
	PublishJobPosted(ctx context.Context, jobTag string) error
}

type Handler struct {
	DB        *gorm.DB
	Cfg       config.Config
	Redis     *redisstore.Store
	Svc       *bidding.Service
	Repo      *bidding.Repo
	Responder *responder.Responder
	Sender    sms.Sender
	Publisher JobEventPublisher
	Stats     *metrics.Collector
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, sender sms.Sender, pub JobEventPublisher, stats *metrics.Collector) *Handler {
	repo := bidding.NewRepo(db)
	svc := bidding.NewService(db, repo, sender)
	return &Handler{
		DB:        db,
		Cfg:       cfg,
		Redis:     rds,
		Svc:       svc,
		Repo:      repo,
		Responder: responder.New(svc, stats),
		Sender:    sender,
		Publisher: pub,
		Stats:     stats,
	}
}
