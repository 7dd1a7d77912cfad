package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/command"
	"github.com/binarymachines/bxlogic/internal/common"
)

type createJobReq struct {
	PickupAddress        string `json:"pickup_address"`
	PickupBorough        string `json:"pickup_borough"`
	PickupNeighborhood   string `json:"pickup_neighborhood"`
	PickupZip            string `json:"pickup_zip"`
	DeliveryAddress      string `json:"delivery_address"`
	DeliveryBorough      string `json:"delivery_borough"`
	DeliveryNeighborhood string `json:"delivery_neighborhood"`
	DeliveryZip          string `json:"delivery_zip"`
	PaymentMethod        string `json:"payment_method"`
	Items                string `json:"items"`
}

// CreateJob posts a new delivery job: the job row, its broadcast status, an
// open bidding window, and a queue notice for the courier notifier.
func (h *Handler) CreateJob(c *gin.Context) {
	var req createJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.PickupAddress == "" || req.PickupBorough == "" || req.PickupZip == "" ||
		req.DeliveryAddress == "" || req.DeliveryBorough == "" || req.DeliveryZip == "" ||
		req.PaymentMethod == "" || req.Items == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "pickup, delivery, payment_method and items fields required")
		return
	}

	job := bidding.Job{
		PickupAddress:        req.PickupAddress,
		PickupBorough:        req.PickupBorough,
		PickupNeighborhood:   req.PickupNeighborhood,
		PickupZip:            req.PickupZip,
		DeliveryAddress:      req.DeliveryAddress,
		DeliveryBorough:      req.DeliveryBorough,
		DeliveryNeighborhood: req.DeliveryNeighborhood,
		DeliveryZip:          req.DeliveryZip,
		PaymentMethod:        req.PaymentMethod,
		Items:                req.Items,
	}
	policy := bidding.WindowPolicy{
		LimitType: h.Cfg.BidWindowLimitType,
		Limit:     h.Cfg.BidWindowLimit,
	}

	ctx := c.Request.Context()
	if err := h.Svc.CreateJob(ctx, &job, policy); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to create job")
		return
	}

	if h.Publisher != nil {
		if err := h.Publisher.PublishJobPosted(ctx, job.JobTag); err != nil {
			// the job exists either way; broadcast can be replayed
			log.Printf("job %s created but broadcast publish failed: %v", job.JobTag, err)
		}
	}

	common.OK(c, job)
}

func (h *Handler) requireTag(c *gin.Context) (string, bool) {
	tag := c.Query("tag")
	if tag == "" {
		common.Fail(c, http.StatusBadRequest, 10006, "tag query parameter required")
		return "", false
	}
	if !command.IsValidJobTag(tag) {
		common.Fail(c, http.StatusBadRequest, 10007, "malformed job tag")
		return "", false
	}
	return tag, true
}

func (h *Handler) GetJobStatus(c *gin.Context) {
	tag, ok := h.requireTag(c)
	if !ok {
		return
	}

	status, err := h.Repo.CurrentStatus(c.Request.Context(), tag)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"job_tag":  tag,
		"status":   status.Status.String(),
		"write_ts": status.WriteTS,
	})
}

type jobLogReq struct {
	JobTag  string `json:"job_tag"`
	LogText string `json:"log_text"`
}

func (h *Handler) AppendJobLog(c *gin.Context) {
	var req jobLogReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.JobTag == "" || req.LogText == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_tag and log_text required")
		return
	}

	entry := bidding.JobLog{JobTag: req.JobTag, LogText: req.LogText}
	if err := h.Repo.AppendJobLog(c.Request.Context(), &entry); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, entry)
}

func (h *Handler) GetJobLog(c *gin.Context) {
	tag, ok := h.requireTag(c)
	if !ok {
		return
	}
	entries, err := h.Repo.JobLogEntries(c.Request.Context(), tag)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, entries)
}

// ListBidders reports the couriers holding active bids on a tag.
func (h *Handler) ListBidders(c *gin.Context) {
	tag, ok := h.requireTag(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	bids, err := h.Repo.ActiveBidsForTag(ctx, tag)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	out := make([]gin.H, 0, len(bids))
	for _, bid := range bids {
		courier, err := h.Repo.CourierByID(ctx, bid.CourierID)
		if err != nil {
			common.Fail(c, http.StatusInternalServerError, 20001, "db error")
			return
		}
		out = append(out, gin.H{
			"bid_id":        bid.ID,
			"courier_id":    courier.ID,
			"first_name":    courier.FirstName,
			"mobile_number": courier.MobileNumber,
			"write_ts":      bid.WriteTS,
		})
	}
	common.OK(c, gin.H{"job_tag": tag, "bidders": out})
}

// GetBidStatus reports the tag's bidding window: its policy, whether it is
// still open, and the running bid count.
func (h *Handler) GetBidStatus(c *gin.Context) {
	tag, ok := h.requireTag(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	window, err := h.Repo.OpenWindowForTag(ctx, tag)
	open := true
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusInternalServerError, 20001, "db error")
			return
		}
		open = false
	}

	bids, err := h.Repo.ActiveBidsForTag(ctx, tag)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	resp := gin.H{"job_tag": tag, "open": open, "bid_count": len(bids)}
	if open {
		resp["window_id"] = window.ID
		resp["open_ts"] = window.OpenTS
		resp["limit_type"] = window.LimitType
		resp["limit"] = window.Limit
	}
	common.OK(c, resp)
}

type awardReq struct {
	WindowID uint64 `json:"window_id"`
	BidID    uint64 `json:"bid_id"`
}

// Award closes a window by hand, overriding the sweeper. The winning bid
// must belong to the window.
func (h *Handler) Award(c *gin.Context) {
	var req awardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.WindowID == 0 || req.BidID == 0 {
		common.Fail(c, http.StatusBadRequest, 10002, "window_id and bid_id required")
		return
	}

	ctx := c.Request.Context()
	window, err := h.Repo.WindowByID(ctx, req.WindowID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40403, "bidding window not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	bids, err := h.Repo.ActiveBidsForTag(ctx, window.JobTag)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	var winner *bidding.JobBid
	for i := range bids {
		if bids[i].ID == req.BidID {
			winner = &bids[i]
			break
		}
	}
	if winner == nil {
		common.Fail(c, http.StatusBadRequest, 10008, "bid "+strconv.FormatUint(req.BidID, 10)+" is not an active bid on this window")
		return
	}

	if err := h.Svc.Award(ctx, window.ID, []bidding.JobBid{*winner}); err != nil {
		if err == bidding.ErrConflict {
			common.Fail(c, http.StatusConflict, 40901, "window already closed")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to award")
		return
	}
	h.Stats.WindowAwarded()
	common.OK(c, gin.H{"job_tag": window.JobTag, "winning_bid_id": winner.ID})
}
