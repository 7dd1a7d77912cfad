package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/common"
	"github.com/binarymachines/bxlogic/internal/responder"
)

func (h *Handler) Ping(c *gin.Context) {
	c.String(http.StatusOK, "The BXLOGIC web listener is alive.")
}

type createCourierReq struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MobileNumber string `json:"mobile_number"`
	Email        string `json:"email"`
}

func (h *Handler) CreateCourier(c *gin.Context) {
	var req createCourierReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.MobileNumber == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "first_name, last_name and mobile_number required")
		return
	}

	mobile := responder.NormalizeNumber(req.MobileNumber)
	if len(mobile) != 10 {
		common.Fail(c, http.StatusBadRequest, 10003, "mobile_number must be a 10-digit US number")
		return
	}

	courier := bidding.Courier{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MobileNumber: mobile,
		Email:        req.Email,
	}
	if err := h.Repo.CreateCourier(c.Request.Context(), &courier); err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "failed to create courier (maybe mobile number already registered)")
		return
	}
	common.OK(c, courier)
}

type courierStatusReq struct {
	MobileNumber string `json:"mobile_number"`
	OnDuty       *bool  `json:"on_duty"`
}

func (h *Handler) SetCourierStatus(c *gin.Context) {
	var req courierStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.MobileNumber == "" || req.OnDuty == nil {
		common.Fail(c, http.StatusBadRequest, 10002, "mobile_number and on_duty required")
		return
	}

	ctx := c.Request.Context()
	courier, err := h.Repo.CourierByMobile(ctx, responder.NormalizeNumber(req.MobileNumber))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40401, "courier not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	duty := bidding.DutyOff
	if *req.OnDuty {
		duty = bidding.DutyOn
	}
	if err := h.Repo.SetCourierDuty(ctx, courier.ID, duty); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	courier.DutyStatus = duty
	common.OK(c, courier)
}

// ListCouriers returns all couriers, or only those matching ?status=on|off.
func (h *Handler) ListCouriers(c *gin.Context) {
	ctx := c.Request.Context()

	switch c.Query("status") {
	case "":
		var all []bidding.Courier
		if err := h.DB.WithContext(ctx).Order("id ASC").Find(&all).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 20001, "db error")
			return
		}
		common.OK(c, all)
	case "on":
		h.listCouriersByDuty(c, bidding.DutyOn)
	case "off":
		h.listCouriersByDuty(c, bidding.DutyOff)
	default:
		common.Fail(c, http.StatusBadRequest, 10005, "status must be on or off")
	}
}

func (h *Handler) listCouriersByDuty(c *gin.Context, duty int) {
	out, err := h.Repo.CouriersByDuty(c.Request.Context(), duty)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, out)
}
