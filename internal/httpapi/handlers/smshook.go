package handlers

import (
	"encoding/xml"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/binarymachines/bxlogic/internal/common"
)

// twimlResponse is the reply document Twilio expects from an SMS webhook.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// InboundSMS is the Twilio webhook. The reply rides back in the TwiML body,
// so no outbound API call is needed for the round trip.
func (h *Handler) InboundSMS(c *gin.Context) {
	from := c.PostForm("From")
	body := c.PostForm("Body")
	sid := c.PostForm("MessageSid")

	if from == "" || body == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "From and Body required")
		return
	}

	ctx := c.Request.Context()

	// Twilio retries the webhook on slow responses; a replayed MessageSid
	// gets an empty TwiML document instead of a second command dispatch.
	if h.Redis != nil && sid != "" {
		first, err := h.Redis.FirstDelivery(ctx, sid)
		if err != nil {
			log.Printf("sms dedupe check failed for %s: %v", sid, err)
		} else if !first {
			c.XML(http.StatusOK, twimlResponse{})
			return
		}
	}

	reply := h.Responder.HandleMessage(ctx, from, body)
	h.Stats.SMSSent()
	c.XML(http.StatusOK, twimlResponse{Message: reply})
}
