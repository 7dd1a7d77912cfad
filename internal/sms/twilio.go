package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioSender sends texts through the Twilio messages REST endpoint.
type TwilioSender struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Client     *http.Client
}

func NewTwilioSender(accountSID, authToken, fromNumber string) (*TwilioSender, error) {
	if accountSID == "" {
		return nil, errors.New("twilio: missing account SID")
	}
	if authToken == "" {
		return nil, errors.New("twilio: missing auth token")
	}
	if fromNumber == "" {
		return nil, errors.New("twilio: missing source mobile number")
	}
	return &TwilioSender{
		AccountSID: accountSID,
		AuthToken:  authToken,
		FromNumber: fromNumber,
		BaseURL:    defaultTwilioBaseURL,
		Client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type twilioMessageResp struct {
	SID     string `json:"sid"`
	Message string `json:"message,omitempty"`
}

func (t *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", "+1"+to)
	form.Set("From", "+1"+t.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.BaseURL, t.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SendError{To: to, StatusCode: resp.StatusCode}
	}

	var decoded twilioMessageResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.SID, nil
}
