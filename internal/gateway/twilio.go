package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/shopspring/decimal"
)

const twilioBaseURL = "https://api.twilio.com"

type TwilioConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
}

// Twilio posts one Messages.json request per recipient; media URLs turn it into MMS.
type Twilio struct {
	cfg TwilioConfig
	t   gateway.Transport
}

func NewTwilio(cfg TwilioConfig, t gateway.Transport) *Twilio {
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Twilio{cfg: cfg, t: t}
}

func (tw *Twilio) Name() string { return "twilio" }

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (tw *Twilio) Send(ctx context.Context, m gateway.Message) gateway.SendResult {
	if tw.cfg.AccountSID == "" || tw.cfg.AuthToken == "" {
		return gateway.Failure(gateway.NewError(gateway.CodeMissingCredentials, "account sid and auth token are required"))
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", tw.cfg.BaseURL, tw.cfg.AccountSID)

	var (
		sids     []string
		rejected []string
		worst    gateway.ErrorCode
	)
	for _, to := range m.To {
		form := url.Values{}
		form.Set("To", to)
		form.Set("From", m.From)
		form.Set("Body", m.Body)
		for _, media := range m.MediaURLs {
			form.Add("MediaUrl", media)
		}
		req := formRequest(endpoint, form)
		req.Header.Set("Authorization", tw.basicAuth())

		resp, err := tw.t.Request(ctx, req)
		if err != nil {
			return gateway.Failure(gateway.NewError(gateway.CodeTransport, err.Error()))
		}
		if resp.StatusCode < 300 {
			var ok struct {
				SID string `json:"sid"`
			}
			if err := json.Unmarshal(resp.Body, &ok); err != nil {
				return gateway.Failure(gateway.NewError(gateway.CodeMalformedResponse, err.Error()))
			}
			sids = append(sids, ok.SID)
			continue
		}

		code, msg := twilioFailure(resp)
		if code == gateway.CodeInvalidCredentials {
			return gateway.Failure(gateway.NewError(code, msg))
		}
		if worst == "" {
			worst = code
		}
		rejected = append(rejected, fmt.Sprintf("Number %s - %s", to, msg))
	}
	if len(rejected) > 0 {
		return gateway.Failure(gateway.NewError(worst, strings.Join(rejected, ", ")))
	}
	return gateway.Success(strings.Join(sids, ", "))
}

func (tw *Twilio) Credit(ctx context.Context) (gateway.Credit, error) {
	if tw.cfg.AccountSID == "" || tw.cfg.AuthToken == "" {
		return gateway.Credit{}, gateway.NewError(gateway.CodeMissingCredentials, "account sid and auth token are required")
	}
	h := http.Header{}
	h.Set("Authorization", tw.basicAuth())
	resp, err := tw.t.Request(ctx, gateway.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/2010-04-01/Accounts/%s/Balance.json", tw.cfg.BaseURL, tw.cfg.AccountSID),
		Header: h,
	})
	if err != nil {
		return gateway.Credit{}, gateway.NewError(gateway.CodeTransport, err.Error())
	}
	if resp.StatusCode >= 300 {
		code, msg := twilioFailure(resp)
		return gateway.Credit{}, gateway.NewError(code, msg)
	}
	var b struct {
		Balance  string `json:"balance"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(resp.Body, &b); err != nil {
		return gateway.Credit{}, gateway.NewError(gateway.CodeMalformedResponse, err.Error())
	}
	v, err := decimal.NewFromString(b.Balance)
	if err != nil {
		return gateway.Credit{Raw: b.Balance}, gateway.NewError(gateway.CodeMalformedResponse, "balance is not a number: "+b.Balance)
	}
	return gateway.Credit{Value: v, Raw: strings.TrimSpace(b.Balance + " " + b.Currency)}, nil
}

func (tw *Twilio) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(tw.cfg.AccountSID+":"+tw.cfg.AuthToken))
}

func twilioFailure(resp *gateway.Response) (gateway.ErrorCode, string) {
	var e twilioError
	if err := json.Unmarshal(resp.Body, &e); err != nil || e.Message == "" {
		if resp.StatusCode == http.StatusUnauthorized {
			return gateway.CodeInvalidCredentials, httpFailure(resp)
		}
		return gateway.CodeProvider, httpFailure(resp)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || e.Code == 20003:
		return gateway.CodeInvalidCredentials, e.Message
	case e.Code == 21606 || e.Code == 21212:
		return gateway.CodeSenderRejected, e.Message
	case e.Code == 21211 || e.Code == 21614:
		return gateway.CodeValidation, e.Message
	default:
		return gateway.CodeProvider, e.Message
	}
}
