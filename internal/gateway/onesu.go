package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/shopspring/decimal"
)

const oneS2UBaseURL = "https://api.1s2u.io"

var oneS2UErrors = map[string]*gateway.Error{
	"00":   gateway.NewError(gateway.CodeInvalidCredentials, "invalid username or password"),
	"0000": gateway.NewError(gateway.CodeProvider, "message not sent"),
	"0005": gateway.NewError(gateway.CodeProvider, "invalid server"),
	"0010": gateway.NewError(gateway.CodeMissingCredentials, "username not provided"),
	"0011": gateway.NewError(gateway.CodeMissingCredentials, "password not provided"),
	"0020": gateway.NewError(gateway.CodeBalanceInsufficient, "insufficient credits"),
	"0030": gateway.NewError(gateway.CodeSenderRejected, "invalid sender id"),
	"0040": gateway.NewError(gateway.CodeValidation, "mobile number not provided"),
	"0041": gateway.NewError(gateway.CodeValidation, "invalid mobile number"),
	"0042": gateway.NewError(gateway.CodeProvider, "network not supported"),
	"0050": gateway.NewError(gateway.CodeValidation, "invalid message"),
	"0060": gateway.NewError(gateway.CodeValidation, "invalid quantity of messages"),
	"0070": gateway.NewError(gateway.CodeProvider, "message rejected"),
	"0080": gateway.NewError(gateway.CodeProvider, "request rejected"),
}

type OneS2UConfig struct {
	BaseURL  string
	Username string
	Password string
	Unicode  bool
	Flash    bool
}

// OneS2U sends through the 1s2u bulk HTTP API. Numbers must be digits only, so a
// leading "+" is rewritten as "00".
type OneS2U struct {
	cfg OneS2UConfig
	t   gateway.Transport
}

func NewOneS2U(cfg OneS2UConfig, t gateway.Transport) *OneS2U {
	if cfg.BaseURL == "" {
		cfg.BaseURL = oneS2UBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OneS2U{cfg: cfg, t: t}
}

func (o *OneS2U) Name() string { return "1s2u" }

func (o *OneS2U) Send(ctx context.Context, m gateway.Message) gateway.SendResult {
	if o.cfg.Username == "" && o.cfg.Password == "" {
		return gateway.Failure(gateway.NewError(gateway.CodeMissingCredentials, "username and password are required"))
	}

	numbers := make([]string, 0, len(m.To))
	for _, n := range m.To {
		numbers = append(numbers, cleanOneS2UNumber(n))
	}
	form := url.Values{}
	form.Set("username", o.cfg.Username)
	form.Set("password", o.cfg.Password)
	form.Set("mno", strings.Join(numbers, ","))
	form.Set("Sid", m.From)
	form.Set("msg", m.Body)
	form.Set("mt", boolDigit(o.cfg.Unicode))
	form.Set("fl", boolDigit(o.cfg.Flash))

	resp, err := o.t.Request(ctx, formRequest(o.cfg.BaseURL+"/bulksms", form))
	if err != nil {
		return gateway.Failure(gateway.NewError(gateway.CodeTransport, err.Error()))
	}
	body := strings.TrimSpace(string(resp.Body))
	if e, ok := oneS2UErrors[body]; ok {
		return gateway.Failure(gateway.NewError(e.Code, e.Message))
	}
	if resp.StatusCode >= 400 {
		return gateway.Failure(gateway.NewError(gateway.CodeProvider, httpFailure(resp)))
	}
	if body == "" {
		return gateway.Failure(gateway.NewError(gateway.CodeMalformedResponse, "empty response"))
	}
	return gateway.Success(body)
}

func (o *OneS2U) Credit(ctx context.Context) (gateway.Credit, error) {
	if o.cfg.Username == "" && o.cfg.Password == "" {
		return gateway.Credit{}, gateway.NewError(gateway.CodeMissingCredentials, "username and password are required")
	}
	form := url.Values{}
	form.Set("USER", o.cfg.Username)
	form.Set("PASS", o.cfg.Password)

	resp, err := o.t.Request(ctx, formRequest(o.cfg.BaseURL+"/checkbalance", form))
	if err != nil {
		return gateway.Credit{}, gateway.NewError(gateway.CodeTransport, err.Error())
	}
	raw := strings.TrimSpace(string(resp.Body))
	if e, ok := oneS2UErrors[raw]; ok {
		return gateway.Credit{Raw: raw}, gateway.NewError(e.Code, e.Message)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return gateway.Credit{Raw: raw}, gateway.NewError(gateway.CodeMalformedResponse, "balance is not a number: "+raw)
	}
	return gateway.Credit{Value: v, Raw: raw}, nil
}

func cleanOneS2UNumber(n string) string {
	return strings.TrimSpace(strings.ReplaceAll(n, "+", "00"))
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formRequest(u string, form url.Values) gateway.Request {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return gateway.Request{Method: http.MethodPost, URL: u, Header: h, Body: []byte(form.Encode())}
}

func httpFailure(resp *gateway.Response) string {
	msg := strings.TrimSpace(string(resp.Body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", resp.StatusCode, msg)
}
