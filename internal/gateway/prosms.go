package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/shopspring/decimal"
)

const (
	proSMSBaseURL         = "https://api.prosms.se/v1"
	proSMSSenderNotActive = "1017"
)

type ProSMSConfig struct {
	BaseURL string
	APIKey  string
}

type ProSMS struct {
	cfg ProSMSConfig
	t   gateway.Transport
}

func NewProSMS(cfg ProSMSConfig, t gateway.Transport) *ProSMS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = proSMSBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ProSMS{cfg: cfg, t: t}
}

func (p *ProSMS) Name() string { return "prosms" }

type proSMSReport struct {
	Accepted []struct {
		Receiver string `json:"receiver"`
		Country  string `json:"country"`
	} `json:"accepted"`
	Rejected []struct {
		Receiver string `json:"receiver"`
		Message  string `json:"message"`
	} `json:"rejected"`
}

type proSMSResponse struct {
	Status      string          `json:"status"`
	MessageCode json.RawMessage `json:"messageCode"`
	Message     string          `json:"message"`
	ErrorResult json.RawMessage `json:"errorResult"`
	Result      json.RawMessage `json:"result"`
}

func (p *ProSMS) Send(ctx context.Context, m gateway.Message) gateway.SendResult {
	if p.cfg.APIKey == "" {
		return gateway.Failure(gateway.NewError(gateway.CodeMissingCredentials, "api key for this gateway is required"))
	}
	payload, err := json.Marshal(map[string]string{
		"receiver":   strings.Join(m.To, ","),
		"senderName": m.From,
		"message":    m.Body,
	})
	if err != nil {
		return gateway.Failure(gateway.NewError(gateway.CodeValidation, err.Error()))
	}

	h := p.authHeader()
	h.Set("Content-Type", "application/json")
	resp, err := p.t.Request(ctx, gateway.Request{
		Method: http.MethodPost,
		URL:    p.cfg.BaseURL + "/sms/send",
		Header: h,
		Body:   payload,
	})
	if err != nil {
		return gateway.Failure(gateway.NewError(gateway.CodeTransport, err.Error()))
	}

	var r proSMSResponse
	if err := json.Unmarshal(resp.Body, &r); err != nil {
		if resp.StatusCode >= 400 {
			return gateway.Failure(gateway.NewError(gateway.CodeProvider, httpFailure(resp)))
		}
		return gateway.Failure(gateway.NewError(gateway.CodeMalformedResponse, err.Error()))
	}

	if unquote(r.MessageCode) == proSMSSenderNotActive {
		return gateway.Failure(gateway.NewError(gateway.CodeSenderRejected, errorMessage(r)))
	}
	if r.Status == "error" {
		return gateway.Failure(gateway.NewError(gateway.CodeProvider, errorMessage(r)))
	}

	var result struct {
		Report proSMSReport `json:"report"`
	}
	if len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, &result); err != nil {
			return gateway.Failure(gateway.NewError(gateway.CodeMalformedResponse, err.Error()))
		}
	}
	lines := make([]string, 0, len(result.Report.Accepted))
	for _, a := range result.Report.Accepted {
		lines = append(lines, fmt.Sprintf("%s Result From %s - %s", r.Status, a.Receiver, a.Country))
	}
	return gateway.Success(strings.Join(lines, ", "))
}

func (p *ProSMS) Credit(ctx context.Context) (gateway.Credit, error) {
	if p.cfg.APIKey == "" {
		return gateway.Credit{}, gateway.NewError(gateway.CodeMissingCredentials, "api key for this gateway is required")
	}
	resp, err := p.t.Request(ctx, gateway.Request{
		Method: http.MethodGet,
		URL:    p.cfg.BaseURL + "/user/getcreditvalue",
		Header: p.authHeader(),
	})
	if err != nil {
		return gateway.Credit{}, gateway.NewError(gateway.CodeTransport, err.Error())
	}
	var r proSMSResponse
	if err := json.Unmarshal(resp.Body, &r); err != nil {
		return gateway.Credit{}, gateway.NewError(gateway.CodeMalformedResponse, err.Error())
	}
	if r.Status == "error" {
		return gateway.Credit{}, gateway.NewError(gateway.CodeProvider, r.Message)
	}
	raw := unquote(r.Result)
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return gateway.Credit{Raw: raw}, gateway.NewError(gateway.CodeMalformedResponse, "credit is not a number: "+raw)
	}
	return gateway.Credit{Value: v, Raw: raw}, nil
}

func (p *ProSMS) authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.cfg.APIKey)
	return h
}

// errorMessage prefers the per-number rejected report, then errorResult as text,
// then the top-level message.
func errorMessage(r proSMSResponse) string {
	if msg, ok := rejectedReport(r.ErrorResult); ok {
		return msg
	}
	if len(r.ErrorResult) > 0 && string(r.ErrorResult) != "null" {
		if txt := errorResultText(r.ErrorResult); txt != "" {
			return txt
		}
	}
	return r.Message
}

func rejectedReport(raw json.RawMessage) (string, bool) {
	var er struct {
		Report proSMSReport `json:"report"`
	}
	if err := json.Unmarshal(raw, &er); err != nil || len(er.Report.Rejected) == 0 {
		return "", false
	}
	out := make([]string, 0, len(er.Report.Rejected))
	for _, r := range er.Report.Rejected {
		out = append(out, fmt.Sprintf("Number %s - %s", r.Receiver, r.Message))
	}
	return strings.Join(out, ", "), true
}

// errorResultText returns errorResult as plain text whether it came as a string or an object.
func errorResultText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
