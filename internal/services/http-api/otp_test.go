package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Smsgate/internal/dispatch"
	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/NordCoder/Smsgate/internal/domain/otp"
	otpsvc "github.com/NordCoder/Smsgate/internal/otp"
	"github.com/NordCoder/Smsgate/internal/phone"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type memCodes struct {
	mu   sync.Mutex
	next int64
	recs map[int64]*otp.Record
}

func (m *memCodes) Create(_ context.Context, r *otp.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	r.ID = m.next
	cp := *r
	m.recs[r.ID] = &cp
	return nil
}

func (m *memCodes) FindMatch(_ context.Context, ph, agent, hash string, since time.Time) (*otp.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.Phone == ph && r.Agent == agent && r.CodeHash == hash && r.CreatedAt.After(since) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memCodes) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return otp.ErrCodeConsumed
	}
	delete(m.recs, id)
	return nil
}

func (m *memCodes) CountSince(_ context.Context, ph, agent string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.recs {
		if r.Phone == ph && r.Agent == agent && r.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

type memAttempts struct {
	mu   sync.Mutex
	rows []otp.Attempt
}

func (m *memAttempts) Create(_ context.Context, a *otp.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memAttempts) CountSince(_ context.Context, ph, agent string, result bool, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if a.Phone == ph && a.Agent == agent && a.Result == result && a.Time.After(since) {
			n++
		}
	}
	return n, nil
}

type passTx struct{ calls int }

func (p *passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type fakeClient struct {
	mu   sync.Mutex
	sent []gateway.Message
	res  gateway.SendResult
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Send(_ context.Context, m gateway.Message) gateway.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.res
}

func (f *fakeClient) Credit(context.Context) (gateway.Credit, error) { return gateway.Credit{}, nil }

type env struct {
	srv      *httptest.Server
	client   *fakeClient
	attempts *memAttempts
	tx       *passTx
}

func newEnv(t *testing.T, res gateway.SendResult) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	client := &fakeClient{res: res}
	attempts := &memAttempts{}
	tx := &passTx{}
	s := NewServer(&memCodes{recs: map[int64]*otp.Record{}}, attempts, tx,
		dispatch.New(nil, client, "OTP", nil),
		Opts{
			Rules:    phone.Rules{International: true},
			Template: "Code: %otp_code%",
			Verifier: otpsvc.Config{RateLimit: otp.RateLimit{Window: time.Minute, MaxCount: 3}},
		})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &env{srv: srv, client: client, attempts: attempts, tx: tx}
}

func (e *env) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *env) sentCount() int {
	e.client.mu.Lock()
	defer e.client.mu.Unlock()
	return len(e.client.sent)
}

func (e *env) lastCode(t *testing.T) string {
	t.Helper()
	e.client.mu.Lock()
	defer e.client.mu.Unlock()
	require.NotEmpty(t, e.client.sent)
	return strings.TrimPrefix(e.client.sent[len(e.client.sent)-1].Body, "Code: ")
}

func TestSendThenVerifyOnce(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))

	resp, out := e.post(t, "/v1/otp/send", map[string]string{"phone": "46700000001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "+46700000001", out["phone"])
	require.Equal(t, []string{"+46700000001"}, e.client.sent[0].To)

	code := e.lastCode(t)
	require.Len(t, code, 6)

	resp, out = e.post(t, "/v1/otp/verify", map[string]string{"phone": "+46700000001", "code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["verified"])

	resp, out = e.post(t, "/v1/otp/verify", map[string]string{"phone": "+46700000001", "code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, out["verified"])
	require.Len(t, e.attempts.rows, 2)
	require.Equal(t, 2, e.tx.calls)

	vr, err := http.Get(e.srv.URL + "/v1/otp/verified?phone=%2B46700000001")
	require.NoError(t, err)
	defer vr.Body.Close()
	var status map[string]bool
	require.NoError(t, json.NewDecoder(vr.Body).Decode(&status))
	require.True(t, status["verified"])
}

func TestVerifyLockout(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))
	_, _ = e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000002"})
	code := e.lastCode(t)

	for range 3 {
		resp, out := e.post(t, "/v1/otp/verify", map[string]string{"phone": "+46700000002", "code": "x"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, false, out["verified"])
	}

	resp, out := e.post(t, "/v1/otp/verify", map[string]string{"phone": "+46700000002", "code": code})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, msgTooManyAttempts, out["error"])
	require.Len(t, e.attempts.rows, 3)
}

func TestAgentsAreIsolated(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))
	_, _ = e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000003", "agent": "login"})
	code := e.lastCode(t)

	_, out := e.post(t, "/v1/otp/verify", map[string]string{"phone": "+46700000003", "agent": "checkout", "code": code})
	require.Equal(t, false, out["verified"])

	_, out = e.post(t, "/v1/otp/verify", map[string]string{"phone": "+46700000003", "agent": "login", "code": code})
	require.Equal(t, true, out["verified"])
}

func TestSendRejectsInvalidNumber(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))
	resp, out := e.post(t, "/v1/otp/send", map[string]string{"phone": "+46-abc"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, phone.ErrInvalidNumber.Error(), out["error"])
	require.Empty(t, e.client.sent)
}

func TestSendGatewayFailure(t *testing.T) {
	e := newEnv(t, gateway.Failure(gateway.NewError(gateway.CodeBalanceInsufficient, "no credit")))
	resp, out := e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000004"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "no credit", out["error"])
	require.Equal(t, string(gateway.CodeBalanceInsufficient), out["code"])
}

func TestVerifyMalformedBody(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))
	resp, err := http.Post(e.srv.URL+"/v1/otp/verify", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendSkipsRecentlyVerifiedNumber(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))
	_, _ = e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000005"})
	code := e.lastCode(t)
	_, out := e.post(t, "/v1/otp/verify", map[string]string{"phone": "+46700000005", "code": code})
	require.Equal(t, true, out["verified"])

	resp, out := e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000005"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, out["sent"])
	require.Equal(t, true, out["verified"])
	require.Equal(t, 1, e.sentCount())

	resp, out = e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000005", "agent": "checkout"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["sent"])
	require.Equal(t, 2, e.sentCount())
}

func TestSendThrottlesIssuedCodes(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))
	for range otp.DefaultMaxIssued {
		resp, _ := e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000006"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, out := e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000006"})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, otp.ErrTooManyCodes.Error(), out["error"])
	require.Equal(t, otp.DefaultMaxIssued, e.sentCount())

	resp, _ = e.post(t, "/v1/otp/send", map[string]string{"phone": "+46700000007"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyRequiresCode(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))
	resp, out := e.post(t, "/v1/otp/verify", map[string]string{"phone": "+46700000008"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotEmpty(t, out["error"])
	require.Empty(t, e.attempts.rows)
}

func TestVerifiedRequiresPhone(t *testing.T) {
	e := newEnv(t, gateway.Success("OK"))
	resp, err := http.Get(e.srv.URL + "/v1/otp/verified")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
