//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestOTP_WrongCodesLockOut(t *testing.T) {
	cfg := LoadCfg()
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	phone := "+4673" + RandKey()[:7]
	sendBody, _ := json.Marshal(map[string]string{"phone": phone, "agent": "it"})
	// The test stack runs without provider credentials, so the send fails after the
	// code is stored.
	HTTPDoJSON(t, http.MethodPost, cfg.APIBaseURL+"/v1/otp/send", sendBody, http.StatusBadGateway)

	wrong, _ := json.Marshal(map[string]string{"phone": phone, "agent": "it", "code": "000000x"})
	for range 5 {
		b := HTTPDoJSON(t, http.MethodPost, cfg.APIBaseURL+"/v1/otp/verify", wrong, http.StatusOK)
		var out map[string]bool
		if err := json.Unmarshal(b, &out); err != nil || out["verified"] {
			t.Fatalf("unexpected verify result: %s", string(b))
		}
	}
	HTTPDoJSON(t, http.MethodPost, cfg.APIBaseURL+"/v1/otp/verify", wrong, http.StatusTooManyRequests)

	if n := CountAttempts(t, db, phone, false); n != 5 {
		t.Fatalf("want 5 failed attempts, got %d", n)
	}
}

func TestOTP_InvalidNumberRejected(t *testing.T) {
	cfg := LoadCfg()
	body, _ := json.Marshal(map[string]string{"phone": "12ab"})
	HTTPDoJSON(t, http.MethodPost, cfg.APIBaseURL+"/v1/otp/send", body, http.StatusBadRequest)
}

func TestOTP_SendThrottledAfterMaxCodes(t *testing.T) {
	cfg := LoadCfg()
	phone := "+4674" + RandKey()[:7]
	body, _ := json.Marshal(map[string]string{"phone": phone, "agent": "it-throttle"})
	for range 3 {
		HTTPDoJSON(t, http.MethodPost, cfg.APIBaseURL+"/v1/otp/send", body, http.StatusBadGateway)
	}
	HTTPDoJSON(t, http.MethodPost, cfg.APIBaseURL+"/v1/otp/send", body, http.StatusTooManyRequests)
}
