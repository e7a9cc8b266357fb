package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NordCoder/Smsgate/internal/dispatch"
	"github.com/NordCoder/Smsgate/internal/domain/delivery"
	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/NordCoder/Smsgate/internal/domain/otp"
	"github.com/NordCoder/Smsgate/internal/domain/subscriber"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type memLog struct {
	entries []*delivery.Entry
	limit   int
}

func (m *memLog) Append(_ context.Context, e *delivery.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLog) ListRecent(_ context.Context, limit int) ([]*delivery.Entry, error) {
	m.limit = limit
	return m.entries, nil
}

type memGroups struct{}

func (memGroups) ListActiveMobiles(context.Context, []int64) ([]string, error) { return nil, nil }

func (memGroups) ListGroups(context.Context) ([]*subscriber.Group, error) {
	return []*subscriber.Group{{ID: 1, Name: "vip"}}, nil
}

func TestReports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := &memLog{entries: []*delivery.Entry{{ID: "e1", Gateway: "prosms", Status: delivery.StatusError}}}
	s := NewServer(&memCodes{recs: map[int64]*otp.Record{}}, &memAttempts{}, &passTx{},
		dispatch.New(nil, &fakeClient{res: gateway.Success("OK")}, "", nil), Opts{}).
		WithReports(&Reports{Deliveries: log, Groups: memGroups{}})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/deliveries?limit=9999")
	require.NoError(t, err)
	var out struct {
		Items []delivery.Entry `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, maxDeliveryLimit, log.limit)
	require.Len(t, out.Items, 1)
	require.Equal(t, "e1", out.Items[0].ID)

	resp, err = http.Get(srv.URL + "/v1/deliveries?limit=-1")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/deliveries?limit=abc")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/deliveries")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, defaultDeliveryLimit, log.limit)

	resp, err = http.Get(srv.URL + "/v1/subscriber-groups")
	require.NoError(t, err)
	var groups struct {
		Items []subscriber.Group `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&groups))
	_ = resp.Body.Close()
	require.Equal(t, "vip", groups.Items[0].Name)
}

func TestReportsNotMountedByDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(&memCodes{recs: map[int64]*otp.Record{}}, &memAttempts{}, &passTx{},
		dispatch.New(nil, &fakeClient{res: gateway.Success("OK")}, "", nil), Opts{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/deliveries")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
