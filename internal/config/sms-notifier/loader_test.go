package sms_notifier_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "sms.events", cfg.In.Topic)
	require.Equal(t, "sms.sent", cfg.Out.Topic)
	require.Equal(t, "1s2u", cfg.Gateway.Provider)
	require.Equal(t, 5*time.Minute, cfg.OTP.Window)
	require.Equal(t, 5, cfg.OTP.AsRateLimit().MaxCount)
	require.Equal(t, []string{"post"}, cfg.Notify.PostTypes)
	require.Equal(t, "sms-notifier", cfg.AsLoggerConfig().App)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sms-notifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  provider: prosms
  api_key: from-file
notify:
  admin_mobile: "+4670000000"
  templates:
    order_by_status:
      completed: "Order %order_number% completed"
mobile:
  handler: use_phone_field
  international: true
`), 0o600))

	t.Setenv("GATEWAY_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "prosms", cfg.Gateway.Provider)
	require.Equal(t, "from-env", cfg.Gateway.APIKey)
	require.Equal(t, "+4670000000", cfg.Notify.AsResolverConfig().AdminMobile)
	require.Equal(t, "Order %order_number% completed", cfg.Notify.Templates.OrderByStatus["completed"])
	require.True(t, cfg.Mobile.AsRules().International)
	require.Equal(t, "prosms", cfg.Gateway.AsDriverConfig().Provider)
}
