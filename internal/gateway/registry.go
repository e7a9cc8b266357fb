package gateway

import (
	"fmt"
	"strings"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
)

type DriverConfig struct {
	Provider   string
	BaseURL    string
	Username   string
	Password   string
	APIKey     string
	AccountSID string
	AuthToken  string
	Unicode    bool
	Flash      bool
}

// NewDriver picks the provider driver named by cfg.Provider.
func NewDriver(cfg DriverConfig, t gateway.Transport) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "1s2u", "_1s2u":
		return NewOneS2U(OneS2UConfig{
			BaseURL:  cfg.BaseURL,
			Username: cfg.Username,
			Password: cfg.Password,
			Unicode:  cfg.Unicode,
			Flash:    cfg.Flash,
		}, t), nil
	case "prosms":
		return NewProSMS(ProSMSConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey}, t), nil
	case "twilio":
		return NewTwilio(TwilioConfig{
			BaseURL:    cfg.BaseURL,
			AccountSID: cfg.AccountSID,
			AuthToken:  cfg.AuthToken,
		}, t), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}
