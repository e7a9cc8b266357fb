package sms_notifier_config

import (
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/otp"
	"github.com/NordCoder/Smsgate/internal/gateway"
	"github.com/NordCoder/Smsgate/internal/obs"
	"github.com/NordCoder/Smsgate/internal/phone"
	"github.com/NordCoder/Smsgate/internal/recipient"
	kafkax "github.com/NordCoder/Smsgate/internal/repository/kafka"
	pg "github.com/NordCoder/Smsgate/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Log struct {
	Level    string `mapstructure:"level"`
	Pretty   bool   `mapstructure:"pretty"`
	Encoding string `mapstructure:"encoding"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
	Partitions    int      `mapstructure:"partitions"`
}

type KafkaOut struct {
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	Partitions int      `mapstructure:"partitions"`
}

type Gateway struct {
	Provider   string        `mapstructure:"provider"`
	BaseURL    string        `mapstructure:"base_url"`
	From       string        `mapstructure:"from"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	APIKey     string        `mapstructure:"api_key"`
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	Unicode    bool          `mapstructure:"unicode"`
	Flash      bool          `mapstructure:"flash"`
	Timeout    time.Duration `mapstructure:"timeout"`
	VerifyTLS  bool          `mapstructure:"verify_tls"`
	UserAgent  string        `mapstructure:"user_agent"`
}

type Templates struct {
	Post          string            `mapstructure:"post"`
	PostAuthor    string            `mapstructure:"post_author"`
	UserAdmin     string            `mapstructure:"user_admin"`
	User          string            `mapstructure:"user"`
	Comment       string            `mapstructure:"comment"`
	Login         string            `mapstructure:"login"`
	Order         string            `mapstructure:"order"`
	OrderByStatus map[string]string `mapstructure:"order_by_status"`
	OTP           string            `mapstructure:"otp"`
}

type Notify struct {
	AdminMobile     string    `mapstructure:"admin_mobile"`
	PostTypes       []string  `mapstructure:"post_types"`
	AuthorPostTypes []string  `mapstructure:"author_post_types"`
	LoginRoles      []string  `mapstructure:"login_roles"`
	SendMMS         bool      `mapstructure:"send_mms"`
	OrderNotes      bool      `mapstructure:"order_notes"`
	Templates       Templates `mapstructure:"templates"`
}

type OTP struct {
	Window     time.Duration `mapstructure:"window"`
	MaxCount   int           `mapstructure:"max_count"`
	MaxSends   int           `mapstructure:"max_sends"`
	CodeLength int           `mapstructure:"code_length"`
}

type Mobile struct {
	Handler       string `mapstructure:"handler"`
	International bool   `mapstructure:"international"`
	MinLength     int    `mapstructure:"min_length"`
	MaxLength     int    `mapstructure:"max_length"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type Shortener struct {
	Enable   bool          `mapstructure:"enable"`
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Janitor struct {
	Enable     bool          `mapstructure:"enable"`
	Every      time.Duration `mapstructure:"every"`
	BatchLimit int           `mapstructure:"batch_limit"`
}

type Config struct {
	App       App       `mapstructure:"app"`
	Log       Log       `mapstructure:"log"`
	OTEL      OTEL      `mapstructure:"otel"`
	DB        pg.Config `mapstructure:"db"`
	In        KafkaIn   `mapstructure:"kafka_in"`
	Out       KafkaOut  `mapstructure:"kafka_out"`
	Gateway   Gateway   `mapstructure:"gateway"`
	Notify    Notify    `mapstructure:"notify"`
	OTP       OTP       `mapstructure:"otp"`
	Mobile    Mobile    `mapstructure:"mobile"`
	Server    Server    `mapstructure:"server"`
	Outbox    Outbox    `mapstructure:"outbox"`
	Shortener Shortener `mapstructure:"shortener"`
	Janitor   Janitor   `mapstructure:"janitor"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:    c.Log.Level,
		Pretty:   c.Log.Pretty,
		Encoding: c.Log.Encoding,
		App:      c.App.Name,
		Env:      c.App.Env,
		Ver:      c.App.Version,
	}
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:         c.OTEL.Enable,
		Endpoint:       c.OTEL.OTLPEndpoint,
		ServiceName:    c.OTEL.ServiceName,
		ServiceVersion: c.App.Version,
		Environment:    c.App.Env,
		SampleRatio:    c.OTEL.SampleRatio,
	}
}

func (k *KafkaIn) AsConsumerConfig() *kafkax.ConsumerConfig {
	return &kafkax.ConsumerConfig{
		Brokers:       k.Brokers,
		GroupID:       k.GroupID,
		Topic:         k.Topic,
		FromBeginning: k.FromBeginning,
	}
}

func (g *Gateway) AsDriverConfig() gateway.DriverConfig {
	return gateway.DriverConfig{
		Provider:   g.Provider,
		BaseURL:    g.BaseURL,
		Username:   g.Username,
		Password:   g.Password,
		APIKey:     g.APIKey,
		AccountSID: g.AccountSID,
		AuthToken:  g.AuthToken,
		Unicode:    g.Unicode,
		Flash:      g.Flash,
	}
}

func (g *Gateway) AsHTTPConfig() gateway.HTTPConfig {
	return gateway.HTTPConfig{Timeout: g.Timeout, UserAgent: g.UserAgent, VerifyTLS: g.VerifyTLS}
}

func (n *Notify) AsResolverConfig() recipient.Config {
	return recipient.Config{
		AdminMobile:     n.AdminMobile,
		PostTypes:       n.PostTypes,
		AuthorPostTypes: n.AuthorPostTypes,
		LoginRoles:      n.LoginRoles,
		SendMMS:         n.SendMMS,
	}
}

func (o *OTP) AsRateLimit() otp.RateLimit {
	return otp.RateLimit{Window: o.Window, MaxCount: o.MaxCount, MaxIssued: o.MaxSends}.WithDefaults()
}

func (m *Mobile) AsRules() phone.Rules {
	return phone.Rules{International: m.International, MinLength: m.MinLength, MaxLength: m.MaxLength}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
