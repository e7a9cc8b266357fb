package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/NordCoder/Smsgate/internal/dispatch"
	"github.com/NordCoder/Smsgate/internal/domain/notification"
	"github.com/NordCoder/Smsgate/internal/domain/otp"
	"github.com/NordCoder/Smsgate/internal/obs"
	otpsvc "github.com/NordCoder/Smsgate/internal/otp"
	"github.com/NordCoder/Smsgate/internal/phone"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	DefaultAgent = "otp-api"

	msgTooManyAttempts = "Too many verification attempts, please try some other time."
	maxBodyBytes       = 4 << 10
)

var mOTP = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sms_otp_requests_total",
	Help: "OTP API requests by operation and result.",
}, []string{"op", "result"})

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Opts struct {
	Logger   *zap.Logger
	Rules    phone.Rules
	Template string
	Verifier otpsvc.Config
	// RecentInterval bounds both GET /v1/otp/verified and the send short-circuit.
	RecentInterval time.Duration
}

type Server struct {
	log        *zap.Logger
	codes      otp.CodeRepo
	attempts   otp.AttemptRepo
	tx         Transactor
	dispatcher *dispatch.Dispatcher
	reports    *Reports
	o          Opts
}

func NewServer(codes otp.CodeRepo, attempts otp.AttemptRepo, tx Transactor, d *dispatch.Dispatcher, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if o.Template == "" {
		o.Template = "%otp_code%"
	}
	return &Server{
		log:        log.With(zap.String("component", "http-api")),
		codes:      codes,
		attempts:   attempts,
		tx:         tx,
		dispatcher: d,
		o:          o,
	}
}

// WithReports exposes the read-only delivery log and subscriber group listings.
func (s *Server) WithReports(r *Reports) *Server {
	cp := *s
	cp.reports = r
	return &cp
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("sms-api"), limitBody(maxBodyBytes))

	v1 := r.Group("/v1")
	v1.POST("/otp/send", s.send)
	v1.POST("/otp/verify", s.verify)
	v1.GET("/otp/verified", s.verified)
	if s.reports != nil {
		s.reports.register(v1, s.log)
	}
	return r
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

type sendRequest struct {
	Phone string `json:"phone" binding:"required"`
	Agent string `json:"agent"`
}

type verifyRequest struct {
	Phone string `json:"phone" binding:"required"`
	Agent string `json:"agent"`
	Code  string `json:"code" binding:"required"`
}

type verifiedQuery struct {
	Phone string `form:"phone" binding:"required"`
	Agent string `form:"agent"`
}

func (s *Server) verifier(phoneNumber, agent string) *otpsvc.Verifier {
	if agent == "" {
		agent = DefaultAgent
	}
	return otpsvc.NewVerifier(s.codes, s.attempts, phoneNumber, agent, s.o.Verifier)
}

// normalize prepares and validates the number; the error text is safe to show.
func (s *Server) normalize(raw string) (string, error) {
	n := s.o.Rules.Prepare(raw)
	if err := s.o.Rules.Validate(n); err != nil {
		return "", err
	}
	return n, nil
}

func badRequest(c *gin.Context, op string, err error) {
	mOTP.WithLabelValues(op, "bad_request").Inc()
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) internalError(c *gin.Context, op, msg string, err error) {
	mOTP.WithLabelValues(op, "error").Inc()
	obs.WithTrace(c.Request.Context(), s.log).Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// send issues and texts a fresh code unless the number was verified within
// RecentInterval, in which case nothing is sent.
func (s *Server) send(c *gin.Context) {
	ctx := c.Request.Context()

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "send", errors.New("malformed request body"))
		return
	}
	n, err := s.normalize(req.Phone)
	if err != nil {
		badRequest(c, "send", err)
		return
	}

	v := s.verifier(n, req.Agent)
	recent, err := v.RecentlyVerified(ctx, s.o.RecentInterval)
	if err != nil {
		s.internalError(c, "send", "otp recently verified", err)
		return
	}
	if recent {
		mOTP.WithLabelValues("send", "already_verified").Inc()
		c.JSON(http.StatusOK, gin.H{"sent": false, "verified": true})
		return
	}

	if err := v.LimitIssuance(ctx); err != nil {
		if errors.Is(err, otp.ErrTooManyCodes) {
			mOTP.WithLabelValues("send", "throttled").Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		s.internalError(c, "send", "otp issuance limit", err)
		return
	}

	code, err := v.Issue(ctx)
	if err != nil {
		s.internalError(c, "send", "otp issue", err)
		return
	}

	res := s.dispatcher.DispatchOne(ctx, notification.ForOTP(n, code), s.o.Template, n)
	if !res.OK() {
		mOTP.WithLabelValues("send", "gateway_error").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": res.Err.Message, "code": string(res.Err.Code)})
		return
	}
	mOTP.WithLabelValues("send", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"sent": true, "phone": n})
}

func (s *Server) verify(c *gin.Context) {
	ctx := c.Request.Context()

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "verify", errors.New("phone and code are required"))
		return
	}
	n, err := s.normalize(req.Phone)
	if err != nil {
		badRequest(c, "verify", err)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		badRequest(c, "verify", errors.New("code is required"))
		return
	}

	v := s.verifier(n, req.Agent)
	if err := v.LimitVerification(ctx); err != nil {
		if errors.Is(err, otp.ErrTooManyAttempts) {
			mOTP.WithLabelValues("verify", "locked").Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": msgTooManyAttempts})
			return
		}
		s.internalError(c, "verify", "otp limit", err)
		return
	}

	var ok bool
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		ok, err = v.Verify(ctx, code)
		return err
	})
	if err != nil {
		s.internalError(c, "verify", "otp verify", err)
		return
	}

	if ok {
		mOTP.WithLabelValues("verify", "ok").Inc()
	} else {
		mOTP.WithLabelValues("verify", "mismatch").Inc()
	}
	c.JSON(http.StatusOK, gin.H{"verified": ok})
}

func (s *Server) verified(c *gin.Context) {
	var q verifiedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "verified", errors.New("phone is required"))
		return
	}
	n, err := s.normalize(q.Phone)
	if err != nil {
		badRequest(c, "verified", err)
		return
	}
	ok, err := s.verifier(n, q.Agent).RecentlyVerified(c.Request.Context(), s.o.RecentInterval)
	if err != nil {
		s.internalError(c, "verified", "otp recently verified", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": ok})
}
