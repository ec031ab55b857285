package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"trustfuse/internal/config"
	"trustfuse/internal/domain"
	"trustfuse/internal/infra/auditmem"
	"trustfuse/internal/infra/cachemem"
	"trustfuse/internal/infra/db"
	"trustfuse/internal/infra/metrics"
	"trustfuse/internal/infra/policyopa"
	"trustfuse/internal/infra/ratelimit"
	"trustfuse/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	fuse        *usecase.FuseRisk
	assessUC    *usecase.AssessInvoice
	vendorsUC   *usecase.VendorRegistry
	invoicesUC  *usecase.InvoiceRegistry
	invoiceRepo usecase.InvoiceRepository
	verdictRepo usecase.VerdictRepository
	auditRepo   usecase.AuditEventRepository
	routing     usecase.RoutingPolicy
	metrics     *metrics.Metrics

	adminAPIKey string

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Fuse        *usecase.FuseRisk
	Assess      *usecase.AssessInvoice
	Vendors     *usecase.VendorRegistry
	Invoices    *usecase.InvoiceRegistry
	InvoiceRepo usecase.InvoiceRepository
	VerdictRepo usecase.VerdictRepository
	AuditRepo   usecase.AuditEventRepository
	Routing     usecase.RoutingPolicy
	Metrics     *metrics.Metrics
	AdminAPIKey string
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		fuse:        deps.Fuse,
		assessUC:    deps.Assess,
		vendorsUC:   deps.Vendors,
		invoicesUC:  deps.Invoices,
		invoiceRepo: deps.InvoiceRepo,
		verdictRepo: deps.VerdictRepo,
		auditRepo:   deps.AuditRepo,
		routing:     deps.Routing,
		metrics:     deps.Metrics,
		adminAPIKey: deps.AdminAPIKey,
	}
	if s.fuse == nil && s.assessUC != nil {
		s.fuse = s.assessUC.Fuse
	}
	if s.assessUC == nil && s.fuse != nil {
		var emitter *usecase.AuditEmitter
		if s.auditRepo != nil {
			emitter = usecase.NewAuditEmitter(s.auditRepo, nil)
		}
		s.assessUC = &usecase.AssessInvoice{
			Fuse:     s.fuse,
			Invoices: s.invoiceRepo,
			Verdicts: s.verdictRepo,
			Routing:  s.routing,
			Audit:    emitter,
		}
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey
	s.metrics = metrics.New()

	var (
		vendorRepo  usecase.VendorRepository
		epochRepo   usecase.RegistryEpochRepository
		invoiceRepo usecase.InvoiceRepository
		verdictRepo usecase.VerdictRepository
		auditRepo   usecase.AuditEventRepository
	)
	if s.store != nil && s.store.DB != nil {
		vendorRepo = db.NewVendorRepository(s.store.DB)
		epochRepo = db.NewRegistryEpochRepository(s.store.DB)
		invoiceRepo = db.NewInvoiceRepository(s.store.DB)
		verdictRepo = db.NewVerdictRepository(s.store.DB)
		auditRepo = db.NewAuditEventRepository(s.store.DB)
	} else {
		// No-db mode keeps the stateless assessment path and the audit
		// trail alive; registry endpoints report the missing store.
		auditRepo = auditmem.New()
	}
	s.invoiceRepo = invoiceRepo
	s.verdictRepo = verdictRepo
	s.auditRepo = auditRepo

	emitter := usecase.NewAuditEmitter(auditRepo, nil)

	cache := usecase.VerdictCache(&metrics.InstrumentedCache{
		Inner:   cachemem.New(),
		Metrics: s.metrics,
	})

	s.fuse = &usecase.FuseRisk{
		Vendors:        vendorRepo,
		Thresholds:     thresholdsFromConfig(s.cfg),
		Cache:          cache,
		CacheTTL:       s.cfg.CacheTTL(),
		RegistryEpochs: epochRepo,
	}

	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, "routing_v1")
		if err != nil {
			log.Printf("policy bundle %s rejected: %v", s.cfg.PolicyBundlePath, err)
		} else {
			s.routing = engine
		}
	}

	s.assessUC = &usecase.AssessInvoice{
		Fuse:     s.fuse,
		Invoices: invoiceRepo,
		Verdicts: verdictRepo,
		Routing:  s.routing,
		Audit:    emitter,
	}
	if vendorRepo != nil {
		s.vendorsUC = &usecase.VendorRegistry{
			Vendors: vendorRepo,
			Epochs:  epochRepo,
			Audit:   emitter,
		}
	}
	if invoiceRepo != nil {
		s.invoicesUC = &usecase.InvoiceRegistry{
			Invoices: invoiceRepo,
			Audit:    emitter,
		}
	}

	s.initRateLimit(nil)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func thresholdsFromConfig(cfg config.Config) usecase.RiskThresholds {
	thresholds := usecase.DefaultRiskThresholds()
	if cfg.RiskMediumScore > 0 {
		thresholds.MediumScore = cfg.RiskMediumScore
	}
	if cfg.RiskHighScore > 0 {
		thresholds.HighScore = cfg.RiskHighScore
	}
	if cfg.OverrideZScore > 0 {
		thresholds.OverrideZ = cfg.OverrideZScore
	}
	return thresholds
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})
	if s.metrics != nil {
		s.r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.r.Group("/v1")
	{
		v1.POST("/vendors", s.handleRegisterVendor)
		v1.GET("/vendors", s.handleListVendors)
		v1.POST("/vendors/:vendor_id/deactivate", s.handleDeactivateVendor)

		v1.POST("/invoices", s.handleRegisterInvoice)
		v1.GET("/invoices", s.handleListInvoices)
		v1.POST("/invoices/:invoice_id/assess", s.handleAssessInvoice)
		v1.GET("/invoices/:invoice_id/verdicts", s.handleListVerdicts)

		v1.POST("/assess", s.handleAssess)

		v1.GET("/audit/events", s.handleAuditEvents)
		v1.GET("/audit/verify", s.handleVerifyAuditChain)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
