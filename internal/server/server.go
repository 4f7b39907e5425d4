package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tradieapp/internal/auth/authenticator"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/session"
	"github.com/smallbiznis/tradieapp/internal/auth/token"
	"github.com/smallbiznis/tradieapp/internal/authorization"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	"github.com/smallbiznis/tradieapp/internal/config"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	jobdomain "github.com/smallbiznis/tradieapp/internal/job/domain"
	"github.com/smallbiznis/tradieapp/internal/observability"
	obslogger "github.com/smallbiznis/tradieapp/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tradieapp/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tradieapp/internal/observability/tracing"
	organizationdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	paymentdomain "github.com/smallbiznis/tradieapp/internal/payment/domain"
	quotedomain "github.com/smallbiznis/tradieapp/internal/quote/domain"
	"github.com/smallbiznis/tradieapp/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RunHTTP serves the engine behind CORS for the dashboard and mobile origins.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "X-Correlation-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Correlation-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})(s.Engine())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	genID           *snowflake.Node
	authenticator   *authenticator.Authenticator
	authsvc         authdomain.Service
	sessions        *session.Manager
	tokens          *token.Service
	authzSvc        authorization.Service
	organizationSvc organizationdomain.Service
	clientSvc       clientdomain.Service
	jobSvc          jobdomain.Service
	quoteSvc        quotedomain.Service
	invoiceSvc      invoicedomain.Service
	paymentSvc      paymentdomain.Service
	auditSvc        auditdomain.Service
	limiter         *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	GenID           *snowflake.Node
	Authenticator   *authenticator.Authenticator
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	Tokens          *token.Service
	AuthzSvc        authorization.Service
	OrganizationSvc organizationdomain.Service
	ClientSvc       clientdomain.Service
	JobSvc          jobdomain.Service
	QuoteSvc        quotedomain.Service
	InvoiceSvc      invoicedomain.Service
	PaymentSvc      paymentdomain.Service
	AuditSvc        auditdomain.Service `optional:"true"`
	Limiter         *ratelimit.Limiter  `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             log.Named("http.server"),
		genID:           p.GenID,
		authenticator:   p.Authenticator,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		tokens:          p.Tokens,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		clientSvc:       p.ClientSvc,
		jobSvc:          p.JobSvc,
		quoteSvc:        p.QuoteSvc,
		invoiceSvc:      p.InvoiceSvc,
		paymentSvc:      p.PaymentSvc,
		auditSvc:        p.AuditSvc,
		limiter:         p.Limiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.RateLimitLogin(), s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)

	mobile := auth.Group("/mobile")
	{
		mobile.POST("/login", s.RateLimitLogin(), s.MobileLogin)
		mobile.POST("/pairing", s.AuthRequired(), s.MobilePairing)
		mobile.POST("/exchange", s.RateLimitLogin(), s.MobileExchange)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ClientInfo(), s.AuthRequired())

	api.GET("/orgs", s.ListUserOrgs)
	api.POST("/orgs", s.CreateOrganization)

	org := api.Group("/orgs/:org_id", s.OrgScope())

	// -------- Organization --------
	org.GET("", s.authorize(authorization.ActionOrgView), s.GetOrganization)
	org.GET("/members", s.authorize(authorization.ActionOrgView), s.ListMembers)
	org.POST("/members", s.authorize(authorization.ActionMemberManage), s.AddMember)
	org.PATCH("/members/:member_id", s.authorize(authorization.ActionMemberManage), s.UpdateMember)
	org.GET("/audit-logs", s.authorize(authorization.ActionAuditView), s.ListAuditLogs)

	// -------- Clients --------
	org.GET("/clients", s.authorize(authorization.ActionClientView), s.ListClients)
	org.POST("/clients", s.authorize(authorization.ActionClientCreate), s.CreateClient)
	org.GET("/clients/:id", s.authorize(authorization.ActionClientView), s.GetClientByID)
	org.PATCH("/clients/:id", s.authorize(authorization.ActionClientUpdate), s.UpdateClient)

	// -------- Jobs --------
	org.GET("/jobs", s.authorize(authorization.ActionJobView), s.ListJobs)
	org.POST("/jobs", s.authorize(authorization.ActionJobCreate), s.CreateJob)
	org.GET("/jobs/:id", s.authorize(authorization.ActionJobView), s.GetJobByID)
	org.PATCH("/jobs/:id", s.authorizeJobEdit(), s.UpdateJob)

	// -------- Quotes --------
	org.GET("/quotes", s.authorize(authorization.ActionQuoteView), s.ListQuotes)
	org.POST("/quotes", s.authorize(authorization.ActionQuoteCreate), s.CreateQuote)
	org.GET("/quotes/:id", s.authorize(authorization.ActionQuoteView), s.GetQuoteByID)
	org.PATCH("/quotes/:id", s.authorize(authorization.ActionQuoteUpdate), s.UpdateQuote)
	org.POST("/quotes/:id/line-items", s.authorize(authorization.ActionQuoteUpdate), s.AddQuoteLineItem)
	org.DELETE("/quotes/:id/line-items/:line_id", s.authorize(authorization.ActionQuoteUpdate), s.DeleteQuoteLineItem)
	org.POST("/quotes/:id/send", s.authorize(authorization.ActionQuoteSend), s.SendQuote)
	org.POST("/quotes/:id/accept", s.authorize(authorization.ActionQuoteAccept), s.AcceptQuote)
	org.POST("/quotes/:id/reject", s.authorize(authorization.ActionQuoteReject), s.RejectQuote)
	org.POST("/quotes/:id/reopen", s.authorize(authorization.ActionQuoteReopen), s.ReopenQuote)
	org.POST("/quotes/:id/deposit-paid", s.authorize(authorization.ActionQuoteUpdate), s.MarkQuoteDepositPaid)
	org.POST("/quotes/:id/deposit-link", s.authorize(authorization.ActionQuoteSend), s.CreateQuoteDepositLink)
	org.POST("/quotes/:id/convert", s.authorize(authorization.ActionQuoteConvert), s.ConvertQuoteToInvoice)

	// -------- Invoices --------
	org.GET("/invoices", s.authorize(authorization.ActionInvoiceView), s.ListInvoices)
	org.POST("/invoices", s.authorize(authorization.ActionInvoiceCreate), s.CreateInvoice)
	org.GET("/invoices/:id", s.authorize(authorization.ActionInvoiceView), s.GetInvoiceByID)
	org.PATCH("/invoices/:id", s.authorize(authorization.ActionInvoiceUpdate), s.UpdateInvoice)
	org.POST("/invoices/:id/line-items", s.authorize(authorization.ActionInvoiceUpdate), s.AddInvoiceLineItem)
	org.DELETE("/invoices/:id/line-items/:line_id", s.authorize(authorization.ActionInvoiceUpdate), s.DeleteInvoiceLineItem)
	org.POST("/invoices/:id/send", s.authorize(authorization.ActionInvoiceSend), s.SendInvoice)

	// -------- Payments --------
	org.GET("/invoices/:id/payments", s.authorize(authorization.ActionPaymentView), s.ListPayments)
	org.POST("/invoices/:id/payments", s.authorize(authorization.ActionPaymentRecord), s.RecordPayment)
	org.DELETE("/invoices/:id/payments/:payment_id", s.authorize(authorization.ActionPaymentDelete), s.DeletePayment)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public", s.RateLimitPublic(), s.ClientInfo(), s.PublicActor())

	public.GET("/quotes/:token", s.GetPublicQuote)
	public.POST("/quotes/:token/accept", s.AcceptPublicQuote)
	public.POST("/quotes/:token/reject", s.RejectPublicQuote)
	public.POST("/quotes/:token/deposit-link", s.CreatePublicDepositLink)

	public.GET("/invoices/:token", s.GetPublicInvoice)
}
