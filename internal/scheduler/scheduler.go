// Package scheduler runs periodic maintenance over time-dependent document
// state. Quote expiry and invoice overdue status are always derived at read
// time, and the sweeps here persist them so that list filters and reports
// see the same status a reader would.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/clock"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/tradieapp/internal/observability/metrics"
	quotedomain "github.com/smallbiznis/tradieapp/internal/quote/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const (
	jobExpireQuotes    = "expire_quotes"
	jobOverdueInvoices = "overdue_invoices"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	QuoteRepo   quotedomain.Repository
	InvoiceRepo invoicedomain.Repository
	Metrics     *obsmetrics.Metrics `optional:"true"`
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      Config `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	metrics  *obsmetrics.Metrics
	quotes   quotedomain.Repository
	invoices invoicedomain.Repository
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.QuoteRepo == nil || p.InvoiceRepo == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		metrics:  p.Metrics,
		quotes:   p.QuoteRepo,
		invoices: p.InvoiceRepo,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		s.metrics.RecordSchedulerJob(ctx, name, "ok")
		return nil
	}

	// deadline is a soft timeout: the next run picks up the remainder
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordSchedulerJob(ctx, name, "timeout")
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	s.metrics.RecordSchedulerJob(ctx, name, "error")
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{jobExpireQuotes, s.ExpireQuotesJob},
		{jobOverdueInvoices, s.OverdueInvoicesJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, 30*time.Second, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// isJobEnabled treats an empty EnabledJobs list as all jobs enabled.
func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
