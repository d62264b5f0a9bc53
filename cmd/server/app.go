package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/warp/leave-register/account"
	"github.com/warp/leave-register/calendar"
	"github.com/warp/leave-register/holidays"
	"github.com/warp/leave-register/recordstore/backend"
	"github.com/warp/leave-register/report"
	"github.com/warp/leave-register/telemetry"
	"github.com/warp/leave-register/timeoff"
	"go.uber.org/zap"
)

// domain holds the pieces that need no store.
type domain struct {
	rules    holidays.Ruleset
	engine   *calendar.Engine
	compiler *report.Compiler
	locale   string
}

func newDomain() (*domain, error) {
	rules, err := cfg.Ruleset()
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	hours, err := layout.Schedule.Hours()
	if err != nil {
		return nil, err
	}
	compiler, err := report.NewCompiler(layout)
	if err != nil {
		return nil, err
	}
	return &domain{
		rules:    rules,
		engine:   calendar.NewEngine(rules, calendar.WithDailyHours(hours)),
		compiler: compiler,
		locale:   layout.Locale,
	}, nil
}

// app is the domain plus the store-backed service.
type app struct {
	*domain
	opened   *backend.Opened
	service  *timeoff.Service
	shutdown telemetry.Shutdown
}

func newApp(ctx context.Context) (*app, error) {
	d, err := newDomain()
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Tracing, logger.Named("telemetry"))
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	opened, err := backend.Open(ctx, cfg.Store, logger.Named("store"))
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	opts := []timeoff.Option{timeoff.WithDefaultTotalDays(cfg.Store.DefaultTotalDays)}
	if cfg.Report.Template != "" {
		tpl, err := loadTemplate(cfg.Report.Template)
		if err != nil {
			opened.Close()
			_ = shutdown(ctx)
			return nil, err
		}
		opts = append(opts, timeoff.WithTemplate(tpl))
	}

	accounts := account.NewDirectory(opened.Store, logger.Named("account"))
	svc := timeoff.NewService(opened.Store, accounts, d.engine, d.compiler, logger.Named("timeoff"), opts...)
	return &app{domain: d, opened: opened, service: svc, shutdown: shutdown}, nil
}

// Close releases the store and flushes pending spans.
func (a *app) Close() error {
	storeErr := a.opened.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		logger.Warn("failed to flush traces", zap.Error(err))
	}
	return storeErr
}

func loadTemplate(path string) (report.Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return report.Template{}, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()
	return report.LoadTemplate(f)
}
