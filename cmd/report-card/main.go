package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/repository"
	"github.com/noah-isme/sma-report-card/internal/service"
	"github.com/noah-isme/sma-report-card/pkg/config"
	"github.com/noah-isme/sma-report-card/pkg/export"
	"github.com/noah-isme/sma-report-card/pkg/logger"
	"github.com/noah-isme/sma-report-card/pkg/mailer"
)

const drainTimeout = 30 * time.Second

type options struct {
	input   string
	student string
	order   string
	scale   string
	format  string
	out     string
	send    string
}

func parseFlags(cfg *config.Config) options {
	var opts options
	flag.StringVar(&opts.input, "input", cfg.Roster.Path, "roster file (yaml or json)")
	flag.StringVar(&opts.student, "student", "", "student id; every student when empty")
	flag.StringVar(&opts.order, "order", cfg.Reports.SortOrder, "transcript order: ascending|descending")
	flag.StringVar(&opts.scale, "scale", cfg.Reports.GPAScale, "gpa scale: percent|four_point")
	flag.StringVar(&opts.format, "format", "text", "output format for -out: text|csv|pdf")
	flag.StringVar(&opts.out, "out", "", "write the rendered report to this file")
	flag.StringVar(&opts.send, "send", "", "email the report to this parent address")
	flag.Parse()
	return opts
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	opts := parseFlags(cfg)
	if err := run(context.Background(), cfg, opts, logr); err != nil {
		logr.Error("report failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logr *zap.Logger) error {
	order, err := models.ParseSortOrder(opts.order)
	if err != nil {
		return err
	}
	scale, err := models.ParseGPAScale(opts.scale)
	if err != nil {
		return err
	}
	format, err := models.ParseReportFormat(opts.format)
	if err != nil {
		return err
	}
	rule, err := models.NewAttendanceRule(cfg.Attendance.Mode, cfg.Attendance.Threshold)
	if err != nil {
		return err
	}

	roster, err := repository.NewFileRosterRepository(opts.input)
	if err != nil {
		return err
	}

	reports := service.NewReportService(roster, nil, nil, export.NewTextRenderer(rule).WithLogger(logr), nil, logr, service.ReportServiceConfig{
		DefaultOrder: order,
		DefaultScale: scale,
	})

	reportOpts := service.ReportOptions{Order: order, Scale: scale}
	var generated []*service.GeneratedReport
	if opts.student != "" {
		report, err := reports.Generate(ctx, opts.student, reportOpts)
		if err != nil {
			return err
		}
		generated = append(generated, report)
	} else {
		generated, err = reports.GenerateAll(ctx, reportOpts)
		if err != nil {
			return err
		}
	}

	for _, report := range generated {
		fmt.Fprintln(os.Stdout, report.Text)
	}

	if opts.out != "" {
		for _, report := range generated {
			path := outputPath(opts.out, report.Data.StudentID, len(generated) > 1)
			data, err := reports.Render(report, format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			logr.Info("report written", zap.String("path", path), zap.String("format", string(format)))
		}
	}

	if opts.send != "" {
		send(ctx, cfg, generated, opts.send, logr)
	}
	return nil
}

// send delivers every report and waits for the queue. Failures are logged
// only; the printed report stands on its own.
func send(ctx context.Context, cfg *config.Config, generated []*service.GeneratedReport, recipient string, logr *zap.Logger) {
	sender, err := mailer.New(cfg.Mail, logr)
	if err != nil {
		logr.Warn("report delivery unavailable", zap.Error(err))
		return
	}

	delivery := service.NewDeliveryService(sender, nil, logr, service.DeliveryConfig{
		Workers:         cfg.Mail.Workers,
		Retries:         cfg.Mail.Retries,
		RetryDelay:      cfg.Mail.RetryDelay,
		TrackingEnabled: cfg.Tracking.Enabled,
		TrackingBaseURL: cfg.Tracking.BaseURL,
	})
	delivery.Start(ctx)

	var jobIDs []string
	for _, report := range generated {
		outcome, err := delivery.Deliver(ctx, report, recipient)
		if err != nil {
			logr.Warn("report delivery rejected", zap.String("student_id", report.Data.StudentID), zap.Error(err))
			continue
		}
		jobIDs = append(jobIDs, outcome.JobID)
	}

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	if err := delivery.Shutdown(drainCtx); err != nil {
		logr.Warn("report delivery timed out", zap.Error(err))
	}

	for _, id := range jobIDs {
		outcome, err := delivery.Outcome(id)
		if err != nil {
			continue
		}
		if outcome.Status == service.DeliveryStatusSent {
			fmt.Fprintf(os.Stdout, "Report for %s sent to %s (tracking id %s)\n", outcome.StudentID, outcome.Recipient, outcome.JobID)
			continue
		}
		fmt.Fprintf(os.Stderr, "Report for %s not delivered: %s\n", outcome.StudentID, outcome.Error)
	}
}

// outputPath returns out unchanged for a single report, otherwise it inserts
// the student id before the extension.
func outputPath(out, studentID string, many bool) string {
	if !many {
		return out
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "-" + studentID + ext
}
