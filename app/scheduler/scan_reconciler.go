// Package scheduler contains background loops that keep scan state consistent
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/repository"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/natefinch/lumberjack.v2"
)

var reconciledScansTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "clipsaver_reconciled_scans_total",
		Help: "Stuck queued scans failed by the reconciliation sweep",
	},
)

// ScanReconciler periodically fails channels stuck in the queued state.
// A channel can get stranded there when the process dies between reserving
// the status row and the worker picking the job up; the sweep is the
// backstop that returns such channels to a dispatchable state.
type ScanReconciler struct {
	statusRepo repository.ScanStatusRepository
	logger     *log.Logger
	interval   time.Duration
	maxAge     time.Duration
}

func NewScanReconciler(statusRepo repository.ScanStatusRepository, interval, maxAge time.Duration) *ScanReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxAge <= 0 {
		maxAge = utils.QueuedReservationTimeout
	}

	s := &ScanReconciler{
		statusRepo: statusRepo,
		interval:   interval,
		maxAge:     maxAge,
	}
	s.initLogger()

	return s
}

// initLogger configures a logger that writes to both stdout and a rotating
// file under data/ (or /data for containerized environments)
func (s *ScanReconciler) initLogger() {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "reconciler.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		mw := io.MultiWriter(os.Stdout, rotator)
		s.logger = log.New(mw, "reconciler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return
	}

	s.logger = log.Default()
	s.logger.Printf("reconciler: could not create log file, using stdout only")
}

// Start launches the sweep loop in a background goroutine and returns a stop function
func (s *ScanReconciler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *ScanReconciler) runOnce(ctx context.Context) {
	failed, err := s.statusRepo.FailStuckQueued(ctx, s.maxAge, "scan was queued but never picked up by a worker")
	if err != nil {
		s.logger.Printf("sweep failed: %v", err)
		return
	}
	if failed > 0 {
		reconciledScansTotal.Add(float64(failed))
		s.logger.Printf("failed %d stuck queued scans older than %s", failed, s.maxAge)
	}
}
