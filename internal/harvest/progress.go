package harvest

import (
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/marcharvest/internal/logger"
)

// Percent returns current as a rounded percentage of total, or 0 when total is 0.
func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(current) * 100 / float64(total)))
}

// recordsPerSecond returns the throughput of processed records over elapsed.
func recordsPerSecond(processed int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(processed) / elapsed.Seconds()
}

// progress throttles "processed N P%" log lines.
type progress struct {
	log       logger.Logger
	total     int
	sometimes rate.Sometimes
}

func newProgress(log logger.Logger, total int, cfg Config) *progress {
	return &progress{
		log:       log,
		total:     total,
		sometimes: rate.Sometimes{Every: cfg.ProgressEvery, Interval: cfg.ProgressInterval},
	}
}

func (p *progress) report(processed int) {
	p.sometimes.Do(func() {
		p.log.Info("processed",
			logger.Int("processed", processed),
			logger.Int("total", p.total),
			logger.Int("percent", Percent(processed, p.total)))
	})
}
