// Package storage provides blob store adapters for uploaded media.
package storage

import (
	"errors"
	"sync"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// Progress converts transferred byte counts into upload percentages.
// It is both an io.Reader (the shape minio-go expects for its progress hook)
// and an io.Writer (for io.TeeReader). Reported values never decrease.
type Progress struct {
	mu     sync.Mutex
	total  int64
	done   int64
	last   float64
	report repository.ProgressFunc
}

// NewProgress returns a tracker for an upload of total bytes.
// A non-positive total disables intermediate reports; Complete still reports 100.
func NewProgress(total int64, report repository.ProgressFunc) *Progress {
	return &Progress{total: total, report: report}
}

// Read counts len(b) transferred bytes. The buffer content is ignored.
func (p *Progress) Read(b []byte) (int, error) {
	p.advance(int64(len(b)))
	return len(b), nil
}

// Write counts len(b) transferred bytes.
func (p *Progress) Write(b []byte) (int, error) {
	p.advance(int64(len(b)))
	return len(b), nil
}

// Complete reports 100 unless it was already reported.
func (p *Progress) Complete() {
	if p.report == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last < 100 {
		p.last = 100
		p.report(100)
	}
}

func (p *Progress) advance(n int64) {
	if p.report == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.done += n
	if p.total <= 0 {
		return
	}

	pct := float64(p.done) * 100 / float64(p.total)
	if pct > 100 {
		pct = 100
	}
	// Retried parts are counted again; only forward movement is reported.
	if pct <= p.last {
		return
	}
	p.last = pct
	p.report(pct)
}

// Observe records a blob store operation outcome.
func Observe(op, backend string, err error) {
	status := metrics.StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrObjectNotFound), errors.Is(err, repository.ErrBucketNotFound):
		status = metrics.StatusNotFound
	default:
		status = metrics.StatusError
	}
	metrics.BlobOperationsTotal.WithLabelValues(op, backend, status).Inc()
}
