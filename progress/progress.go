// Package progress reports the throughput of long copies, such as
// importing a host file into a volume.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gokrazy/ecsfs/humanize"
)

type Reporter struct {
	transferred uint64
	total       uint64

	// Out receives the status line. Defaults to os.Stderr.
	Out      io.Writer
	// Interval between status lines. Defaults to one second.
	Interval time.Duration

	mu     sync.Mutex
	status string
}

// Writer counts the bytes written to it as transferred. Use it with
// io.TeeReader or io.MultiWriter.
type Writer struct {
	p *Reporter
}

func (w Writer) Write(p []byte) (n int, err error) {
	atomic.AddUint64(&w.p.transferred, uint64(len(p)))
	return len(p), nil
}

func (p *Reporter) Writer() Writer { return Writer{p: p} }

// Reset returns the number of bytes transferred so far and starts
// counting from zero.
func (p *Reporter) Reset() uint64 {
	return atomic.SwapUint64(&p.transferred, 0)
}

func (p *Reporter) Transferred() uint64 {
	return atomic.LoadUint64(&p.transferred)
}

func (p *Reporter) SetStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *Reporter) SetTotal(total uint64) {
	atomic.StoreUint64(&p.total, total)
}

func (p *Reporter) getStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Reporter) line(bytesPerS uint64) string {
	transferred := atomic.LoadUint64(&p.transferred)
	rate := humanize.BPS(bytesPerS)
	status := rate
	if total := atomic.LoadUint64(&p.total); total > 0 {
		pct := float64(transferred) / float64(total) * 100
		status = fmt.Sprintf("%02.2f%% of %s, writing at %s",
			pct,
			humanize.Bytes(total),
			rate)
	}
	return fmt.Sprintf("\r[%s] %s                 ", p.getStatus(), status)
}

// Report prints a status line every Interval until ctx is done.
func (p *Reporter) Report(ctx context.Context) {
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	interval := p.Interval
	if interval == 0 {
		interval = 1 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := atomic.LoadUint64(&p.transferred)
	for {
		select {
		case <-ticker.C:
			transferred := atomic.LoadUint64(&p.transferred)
			if transferred < last {
				// transferred was reset
				last = 0
			}
			bytesPerS := uint64(float64(transferred-last) / interval.Seconds())
			last = transferred
			fmt.Fprint(out, p.line(bytesPerS))
		case <-ctx.Done():
			return
		}
	}
}
