package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksgate/internal/metrics"
)

type RelayConfig struct {
	// IdleTimeout ends the relay once neither direction has read any data
	// for this long. Zero disables it.
	IdleTimeout time.Duration

	// WriteTimeout bounds each individual write. Zero disables it.
	WriteTimeout time.Duration
}

// CopyBidirectional relays bytes between client and dest until both
// directions have finished. When one direction sees EOF or an error, it
// half-closes its destination and leaves the opposite direction running.
// Both connections are closed before returning, or as soon as ctx is done.
func CopyBidirectional(ctx context.Context, client, dest net.Conn, cfg RelayConfig) error {
	defer client.Close()
	defer dest.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = client.Close()
		_ = dest.Close()
	})
	defer stop()

	var act activity
	act.touch()

	// A plain Group: one direction finishing must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		return relay(dest, client, cfg, &act, metrics.RelayedBytes.WithLabelValues(metrics.Upload))
	})
	g.Go(func() error {
		return relay(client, dest, cfg, &act, metrics.RelayedBytes.WithLabelValues(metrics.Download))
	})

	return g.Wait()
}

func relay(dst, src net.Conn, cfg RelayConfig, act *activity, counter prometheus.Counter) error {
	bp := relayBuffers.Get()
	defer relayBuffers.Put(bp)

	_, err := copyBuffer(dst, src, *bp, cfg, act, counter)
	closeWrite(dst)

	return err
}

// copyBuffer is io.CopyBuffer with per-operation deadlines. A read that times
// out while the opposite direction is still moving data is retried.
func copyBuffer(dst, src net.Conn, buf []byte, cfg RelayConfig, act *activity, counter prometheus.Counter) (int64, error) {
	var written int64
	for {
		if cfg.IdleTimeout > 0 {
			_ = src.SetReadDeadline(time.Now().Add(cfg.IdleTimeout))
		}

		nr, rerr := src.Read(buf)
		if nr > 0 {
			act.touch()

			if cfg.WriteTimeout > 0 {
				_ = dst.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			}

			nw, werr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
				counter.Add(float64(nw))
			}
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			if errors.Is(rerr, os.ErrDeadlineExceeded) && act.since() < cfg.IdleTimeout {
				continue
			}
			return written, rerr
		}
	}
}

// closeWrite half-closes c, or fully closes it if half-close isn't possible.
func closeWrite(c net.Conn) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		if cw.CloseWrite() == nil {
			return
		}
	}
	_ = c.Close()
}

// activity is the last time either relay direction read data.
type activity struct {
	last atomic.Int64
}

func (a *activity) touch() {
	a.last.Store(time.Now().UnixNano())
}

func (a *activity) since() time.Duration {
	return time.Duration(time.Now().UnixNano() - a.last.Load())
}
