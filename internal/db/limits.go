package db

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limits bounds each round trip to a Source. Zero values disable a limit.
type Limits struct {
	Timeout time.Duration // per round trip; 0 = none
	QPS     float64       // round trips per second; 0 = unlimited
	Burst   int           // limiter burst; values < 1 are treated as 1
}

// limitedSource decorates a Source with a rate limiter and a per-call
// timeout. It holds no other state.
type limitedSource struct {
	src     Source
	limiter *rate.Limiter
	timeout time.Duration
}

// WithLimits wraps src. When l disables both limits src is returned as is.
func WithLimits(src Source, l Limits) Source {
	if l.Timeout <= 0 && l.QPS <= 0 {
		return src
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if l.QPS > 0 {
		burst := l.Burst
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(l.QPS), burst)
	}
	return &limitedSource{src: src, limiter: lim, timeout: l.Timeout}
}

// begin waits for a limiter token and derives the round-trip context.
func (s *limitedSource) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	if s.timeout > 0 {
		c, cancel := context.WithTimeout(ctx, s.timeout)
		return c, cancel, nil
	}
	return ctx, func() {}, nil
}

func (s *limitedSource) ListTables(ctx context.Context, schema string) ([]string, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return s.src.ListTables(ctx, schema)
}

func (s *limitedSource) ListColumns(ctx context.Context, schema, table string) ([]Column, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return s.src.ListColumns(ctx, schema, table)
}

func (s *limitedSource) CountRows(ctx context.Context, table string) (string, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()
	return s.src.CountRows(ctx, table)
}

func (s *limitedSource) QueryLines(ctx context.Context, query string) ([]string, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return s.src.QueryLines(ctx, query)
}

// ScanRows applies the timeout to the whole scan, not to each row.
func (s *limitedSource) ScanRows(ctx context.Context, table string, columns []Column, fn func([]any) error) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return s.src.ScanRows(ctx, table, columns, fn)
}

// Close is not limited.
func (s *limitedSource) Close(ctx context.Context) error { return s.src.Close(ctx) }
