package padim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers задаёт число горутин для работы по ячейкам. 0 означает GOMAXPROCS.
var Workers = 0

func workerCount(n int) int {
	w := Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// forEachRange делит [0, n) на непрерывные куски и обрабатывает их параллельно.
// Куски не пересекаются, поэтому fn может писать в свою часть общего результата без блокировок.
func forEachRange(ctx context.Context, n int, fn func(ctx context.Context, lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	workers := workerCount(n)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			return fn(gctx, lo, hi)
		})
	}
	return g.Wait()
}
