package pathfind

import (
	"context"

	"github.com/l1jgo/gridnav/internal/data"
	"golang.org/x/sync/errgroup"
)

// Query is one route request for FindPaths.
type Query struct {
	From, To Point
	// Avoid makes the query occupancy-aware (see FindPathAvoiding).
	Avoid bool
}

// FindPaths answers queries concurrently on up to workers goroutines, each
// with its own Pathfinder. results[i] answers queries[i]. The map and occ
// must not be mutated until FindPaths returns. Returns ctx.Err() if the
// context is cancelled before all queries ran.
func FindPaths(ctx context.Context, m *data.GridMap, occ Occupancy, queries []Query, workers int) ([][]Point, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(queries) {
		workers = len(queries)
	}
	results := make([][]Point, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			pf := New()
			for i := w; i < len(queries); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				q := queries[i]
				if q.Avoid && occ != nil {
					results[i] = pf.FindPathAvoiding(m, occ, q.From.X, q.From.Y, q.To.X, q.To.Y)
				} else {
					results[i] = pf.FindPath(m, q.From.X, q.From.Y, q.To.X, q.To.Y)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
