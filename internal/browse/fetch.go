package browse

import (
	"context"
	"strings"

	"tvtime-service/internal/model"
	"tvtime-service/internal/service"

	"github.com/sourcegraph/conc"
)

// TrendForwarder sends trend records off the request path. Records outlive
// the request that produced them and are bounded by recordTimeout.
type TrendForwarder struct {
	trends Trends
	wg     conc.WaitGroup
}

// NewTrendForwarder wraps trends; a nil recorder makes Forward a no-op
func NewTrendForwarder(trends Trends) *TrendForwarder {
	return &TrendForwarder{trends: trends}
}

// Forward records cmd on a background goroutine
func (f *TrendForwarder) Forward(ctx context.Context, cmd RecordCommand) {
	if f == nil || f.trends == nil {
		return
	}
	f.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		f.trends.Record(ctx, cmd.Term, cmd.Movie)
	})
}

// Wait blocks until every forwarded record has finished
func (f *TrendForwarder) Wait() {
	if f == nil {
		return
	}
	f.wg.Wait()
}

// FetchOnce runs a single list fetch outside any session: the same transitions
// as a session fetch, with the catalog error returned to the caller. The trend
// record for a non-empty query goes through trends without delaying the result.
func FetchOnce(ctx context.Context, catalog service.Catalog, trends *TrendForwarder, query string, sort model.SortKey, page int) (State, error) {
	s := InitialState()
	s.Sort = sort
	s.Query = strings.TrimSpace(query)
	s.Page = model.ClampPage(page)

	s, eff := Reduce(s, RefreshRequested{})
	cmd := *eff.Fetch

	var (
		result *model.PagedMovies
		err    error
	)
	if cmd.Mode == model.ModeSearch {
		result, err = catalog.Search(ctx, cmd.Query, cmd.Page)
	} else {
		result, err = catalog.Discover(ctx, cmd.Sort, cmd.Page)
	}
	if err != nil {
		s, _ = Reduce(s, FetchFailed{Gen: cmd.Gen, Err: err})
		return s, err
	}

	s, eff = Reduce(s, FetchSucceeded{Gen: cmd.Gen, Result: result})
	if eff.Record != nil {
		trends.Forward(ctx, *eff.Record)
	}
	return s, nil
}
