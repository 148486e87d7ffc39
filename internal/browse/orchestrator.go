package browse

import (
	"context"
	"errors"
	"sync"
	"time"

	"tvtime-service/internal/metrics"
	"tvtime-service/internal/model"
	"tvtime-service/internal/service"
	"tvtime-service/pkg/httpclient"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// recordTimeout bounds a background trend write, which outlives the session context
const recordTimeout = 5 * time.Second

// Trends is the trend recorder as the orchestrator uses it
type Trends interface {
	Record(ctx context.Context, term string, movie model.MovieSummary)
	TopN(ctx context.Context, n int) []model.TrendCounter
}

// Options tunes an Orchestrator
type Options struct {
	Debounce      time.Duration
	TrendingLimit int
	GenreLanguage string
}

// Orchestrator owns one browse session. A single goroutine applies events to
// the state; catalog calls run on their own goroutines and report back as
// events.
type Orchestrator struct {
	catalog service.Catalog
	trends  Trends
	opts    Options

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan Event
	debouncer *Debouncer
	bg        conc.WaitGroup
	loopDone  chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	mu    sync.RWMutex
	state State

	// owned by the loop goroutine
	fetchCancel  context.CancelFunc
	detailCancel context.CancelFunc
}

// New creates an orchestrator; call Start to begin the session
func New(catalog service.Catalog, trends Trends, opts Options) *Orchestrator {
	if opts.TrendingLimit <= 0 {
		opts.TrendingLimit = service.DefaultTrendingLimit
	}
	if opts.GenreLanguage == "" {
		opts.GenreLanguage = service.DefaultGenreLanguage
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		catalog:  catalog,
		trends:   trends,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan Event, 64),
		loopDone: make(chan struct{}),
		state:    InitialState(),
	}
	o.debouncer = NewDebouncer(opts.Debounce, func(q string) {
		o.post(QueryCommitted{Query: q})
	})
	return o
}

// Start runs the event loop and issues the initial discover fetch together
// with the genre table and trending strip loads.
func (o *Orchestrator) Start() {
	o.startOnce.Do(func() {
		go o.loop()
		o.post(RefreshRequested{})

		o.bg.Go(func() {
			list, err := o.catalog.Genres(o.ctx, o.opts.GenreLanguage)
			if err != nil {
				if !errors.Is(err, httpclient.ErrRequestAborted) {
					log.Warn().Err(err).Msg("Failed to load TMDB genres")
				}
				return
			}
			o.post(GenresLoaded{Names: list.NameMap()})
		})

		if o.trends != nil {
			o.bg.Go(func() {
				o.post(TrendingLoaded{Items: o.trends.TopN(o.ctx, o.opts.TrendingLimit)})
			})
		}
	})
}

// SetQuery feeds raw search box text; it is committed after the debounce window
func (o *Orchestrator) SetQuery(text string) {
	o.post(InputChanged{Text: text})
}

// SetSort switches ordering, clears the query and returns to page 1
func (o *Orchestrator) SetSort(sort model.SortKey) {
	o.post(SortChanged{Sort: sort})
}

// SetPage jumps to a page, clamped to the catalog's range
func (o *Orchestrator) SetPage(page int) {
	o.post(PageRequested{Page: page})
}

// Refresh re-issues the current fetch
func (o *Orchestrator) Refresh() {
	o.post(RefreshRequested{})
}

// OpenDetail shows movie immediately and loads its full record
func (o *Orchestrator) OpenDetail(movie model.MovieSummary) {
	o.post(DetailOpened{Movie: movie})
}

// CloseDetail hides the detail view
func (o *Orchestrator) CloseDetail() {
	o.post(DetailClosed{})
}

// State returns a snapshot. Treat its slices and maps as read-only.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Close stops the session and waits for background work to drain
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.debouncer.Cancel()
		o.cancel()
		o.startOnce.Do(func() { close(o.loopDone) })
		<-o.loopDone
		o.bg.Wait()
	})
}

func (o *Orchestrator) post(ev Event) {
	select {
	case o.events <- ev:
	case <-o.ctx.Done():
	}
}

func (o *Orchestrator) loop() {
	defer close(o.loopDone)
	for {
		select {
		case ev := <-o.events:
			o.apply(ev)
		case <-o.ctx.Done():
			if o.fetchCancel != nil {
				o.fetchCancel()
			}
			if o.detailCancel != nil {
				o.detailCancel()
			}
			return
		}
	}
}

func (o *Orchestrator) apply(ev Event) {
	o.mu.Lock()
	next, eff := Reduce(o.state, ev)
	o.state = next
	o.mu.Unlock()

	if eff.Discarded {
		metrics.SupersededResponses.Inc()
		return
	}
	if eff.CancelDebounce {
		o.debouncer.Cancel()
	}
	if eff.Debounce != nil {
		o.debouncer.Trigger(*eff.Debounce)
	}
	if eff.Fetch != nil {
		o.startFetch(*eff.Fetch)
	}
	if eff.CancelDetail && o.detailCancel != nil {
		o.detailCancel()
		o.detailCancel = nil
	}
	if eff.Detail != nil {
		o.startDetail(*eff.Detail)
	}
	if eff.DetailErr != nil {
		log.Error().Err(eff.DetailErr).Msg("Error fetching movie details")
	}
	if eff.Record != nil {
		o.startRecord(*eff.Record)
	}
}

// startFetch cancels the superseded request at the transport level; the
// generation check in Reduce is what guarantees its response is dropped.
func (o *Orchestrator) startFetch(cmd FetchCommand) {
	if o.fetchCancel != nil {
		o.fetchCancel()
	}
	ctx, cancel := context.WithCancel(o.ctx)
	o.fetchCancel = cancel

	o.bg.Go(func() {
		var (
			result *model.PagedMovies
			err    error
		)
		if cmd.Mode == model.ModeSearch {
			result, err = o.catalog.Search(ctx, cmd.Query, cmd.Page)
		} else {
			result, err = o.catalog.Discover(ctx, cmd.Sort, cmd.Page)
		}
		if err != nil {
			if !errors.Is(err, httpclient.ErrRequestAborted) {
				log.Error().Err(err).Str("mode", string(cmd.Mode)).Int("page", cmd.Page).Msg("Error in fetchMovies")
			}
			o.post(FetchFailed{Gen: cmd.Gen, Err: err})
			return
		}
		o.post(FetchSucceeded{Gen: cmd.Gen, Result: result})
	})
}

func (o *Orchestrator) startDetail(cmd DetailCommand) {
	if o.detailCancel != nil {
		o.detailCancel()
	}
	ctx, cancel := context.WithCancel(o.ctx)
	o.detailCancel = cancel

	o.bg.Go(func() {
		detail, err := o.catalog.Details(ctx, cmd.ID)
		if err != nil {
			o.post(DetailFailed{Gen: cmd.Gen, Err: err})
			return
		}
		o.post(DetailLoaded{Gen: cmd.Gen, Detail: detail})
	})
}

func (o *Orchestrator) startRecord(cmd RecordCommand) {
	if o.trends == nil {
		return
	}
	o.bg.Go(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(o.ctx), recordTimeout)
		defer cancel()
		o.trends.Record(ctx, cmd.Term, cmd.Movie)
	})
}
