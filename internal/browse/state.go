// Package browse drives a movie browsing session: debounced search input,
// sort and page changes, list fetching and the detail view.
//
// All session state lives in a single State value that only Reduce
// transitions. Every list fetch carries the generation it was issued under;
// a response whose generation is no longer current is dropped by the reducer,
// so the last request wins regardless of which response arrives first.
package browse

import (
	"strings"

	"tvtime-service/internal/model"
)

// ErrorMessage is the only list-fetch error text users see
const ErrorMessage = "Error fetching movies. Please try again later!"

// DetailView is the state of the detail modal
type DetailView struct {
	Visible bool               `json:"visible"`
	Loading bool               `json:"loading"`
	Movie   *model.MovieDetail `json:"movie,omitempty"`
	Gen     uint64             `json:"-"`
}

// State is one browse session. Slices and maps are replaced, never mutated,
// so a copy is safe to hand to readers.
type State struct {
	Mode       model.Mode           `json:"mode"`
	Input      string               `json:"input"`
	Query      string               `json:"query"`
	Sort       model.SortKey        `json:"sort"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"total_pages"`
	Movies     []model.MovieSummary `json:"movies"`
	Loading    bool                 `json:"loading"`
	Error      string               `json:"error,omitempty"`
	Generation uint64               `json:"generation"`
	Detail     DetailView           `json:"detail"`
	Genres     map[int]string       `json:"genres,omitempty"`
	Trending   []model.TrendCounter `json:"trending"`
}

// InitialState is a discover session on page 1 ordered by popularity
func InitialState() State {
	return State{
		Mode:       model.ModeDiscover,
		Sort:       model.DefaultSort,
		Page:       1,
		TotalPages: 1,
		Movies:     []model.MovieSummary{},
		Trending:   []model.TrendCounter{},
	}
}

// PageState projects the pagination position
func (s State) PageState() model.PageState {
	return model.PageState{
		Page:       s.Page,
		TotalPages: s.TotalPages,
		Sort:       s.Sort,
		Query:      s.Query,
	}
}

// ================== 事件 ==================

// Event is an input to Reduce
type Event interface {
	event()
}

// InputChanged is a keystroke in the search box; it only arms the debouncer
type InputChanged struct{ Text string }

// QueryCommitted is the debounced query
type QueryCommitted struct{ Query string }

// SortChanged picks a discover ordering and leaves search mode
type SortChanged struct{ Sort model.SortKey }

// PageRequested comes from the pagination control
type PageRequested struct{ Page int }

// RefreshRequested re-issues the current fetch
type RefreshRequested struct{}

// FetchSucceeded carries a list response for generation Gen
type FetchSucceeded struct {
	Gen    uint64
	Result *model.PagedMovies
}

// FetchFailed carries a list failure for generation Gen
type FetchFailed struct {
	Gen uint64
	Err error
}

// DetailOpened shows a movie in the detail view
type DetailOpened struct{ Movie model.MovieSummary }

// DetailClosed hides the detail view
type DetailClosed struct{}

// DetailLoaded carries the full record for detail generation Gen
type DetailLoaded struct {
	Gen    uint64
	Detail *model.MovieDetail
}

// DetailFailed carries a details failure for detail generation Gen
type DetailFailed struct {
	Gen uint64
	Err error
}

// GenresLoaded fills the genre name table
type GenresLoaded struct{ Names map[int]string }

// TrendingLoaded fills the trending strip
type TrendingLoaded struct{ Items []model.TrendCounter }

func (InputChanged) event()     {}
func (QueryCommitted) event()   {}
func (SortChanged) event()      {}
func (PageRequested) event()    {}
func (RefreshRequested) event() {}
func (FetchSucceeded) event()   {}
func (FetchFailed) event()      {}
func (DetailOpened) event()     {}
func (DetailClosed) event()     {}
func (DetailLoaded) event()     {}
func (DetailFailed) event()     {}
func (GenresLoaded) event()     {}
func (TrendingLoaded) event()   {}

// ================== 副作用 ==================

// FetchCommand asks for one list page
type FetchCommand struct {
	Gen   uint64
	Mode  model.Mode
	Query string
	Sort  model.SortKey
	Page  int
}

// DetailCommand asks for one movie's details
type DetailCommand struct {
	Gen uint64
	ID  int
}

// RecordCommand forwards a search's first result to the trend recorder
type RecordCommand struct {
	Term  string
	Movie model.MovieSummary
}

// Effects are what the caller of Reduce must do after applying the new state
type Effects struct {
	Debounce       *string
	CancelDebounce bool
	Fetch          *FetchCommand
	CancelDetail   bool
	Detail         *DetailCommand
	Record         *RecordCommand
	// Discarded is set when the event was a superseded response
	Discarded bool
	// DetailErr is a details failure for the current detail view, to be logged
	DetailErr error
}

// Reduce applies one event. It is pure: I/O is returned as Effects.
func Reduce(s State, ev Event) (State, Effects) {
	switch e := ev.(type) {
	case InputChanged:
		s.Input = e.Text
		text := e.Text
		return s, Effects{Debounce: &text}

	case QueryCommitted:
		s.Query = strings.TrimSpace(e.Query)
		s.Page = 1
		return startFetch(s)

	case SortChanged:
		s.Sort = e.Sort
		s.Input = ""
		s.Query = ""
		s.Page = 1
		next, eff := startFetch(s)
		eff.CancelDebounce = true
		return next, eff

	case PageRequested:
		s.Page = model.ClampPage(e.Page)
		return startFetch(s)

	case RefreshRequested:
		return startFetch(s)

	case FetchSucceeded:
		if e.Gen != s.Generation {
			return s, Effects{Discarded: true}
		}
		var eff Effects
		results := []model.MovieSummary{}
		if e.Result != nil {
			if e.Result.Results != nil {
				results = e.Result.Results
			}
			s.TotalPages = model.ClampTotalPages(e.Result.TotalPages)
			if e.Result.Page > 0 {
				s.Page = model.ClampPage(e.Result.Page)
			}
		}
		s.Movies = results
		s.Loading = false
		if s.Query != "" && len(results) > 0 {
			eff.Record = &RecordCommand{Term: s.Query, Movie: results[0]}
		}
		return s, eff

	case FetchFailed:
		if e.Gen != s.Generation {
			return s, Effects{Discarded: true}
		}
		s.Loading = false
		s.Error = ErrorMessage
		return s, Effects{}

	case DetailOpened:
		s.Detail = DetailView{
			Visible: true,
			Loading: true,
			Movie:   model.DetailFromSummary(e.Movie),
			Gen:     s.Detail.Gen + 1,
		}
		return s, Effects{Detail: &DetailCommand{Gen: s.Detail.Gen, ID: e.Movie.ID}}

	case DetailClosed:
		s.Detail.Visible = false
		s.Detail.Loading = false
		s.Detail.Gen++
		return s, Effects{CancelDetail: true}

	case DetailLoaded:
		if e.Gen != s.Detail.Gen {
			return s, Effects{Discarded: true}
		}
		if e.Detail != nil {
			s.Detail.Movie = e.Detail
		}
		s.Detail.Loading = false
		return s, Effects{}

	case DetailFailed:
		if e.Gen != s.Detail.Gen {
			return s, Effects{Discarded: true}
		}
		s.Detail.Loading = false
		return s, Effects{DetailErr: e.Err}

	case GenresLoaded:
		s.Genres = e.Names
		return s, Effects{}

	case TrendingLoaded:
		s.Trending = e.Items
		if s.Trending == nil {
			s.Trending = []model.TrendCounter{}
		}
		return s, Effects{}
	}
	return s, Effects{}
}

// startFetch bumps the generation, which supersedes any fetch in flight
func startFetch(s State) (State, Effects) {
	s.Generation++
	s.Mode = model.ModeFor(s.Query)
	s.Loading = true
	s.Error = ""
	return s, Effects{Fetch: &FetchCommand{
		Gen:   s.Generation,
		Mode:  s.Mode,
		Query: s.Query,
		Sort:  s.Sort,
		Page:  s.Page,
	}}
}
