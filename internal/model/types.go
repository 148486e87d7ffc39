package model

import "time"

// ================== 通用响应 ==================

// APIResponse is the standard API response format
type APIResponse struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Source  string      `json:"source,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ================== 分页 ==================

const (
	// MaxPages is the highest page the catalog will serve
	MaxPages = 500
	// PageSize is the catalog's fixed page size
	PageSize = 20
	// FavoritesPageSize is the display page size of the favorites grid
	FavoritesPageSize = 8
)

// ClampPage limits a requested page to [1, MaxPages]
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPages {
		return MaxPages
	}
	return page
}

// ClampTotalPages limits a reported page count to MaxPages
func ClampTotalPages(total int) int {
	if total > MaxPages {
		return MaxPages
	}
	if total < 0 {
		return 0
	}
	return total
}

// SortKey is a discover ordering accepted by the catalog
type SortKey string

const (
	SortPopularity  SortKey = "popularity.desc"
	SortRating      SortKey = "vote_average.desc"
	SortReleaseDate SortKey = "release_date.desc"
)

// DefaultSort is the ordering used before the user picks one
const DefaultSort = SortPopularity

// ParseSortKey validates a sort key
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(s) {
	case SortPopularity, SortRating, SortReleaseDate:
		return SortKey(s), true
	}
	return "", false
}

// Mode is discover (no query) or search (non-empty query)
type Mode string

const (
	ModeDiscover Mode = "discover"
	ModeSearch   Mode = "search"
)

// ModeFor returns the mode implied by a committed query
func ModeFor(query string) Mode {
	if query == "" {
		return ModeDiscover
	}
	return ModeSearch
}

// PageState is the pagination and query position of a browse session
type PageState struct {
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Sort       SortKey `json:"sort"`
	Query      string  `json:"query"`
}

// DisplayTotal is the item total shown by the pagination control
func (p PageState) DisplayTotal() int {
	return ClampTotalPages(p.TotalPages) * PageSize
}

// ================== TMDB 数据模型 ==================

// MovieSummary is one entry of a discover or search page
type MovieSummary struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path,omitempty"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count,omitempty"`
	Popularity       float64 `json:"popularity,omitempty"`
	ReleaseDate      *string `json:"release_date"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int   `json:"genre_ids"`
	Overview         string  `json:"overview,omitempty"`
}

// Genre is an entry of the catalog's genre table
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreList is the genre table response
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// NameMap indexes genre names by id
func (g GenreList) NameMap() map[int]string {
	m := make(map[int]string, len(g.Genres))
	for _, genre := range g.Genres {
		m[genre.ID] = genre.Name
	}
	return m
}

// Company is a production company
type Company struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	LogoPath      *string `json:"logo_path"`
	OriginCountry string  `json:"origin_country,omitempty"`
}

// CastMember is a credited actor
type CastMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
	Order       int     `json:"order"`
}

// CrewMember is a credited crew member
type CrewMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

// Credits is appended to a details response
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Video is a trailer or clip
type Video struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// Videos is appended to a details response
type Videos struct {
	Results []Video `json:"results"`
}

// MovieDetail is the full record fetched for the detail view
type MovieDetail struct {
	MovieSummary
	Runtime             int       `json:"runtime"`
	Budget              int64     `json:"budget"`
	Revenue             int64     `json:"revenue"`
	Status              string    `json:"status,omitempty"`
	Tagline             string    `json:"tagline,omitempty"`
	Genres              []Genre   `json:"genres"`
	ProductionCompanies []Company `json:"production_companies"`
	Credits             *Credits  `json:"credits,omitempty"`
	Videos              *Videos   `json:"videos,omitempty"`
}

// DetailFromSummary seeds a detail view with the summary already on screen
func DetailFromSummary(m MovieSummary) *MovieDetail {
	return &MovieDetail{MovieSummary: m}
}

// PagedMovies is the discover/search response
type PagedMovies struct {
	Page         int            `json:"page"`
	Results      []MovieSummary `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// ================== 本地存储 ==================

// FavoriteEntry is the reduced projection persisted in the favorites list
type FavoriteEntry struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	PosterPath       *string `json:"poster_path"`
	VoteAverage      float64 `json:"vote_average"`
	ReleaseDate      string  `json:"release_date"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int   `json:"genre_ids"`
}

// NewFavoriteEntry projects a summary onto the persisted fields only
func NewFavoriteEntry(m MovieSummary) FavoriteEntry {
	entry := FavoriteEntry{
		ID:               m.ID,
		Title:            m.Title,
		PosterPath:       m.PosterPath,
		VoteAverage:      m.VoteAverage,
		OriginalLanguage: m.OriginalLanguage,
		GenreIDs:         m.GenreIDs,
	}
	if m.ReleaseDate != nil {
		entry.ReleaseDate = *m.ReleaseDate
	}
	if entry.GenreIDs == nil {
		entry.GenreIDs = []int{}
	}
	return entry
}

// Summary lets a favorite open the detail view like a list entry
func (f FavoriteEntry) Summary() MovieSummary {
	m := MovieSummary{
		ID:               f.ID,
		Title:            f.Title,
		PosterPath:       f.PosterPath,
		VoteAverage:      f.VoteAverage,
		OriginalLanguage: f.OriginalLanguage,
		GenreIDs:         f.GenreIDs,
	}
	if f.ReleaseDate != "" {
		date := f.ReleaseDate
		m.ReleaseDate = &date
	}
	return m
}

// ================== 热门搜索 ==================

// TrendCounter is the per-term search counter
type TrendCounter struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	SearchTerm string    `json:"search_term" gorm:"uniqueIndex;not null"`
	Count      int64     `json:"count" gorm:"not null;index"`
	MovieID    int       `json:"movie_id"`
	PosterURL  string    `json:"poster_url"`
	CreatedAt  time.Time `json:"created_at"`
	Seq        int64     `json:"-" gorm:"index"`
}

// TableName pins the SQL table name
func (TrendCounter) TableName() string {
	return "trend_counters"
}
