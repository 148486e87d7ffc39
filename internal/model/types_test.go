package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPage(t *testing.T) {
	cases := map[int]int{
		-3:  1,
		0:   1,
		1:   1,
		42:  42,
		500: 500,
		501: 500,
	}
	for in, want := range cases {
		assert.Equal(t, want, ClampPage(in), "ClampPage(%d)", in)
	}
}

func TestDisplayTotal(t *testing.T) {
	assert.Equal(t, 840, PageState{TotalPages: 42}.DisplayTotal())
	assert.Equal(t, 10000, PageState{TotalPages: 38012}.DisplayTotal())
	assert.Equal(t, 0, PageState{}.DisplayTotal())
}

func TestParseSortKey(t *testing.T) {
	for _, s := range []string{"popularity.desc", "vote_average.desc", "release_date.desc"} {
		key, ok := ParseSortKey(s)
		assert.True(t, ok, s)
		assert.Equal(t, SortKey(s), key)
	}
	_, ok := ParseSortKey("title.asc")
	assert.False(t, ok)
}

func TestNewFavoriteEntry_DropsHeavyFields(t *testing.T) {
	poster := "/dune.jpg"
	m := MovieSummary{
		ID:               438631,
		Title:            "Dune",
		PosterPath:       &poster,
		VoteAverage:      7.8,
		VoteCount:        12000,
		Popularity:       99.1,
		OriginalLanguage: "en",
		Overview:         "long text",
	}

	entry := NewFavoriteEntry(m)
	assert.Equal(t, 438631, entry.ID)
	assert.Equal(t, "", entry.ReleaseDate)
	assert.Equal(t, []int{}, entry.GenreIDs)
	assert.Equal(t, &poster, entry.PosterPath)

	back := entry.Summary()
	assert.Nil(t, back.ReleaseDate)
	assert.Empty(t, back.Overview)
	assert.Equal(t, m.Title, back.Title)
}

func TestGenreNameMap(t *testing.T) {
	list := GenreList{Genres: []Genre{{ID: 28, Name: "动作"}, {ID: 878, Name: "科幻"}}}
	assert.Equal(t, map[int]string{28: "动作", 878: "科幻"}, list.NameMap())
}
