package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/grossing-films-crawler/internal/films"
)

var (
	dropFilms   = regexp.QuoteMeta("DROP TABLE IF EXISTS films")
	createFilms = regexp.QuoteMeta("CREATE TABLE films")
	insertFilms = regexp.QuoteMeta("INSERT INTO films")
)

func sampleFilms() []films.Film {
	return []films.Film{
		{Year: "2009", Title: "Avatar", Revenue: 2923710708, Href: "/wiki/Avatar", Country: "United States", Director: "James Cameron"},
		{Year: "TBA", Title: "Ne Zha 2", Revenue: 2200000000, Href: "/wiki/Ne_Zha_2", Country: "China", Director: "Jiaozi"},
	}
}

func expectReplace(mock pgxmock.PgxPoolIface, records []films.Film) {
	mock.ExpectBegin()
	mock.ExpectExec(dropFilms).WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
	mock.ExpectExec(createFilms).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	for _, rec := range records {
		mock.ExpectExec(insertFilms).
			WithArgs(rec.Title, releaseYear(rec.Year), rec.Director, rec.Revenue, rec.Country).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()
}

func TestReplaceDropsCreatesAndInserts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewFilmStoreWithPool(mock, "")
	require.NoError(t, err)

	records := sampleFilms()
	mock.ExpectBegin()
	mock.ExpectExec(dropFilms).WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
	mock.ExpectExec(createFilms).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(insertFilms).
		WithArgs("Avatar", 2009, "James Cameron", int64(2923710708), "United States").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(insertFilms).
		WithArgs("Ne Zha 2", nil, "Jiaozi", int64(2200000000), "China").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, store.Replace(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Two consecutive runs each start from a dropped table, so the second run's rows replace
// the first run's rather than adding to them.
func TestReplaceIsRerunnable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewFilmStoreWithPool(mock, "films")
	require.NoError(t, err)

	first := sampleFilms()
	second := sampleFilms()[:1]
	expectReplace(mock, first)
	expectReplace(mock, second)
	mock.ExpectQuery(regexp.QuoteMeta("FROM films")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "release_year", "director", "box_office", "country"}).
			AddRow(int64(1), "Avatar", int32(2009), "James Cameron", int64(2923710708), "United States"))

	require.NoError(t, store.Replace(context.Background(), first))
	require.NoError(t, store.Replace(context.Background(), second))

	rows, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []StoredFilm{{
		ID:          1,
		Title:       "Avatar",
		ReleaseYear: 2009,
		Director:    "James Cameron",
		BoxOffice:   2923710708,
		Country:     "United States",
	}}, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRollsBackOnInsertError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewFilmStoreWithPool(mock, "films")
	require.NoError(t, err)

	insertErr := errors.New("disk full")
	mock.ExpectBegin()
	mock.ExpectExec(dropFilms).WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
	mock.ExpectExec(createFilms).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(insertFilms).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(insertErr)
	mock.ExpectRollback()

	err = store.Replace(context.Background(), sampleFilms())
	require.Error(t, err)
	assert.True(t, errors.Is(err, insertErr))
	assert.Contains(t, err.Error(), `insert "Avatar"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceBeginError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewFilmStoreWithPool(mock, "films")
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))
	err = store.Replace(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewFilmStoreValidation(t *testing.T) {
	t.Parallel()

	_, err := NewFilmStore(context.Background(), FilmStoreConfig{})
	require.ErrorContains(t, err, "db.dsn")

	_, err = NewFilmStore(context.Background(), FilmStoreConfig{DSN: "postgres://localhost/films", Table: "films; DROP"})
	require.ErrorContains(t, err, "invalid table name")

	_, err = NewFilmStoreWithPool(nil, "films")
	require.ErrorContains(t, err, "pool is required")

	var nilStore *FilmStore
	require.Error(t, nilStore.Replace(context.Background(), nil))
	nilStore.Close()
}

func TestReleaseYear(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1997, releaseYear("1997"))
	assert.Nil(t, releaseYear(""))
	assert.Nil(t, releaseYear("2019–2020"))
}
