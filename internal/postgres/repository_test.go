package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
	"github.com/climbing-tracker/internal/store"
)

var climbCols = []string{
	"id", "user_id", "route_id", "date", "climb_type", "attempt_count",
	"personal_rating", "comments", "points", "difficulty_french", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithDB(mock, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestCreateClimb(t *testing.T) {
	repo, mock := newMockRepo(t)
	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO climbs`).
		WithArgs("c1", "u1", "r1", date, "RP", 1, 0, "", 195, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	climb := &domain.Climb{
		ID: "c1", UserID: "u1", RouteID: "r1", Date: date,
		AscentType: domain.Redpoint, AttemptCount: 1, Points: 195,
	}
	require.NoError(t, repo.CreateClimb(context.Background(), climb))
	assert.False(t, climb.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClimbJoinsRouteGrade(t *testing.T) {
	repo, mock := newMockRepo(t)
	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	created := time.Now().UTC()

	mock.ExpectQuery(`FROM climbs c\s+JOIN routes r ON r.id = c.route_id WHERE c.id = \$1`).
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows(climbCols).
			AddRow("c1", "u1", "r1", date, "FLASH", 2, 4, "clean", 351, "6b", created, created))

	climb, err := repo.GetClimb(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.Flash, climb.AscentType)
	assert.Equal(t, grade.Grade("6b"), climb.RouteGrade)
	assert.Equal(t, 4, climb.PersonalRating)
	assert.Equal(t, 351, climb.Points)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClimbNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM climbs c`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetClimb(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrClimbNotFound)
}

func TestGetClimbRejectsUnknownAscentType(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM climbs c`).WithArgs("c1").
		WillReturnRows(pgxmock.NewRows(climbCols).
			AddRow("c1", "u1", "r1", now, "SOLO", 1, 0, "", 0, "6a", now, now))

	_, err := repo.GetClimb(context.Background(), "c1")
	assert.ErrorIs(t, err, domain.ErrUnknownAscentType)
}

func TestListClimbsBuildsFilter(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE c.user_id = $1 AND c.route_id = $2 AND c.climb_type = ANY($3) AND c.date >= $4 ORDER BY c.date DESC`)).
		WithArgs("u1", "r1", []string{"OS", "FLASH"}, from).
		WillReturnRows(pgxmock.NewRows(climbCols))

	climbs, err := repo.ListClimbs(context.Background(), "u1", domain.ClimbFilter{
		RouteID:     "r1",
		AscentTypes: []domain.AscentType{domain.OnSight, domain.Flash},
		From:        &from,
	})
	require.NoError(t, err)
	assert.Empty(t, climbs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommits(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE climbs SET`).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.WithTx(context.Background(), func(tx store.Store) error {
		return tx.UpdateClimb(context.Background(), &domain.Climb{ID: "c1", AscentType: domain.OnSight, AttemptCount: 1})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.WithTx(context.Background(), func(store.Store) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRouteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE routes SET`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateRoute(context.Background(), &domain.Route{ID: "nope", DifficultyFrench: "6a"})
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func TestListVisibleRoutesPredicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	cols := []string{"id", "user_id", "location_id", "name", "difficulty_french", "difficulty_uiaa",
		"setter", "description", "is_public", "is_active", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (user_id = $1 OR is_public OR user_id = ANY($2)) AND location_id = $3 AND is_active`)).
		WithArgs("me", []string{"pal"}, "gym").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("r1", "pal", "gym", "Crimp", "7a", "VIII+", "", "", false, true, now, now))

	routes, err := repo.ListVisibleRoutes(context.Background(), "me", []string{"pal"}, domain.RouteFilter{LocationID: "gym"})
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, grade.Grade("7a"), routes[0].DifficultyFrench)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListVisibleLocationsSendsEmptyFriendArray(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM locations`).
		WithArgs("me", []string{}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "type", "address", "country",
			"description", "is_public", "created_at", "updated_at"}))

	locs, err := repo.ListVisibleLocations(context.Background(), "me", nil)
	require.NoError(t, err)
	assert.Empty(t, locs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFriendshipConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO friendships`).
		WithArgs("f1", "a", "b", "PENDING", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.CreateFriendship(context.Background(), &domain.Friendship{
		ID: "f1", RequesterID: "a", AddresseeID: "b", Status: domain.FriendshipPending,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestFriendIDsOfAndAreFriends(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT CASE WHEN requester_id = \$1`).
		WithArgs("a").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("b").AddRow("c"))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("b", "a").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ids, err := repo.FriendIDsOf(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids)

	ok, err := repo.AreFriends(context.Background(), "b", "a")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
