package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/internal/db"
	"agentdesk/internal/model"
	"agentdesk/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	migrations, err := db.Migrations("")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(database, migrations))
	return database
}

func createUser(t *testing.T, database *sql.DB, name string) model.User {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	account := model.Account{ID: uuid.NewString(), Email: name + "@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewAccountRepository(database).Create(ctx, &account))

	user := model.User{ID: uuid.NewString(), AuthID: account.ID, FullName: name, Role: model.RoleAgent, CreatedAt: now}
	require.NoError(t, repository.NewUserRepository(database).Create(ctx, &user))
	return user
}

func newInterval(kind model.Kind, userID string, start time.Time) *model.Interval {
	return &model.Interval{ID: uuid.NewString(), Kind: kind, UserID: userID, Start: start}
}

func TestInsertSecondOpenIntervalConflicts(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewIntervalRepository(database)
	user := createUser(t, database, "ana")
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for _, kind := range []model.Kind{model.KindAttendance, model.KindBreak, model.KindCall} {
		first := newInterval(kind, user.ID, start)
		first.TaskType, first.RoomID = model.TaskSupport, "room-a-"+string(kind)
		require.NoError(t, repo.Insert(ctx, first))

		second := newInterval(kind, user.ID, start.Add(time.Minute))
		second.TaskType, second.RoomID = model.TaskSupport, "room-b-"+string(kind)
		assert.ErrorIs(t, repo.Insert(ctx, second), repository.ErrConflict, "kind %s", kind)

		closed, err := repo.Close(ctx, kind, first.ID, start.Add(time.Hour), 60)
		require.NoError(t, err)
		require.True(t, closed)

		// Once closed, a new interval may be opened.
		assert.NoError(t, repo.Insert(ctx, second), "kind %s", kind)
	}
}

func TestCloseOnlyOnce(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewIntervalRepository(database)
	user := createUser(t, database, "ben")
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	interval := newInterval(model.KindAttendance, user.ID, start)
	require.NoError(t, repo.Insert(ctx, interval))

	closed, err := repo.Close(ctx, model.KindAttendance, interval.ID, start.Add(2*time.Hour), 120)
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = repo.Close(ctx, model.KindAttendance, interval.ID, start.Add(5*time.Hour), 300)
	require.NoError(t, err)
	assert.False(t, closed)

	stored, err := repo.Get(ctx, model.KindAttendance, interval.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Duration)
	assert.Equal(t, 120, *stored.Duration)
	assert.Equal(t, start.Add(2*time.Hour), *stored.End)

	_, err = repo.Get(ctx, model.KindAttendance, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindOpenAndExtras(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewIntervalRepository(database)
	user := createUser(t, database, "cy")
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	open, err := repo.FindOpen(ctx, model.KindBreak, user.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	attendance := newInterval(model.KindAttendance, user.ID, start)
	require.NoError(t, repo.Insert(ctx, attendance))

	brk := newInterval(model.KindBreak, user.ID, start.Add(time.Hour))
	brk.AttendanceID = &attendance.ID
	require.NoError(t, repo.Insert(ctx, brk))

	call := newInterval(model.KindCall, user.ID, start.Add(2*time.Hour))
	call.TaskType, call.Notes, call.RoomID = model.TaskLeadCall, "asked for pricing", "crm-cy-12345678"
	require.NoError(t, repo.Insert(ctx, call))

	open, err = repo.FindOpen(ctx, model.KindBreak, user.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	require.NotNil(t, open.AttendanceID)
	assert.Equal(t, attendance.ID, *open.AttendanceID)
	assert.True(t, open.IsOpen())

	open, err = repo.FindOpen(ctx, model.KindCall, user.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, model.TaskLeadCall, open.TaskType)
	assert.Equal(t, "asked for pricing", open.Notes)
	assert.Equal(t, "crm-cy-12345678", open.RoomID)
	assert.Equal(t, start.Add(2*time.Hour), open.Start)
}

func TestListFilters(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewIntervalRepository(database)
	dee := createUser(t, database, "dee")
	eli := createUser(t, database, "eli")
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	insertClosed := func(userID string, start time.Time, minutes int) {
		interval := newInterval(model.KindBreak, userID, start)
		require.NoError(t, repo.Insert(ctx, interval))
		closed, err := repo.Close(ctx, model.KindBreak, interval.ID, start.Add(time.Duration(minutes)*time.Minute), minutes)
		require.NoError(t, err)
		require.True(t, closed)
	}
	insertClosed(dee.ID, day.Add(10*time.Hour), 15)
	insertClosed(dee.ID, day.Add(-time.Hour), 20)
	insertClosed(eli.ID, day.Add(11*time.Hour), 5)
	require.NoError(t, repo.Insert(ctx, newInterval(model.KindBreak, dee.ID, day.Add(14*time.Hour))))

	all, err := repo.List(ctx, model.KindBreak, repository.IntervalFilter{Day: "2026-03-02"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	closedOnly, err := repo.List(ctx, model.KindBreak, repository.IntervalFilter{Day: "2026-03-02", ClosedOnly: true})
	require.NoError(t, err)
	assert.Len(t, closedOnly, 2)

	mine, err := repo.List(ctx, model.KindBreak, repository.IntervalFilter{Day: "2026-03-02", UserID: dee.ID, ClosedOnly: true})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 15, *mine[0].Duration)

	everything, err := repo.List(ctx, model.KindBreak, repository.IntervalFilter{})
	require.NoError(t, err)
	assert.Len(t, everything, 4)
}

func TestUserRepository(t *testing.T) {
	database := openTestDB(t)
	users := repository.NewUserRepository(database)
	ctx := context.Background()

	zed := createUser(t, database, "zed")
	amy := createUser(t, database, "amy")

	got, err := users.GetByAuthID(ctx, zed.AuthID)
	require.NoError(t, err)
	assert.Equal(t, zed.ID, got.ID)

	_, err = users.GetByAuthID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	duplicate := model.User{ID: uuid.NewString(), AuthID: zed.AuthID, FullName: "zed2", Role: model.RoleAgent, CreatedAt: time.Now()}
	assert.ErrorIs(t, users.Create(ctx, &duplicate), repository.ErrConflict)

	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, amy.ID, list[0].ID)
	assert.Equal(t, zed.ID, list[1].ID)
}
