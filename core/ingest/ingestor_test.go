package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubSource returns a fixed snapshot and counts calls.
type stubSource struct {
	snap  Snapshot
	err   error
	calls int
}

func (s *stubSource) Fetch(ctx context.Context) (Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

// listingPolicy is a minimal dataset: key "symbol", one payload column.
type listingPolicy struct {
	*TableDataset
	source Source
}

func (p *listingPolicy) Name() string { return "listings" }

func (p *listingPolicy) Fetch(ctx context.Context) (Snapshot, error) { return p.source.Fetch(ctx) }

func (p *listingPolicy) Normalize(raw Snapshot) Snapshot {
	out := make(Snapshot, 0, len(raw))
	for _, rec := range raw {
		if KeyOf(rec, p.KeyColumn()) == "" {
			continue
		}
		out = append(out, p.Project(rec))
	}
	return out
}

// probeOnly hides KeyProber and KeyLister so the per-key probe path is used.
type probeOnly struct {
	Policy
}

func newPolicy(t *testing.T, src Source) *listingPolicy {
	td, err := NewTableDataset("listings", "symbol", []string{"symbol", "name"}, WithProbeBatchSize(2))
	require.NoError(t, err)
	return &listingPolicy{TableDataset: td, source: src}
}

// setupTestDB creates an in-memory SQLite DB with the listings table.
func setupTestDB(t *testing.T, seed ...string) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	err = db.Exec(`CREATE TABLE listings (
		symbol VARCHAR(20) NOT NULL,
		name VARCHAR(100)
	)`).Error
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	for _, key := range seed {
		require.NoError(t, db.Exec("INSERT INTO listings (symbol, name) VALUES (?, ?)", key, "seed "+key).Error)
	}
	return db
}

func tableKeys(t *testing.T, db *gorm.DB) []string {
	var keys []string
	require.NoError(t, db.Table("listings").Order("symbol").Pluck("symbol", &keys).Error)
	return keys
}

func TestRun_Converges(t *testing.T) {
	db := setupTestDB(t, "A", "B", "C")
	src := &stubSource{snap: Snapshot{
		{"symbol": "B", "name": "Beta"},
		{"symbol": "C", "name": "Gamma"},
		{"symbol": nil, "name": "D duplicate without key"},
		{"symbol": "D", "name": "Delta"},
	}}

	res, err := New(Pool(db), newPolicy(t, src), Config{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C", "D"}, tableKeys(t, db))
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 3, res.Normalized)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, res.New)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, int64(1), res.Deleted)
	assert.NotEmpty(t, res.RunID)

	// B and C are untouched: existing rows are never refreshed
	var name string
	require.NoError(t, db.Raw("SELECT name FROM listings WHERE symbol = ?", "B").Scan(&name).Error)
	assert.Equal(t, "seed B", name)
}

func TestRun_Idempotent(t *testing.T) {
	db := setupTestDB(t, "A")
	src := &stubSource{snap: Snapshot{
		{"symbol": "B", "name": "Beta"},
		{"symbol": "C", "name": "Gamma"},
	}}
	ing := New(Pool(db), newPolicy(t, src), Config{}, nil)

	first, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, int64(1), first.Deleted)

	second, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, int64(0), second.Deleted)
	assert.Equal(t, []string{"B", "C"}, tableKeys(t, db))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_DuplicateKeysInsertedOnce(t *testing.T) {
	db := setupTestDB(t)
	src := &stubSource{snap: Snapshot{
		{"symbol": "A", "name": "first"},
		{"symbol": "A", "name": "second"},
	}}

	res, err := New(Pool(db), newPolicy(t, src), Config{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	var names []string
	require.NoError(t, db.Table("listings").Pluck("name", &names).Error)
	assert.Equal(t, []string{"first"}, names)
}

func TestRun_ValidationFiltering(t *testing.T) {
	db := setupTestDB(t)
	src := &stubSource{snap: Snapshot{
		{"name": "no symbol column"},
		{"symbol": "", "name": "empty symbol"},
		{"symbol": "   ", "name": "blank symbol"},
		{"symbol": "OK", "name": "valid"},
	}}

	res, err := New(Pool(db), newPolicy(t, src), Config{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Dropped)
	assert.Equal(t, []string{"OK"}, tableKeys(t, db))
}

// An empty snapshot prunes every row. This mirrors the source exactly and is a
// known hazard when the provider returns an empty result by mistake.
func TestRun_EmptySnapshotPrunesEverything(t *testing.T) {
	db := setupTestDB(t, "A", "B", "C")
	src := &stubSource{snap: Snapshot{}}

	res, err := New(Pool(db), newPolicy(t, src), Config{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Deleted)
	assert.Empty(t, tableKeys(t, db))
}

func TestRun_MinSnapshotRowsGuard(t *testing.T) {
	db := setupTestDB(t, "A", "B", "C")
	src := &stubSource{snap: Snapshot{{"symbol": "A"}}}

	_, err := New(Pool(db), newPolicy(t, src), Config{MinSnapshotRows: 2}, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrSnapshotTooSmall)
	assert.Equal(t, []string{"A", "B", "C"}, tableKeys(t, db), "guard must not mutate the table")
}

func TestRun_FetchErrorOpensNoConnection(t *testing.T) {
	src := &stubSource{err: errors.New("provider unreachable")}

	opened := false
	open := func(context.Context) (*gorm.DB, func(), error) {
		opened = true
		return nil, func() {}, errors.New("must not open")
	}

	res, err := New(open, newPolicy(t, src), Config{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorContains(t, err, "provider unreachable")
	assert.Equal(t, 1, src.calls)
	assert.False(t, opened, "the store must not be opened after a failed fetch")
	assert.Equal(t, 0, res.Inserted)
}

func TestRun_OpenFailure(t *testing.T) {
	src := &stubSource{snap: Snapshot{{"symbol": "A"}}}
	released := false
	open := func(context.Context) (*gorm.DB, func(), error) {
		return nil, func() { released = true }, errors.New("connection refused")
	}

	_, err := New(open, newPolicy(t, src), Config{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, released)
}

func TestRun_ReleasesStore(t *testing.T) {
	db := setupTestDB(t, "A")
	src := &stubSource{snap: Snapshot{{"symbol": "A"}}}
	releases := 0
	open := func(context.Context) (*gorm.DB, func(), error) {
		return db, func() { releases++ }, nil
	}

	_, err := New(open, newPolicy(t, src), Config{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, releases)
}

func TestRun_PerKeyProbe(t *testing.T) {
	db := setupTestDB(t, "A", "B")
	src := &stubSource{snap: Snapshot{
		{"symbol": "B", "name": "Beta"},
		{"symbol": "E", "name": "Epsilon"},
	}}

	res, err := New(Pool(db), probeOnly{newPolicy(t, src)}, Config{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, int64(1), res.Deleted)
	assert.Equal(t, []string{"B", "E"}, tableKeys(t, db))
}

func TestRun_DryRun(t *testing.T) {
	db := setupTestDB(t, "A", "B", "C")
	src := &stubSource{snap: Snapshot{
		{"symbol": "B"},
		{"symbol": "C"},
		{"symbol": "D"},
	}}

	res, err := New(Pool(db), newPolicy(t, src), Config{DryRun: true}, nil).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	assert.True(t, res.DryRun)
	assert.Equal(t, []string{"A"}, res.Plan.Stale)
	require.Len(t, res.Plan.Insert, 1)
	assert.Equal(t, "D", res.Plan.Insert[0]["symbol"])
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, []string{"A", "B", "C"}, tableKeys(t, db))
}

func TestRun_DryRunNeedsKeyLister(t *testing.T) {
	db := setupTestDB(t, "A")
	src := &stubSource{snap: Snapshot{{"symbol": "A"}}}

	_, err := New(Pool(db), probeOnly{newPolicy(t, src)}, Config{DryRun: true}, nil).Run(context.Background())
	assert.ErrorContains(t, err, "cannot list persisted keys")
}

func TestRun_MissingKeyColumn(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Exec("CREATE TABLE other (code TEXT)").Error)

	td, err := NewTableDataset("other", "symbol", nil)
	require.NoError(t, err)
	policy := &listingPolicy{TableDataset: td, source: &stubSource{snap: Snapshot{{"symbol": "A"}}}}

	_, err = New(Pool(db), policy, Config{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrSchema)
}

func TestRun_InsertFailureSkipsPrune(t *testing.T) {
	db, mock := setupMockDB(t)
	src := &stubSource{snap: Snapshot{{"symbol": "A"}, {"symbol": "B"}}}

	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `listings`")).
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type"}).AddRow("symbol", "varchar(20)").AddRow("name", "varchar(100)"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `symbol` FROM `listings` WHERE symbol IN (?,?)")).
		WithArgs("A", "B").
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `listings`").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := New(Pool(db), newPolicy(t, src), Config{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet(), "no DELETE may run after a failed insert")
}

func TestRun_PruneFailureKeepsInsert(t *testing.T) {
	db, mock := setupMockDB(t)
	src := &stubSource{snap: Snapshot{{"symbol": "A"}}}

	mock.ExpectQuery("SHOW COLUMNS FROM `listings`").
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type"}).AddRow("symbol", "varchar(20)"))
	mock.ExpectQuery("SELECT `symbol` FROM `listings`").
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `listings`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM listings WHERE symbol NOT IN (?) OR symbol IS NULL")).
		WithArgs("A").
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	res, err := New(Pool(db), newPolicy(t, src), Config{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, 1, res.Inserted, "the committed insert is reported")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// replaceListings recreates the listings table with the given column definitions.
func replaceListings(t *testing.T, db *gorm.DB, columns string) {
	require.NoError(t, db.Exec("DROP TABLE listings").Error)
	require.NoError(t, db.Exec("CREATE TABLE listings ("+columns+")").Error)
}

func TestRun_CaseInsensitiveKeyColumn(t *testing.T) {
	policies := []struct {
		name   string
		policy func(t *testing.T, src Source) Policy
	}{
		{"Batched", func(t *testing.T, src Source) Policy { return newPolicy(t, src) }},
		{"Per key", func(t *testing.T, src Source) Policy { return probeOnly{newPolicy(t, src)} }},
	}

	for _, tt := range policies {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			replaceListings(t, db, "symbol VARCHAR(20) NOT NULL COLLATE NOCASE, name VARCHAR(100)")
			require.NoError(t, db.Exec("INSERT INTO listings (symbol, name) VALUES ('ACB', 'stored')").Error)

			src := &stubSource{snap: Snapshot{{"symbol": "acb"}, {"symbol": "FPT"}}}
			res, err := New(Pool(db), tt.policy(t, src), Config{}, nil).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 1, res.Inserted)
			assert.Equal(t, int64(0), res.Deleted)
			assert.Equal(t, []string{"ACB", "FPT"}, tableKeys(t, db))
		})
	}
}

func TestRun_PrunesNullKeys(t *testing.T) {
	db := setupTestDB(t)
	replaceListings(t, db, "symbol VARCHAR(20), name VARCHAR(100)")
	require.NoError(t, db.Exec("INSERT INTO listings (symbol, name) VALUES (NULL, 'orphan'), ('A', 'a')").Error)

	src := &stubSource{snap: Snapshot{{"symbol": "B"}}}
	res, err := New(Pool(db), newPolicy(t, src), Config{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deleted)

	var nullRows int64
	require.NoError(t, db.Table("listings").Where("symbol IS NULL").Count(&nullRows).Error)
	assert.Equal(t, int64(0), nullRows)
	assert.Equal(t, []string{"B"}, tableKeys(t, db))
}
