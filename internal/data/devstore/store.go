// Package devstore is a development backing store implementing the REST
// boundary the client talks to. Aggregate reads can be configured to lag
// behind writes so read-after-write reconciliation can be exercised locally.
package devstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/util"
	"golang.org/x/crypto/bcrypt"
)

//go:embed schema.sql
var schemaSQL string

const (
	maxListedDays  = 30
	maxListedWeeks = 30
)

var (
	// ErrNotFound is returned for rows that do not exist or belong to another user
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned by CreateUser for a duplicate email
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials is returned by Authenticate
	ErrBadCredentials = errors.New("no user matching credentials")
	// ErrInvalidToken is returned by UserForToken
	ErrInvalidToken = errors.New("invalid token")
)

// Options configures a Store
type Options struct {
	// Path of the sqlite database; ":memory:" keeps everything in memory
	Path string
	// ReadLag is how many reads of each aggregate resource return the
	// pre-write value after a write by the same user
	ReadLag int
	// Now defaults to time.Now
	Now func() time.Time
	// Location decides which calendar day an entry is logged on; defaults to UTC
	Location *time.Location
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
}

// Store is the sqlite-backed development store
type Store struct {
	db       *sql.DB
	now      func() time.Time
	location *time.Location
	cost     int

	mu      sync.Mutex
	readLag int
	lags    map[int64]*lagState
}

// lagState holds the pre-write rows served to lagging aggregate reads
type lagState struct {
	rows      []logRow
	lag       int
	remaining map[string]int
}

// logRow is the part of a food log aggregates are computed from
type logRow struct {
	day       string
	weekStart string
	calories  int
}

// Open creates or opens the database and applies the schema
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = ":memory:"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ReadLag < 0 {
		return nil, fmt.Errorf("read lag must be non-negative, got %d", opts.ReadLag)
	}

	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: sqlite has a single writer and ":memory:" is per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	util.LogInfo("Development store opened", util.F("path", opts.Path), util.F("read_lag", opts.ReadLag))
	return &Store{
		db:       db,
		now:      opts.Now,
		location: opts.Location,
		cost:     opts.BcryptCost,
		readLag:  opts.ReadLag,
		lags:     make(map[int64]*lagState),
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SetReadLag changes the lag applied after subsequent writes
func (s *Store) SetReadLag(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readLag = n
}

// Today returns the current date key in the store location
func (s *Store) Today() string {
	return model.FormatDate(s.now().In(s.location))
}

// CreateUser registers an account and returns it with a fresh token
func (s *Store) CreateUser(ctx context.Context, creds model.Credentials) (model.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return model.User{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(creds.Email))
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, first_name, last_name, password_hash) VALUES (?, ?, ?, ?)`,
		email, creds.FirstName, creds.LastName, hash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return model.User{}, "", ErrEmailTaken
		}
		return model.User{}, "", fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()

	user := model.User{ID: id, Email: email, FirstName: creds.FirstName, LastName: creds.LastName}
	token, err := s.issueToken(ctx, id)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// Authenticate checks a password and returns the user's token, creating one if needed
func (s *Store) Authenticate(ctx context.Context, email, password string) (model.User, string, error) {
	var user model.User
	var hash []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, password_hash FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, "", ErrBadCredentials
	}
	if err != nil {
		return model.User{}, "", fmt.Errorf("failed to query user: %w", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return model.User{}, "", ErrBadCredentials
	}

	var token string
	err = s.db.QueryRowContext(ctx, `SELECT key FROM tokens WHERE user_id = ?`, user.ID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		token, err = s.issueToken(ctx, user.ID)
	}
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

func (s *Store) issueToken(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO tokens (key, user_id) VALUES (?, ?)`, token, userID); err != nil {
		return "", fmt.Errorf("failed to insert token: %w", err)
	}
	return token, nil
}

// RevokeToken deletes a token
func (s *Store) RevokeToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, token)
	return err
}

// UserForToken resolves a token
func (s *Store) UserForToken(ctx context.Context, token string) (model.User, error) {
	var user model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.first_name, u.last_name FROM tokens t JOIN users u ON u.id = t.user_id WHERE t.key = ?`,
		token).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrInvalidToken
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to query token: %w", err)
	}
	return user, nil
}

const entryColumns = `id, food_name, calories, protein, carbs, fat, image_url,
	image_credit_name, image_credit_profile, image_credit_photo, image_credit_source, time_logged, day`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (model.LogEntry, error) {
	var e model.LogEntry
	var logged string
	if err := row.Scan(&e.ID, &e.FoodName, &e.Calories, &e.Protein, &e.Carbs, &e.Fat, &e.ImageURL,
		&e.ImageCreditName, &e.ImageCreditProfile, &e.ImageCreditPhoto, &e.ImageCreditSource, &logged, &e.Day); err != nil {
		return model.LogEntry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, logged)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("failed to parse time_logged %q: %w", logged, err)
	}
	e.TimeLogged = t
	return e, nil
}

// ListEntries returns the user's entries for day, newest first
func (s *Store) ListEntries(ctx context.Context, userID int64, day string) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM food_logs WHERE user_id = ? AND day = ? ORDER BY time_logged DESC, id DESC`,
		userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []model.LogEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetEntry returns one of the user's entries
func (s *Store) GetEntry(ctx context.Context, userID, id int64) (model.LogEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM food_logs WHERE user_id = ? AND id = ?`, userID, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LogEntry{}, ErrNotFound
	}
	return e, err
}

// CreateEntry logs an entry on today's date
func (s *Store) CreateEntry(ctx context.Context, userID int64, entry model.LogEntry) (model.LogEntry, error) {
	if err := entry.Validate(); err != nil {
		return model.LogEntry{}, err
	}
	s.beginWrite(ctx, userID)

	logged := s.now().In(s.location)
	day := model.FormatDate(logged)
	week := model.FormatDate(model.WeekStart(logged))

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO food_logs (user_id, food_name, calories, protein, carbs, fat, image_url, time_logged, day, week_start)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, entry.FoodName, entry.Calories, entry.Protein, entry.Carbs, entry.Fat, entry.ImageURL,
		logged.Format(time.RFC3339Nano), day, week)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("failed to insert entry: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetEntry(ctx, userID, id)
}

// UpdateEntry applies patch to one of the user's entries
func (s *Store) UpdateEntry(ctx context.Context, userID, id int64, patch model.LogEntryPatch) (model.LogEntry, error) {
	current, err := s.GetEntry(ctx, userID, id)
	if err != nil {
		return model.LogEntry{}, err
	}
	if err := patch.Validate(); err != nil {
		return model.LogEntry{}, err
	}
	updated := patch.ApplyTo(current)
	if err := updated.Validate(); err != nil {
		return model.LogEntry{}, err
	}
	s.beginWrite(ctx, userID)

	_, err = s.db.ExecContext(ctx,
		`UPDATE food_logs SET food_name = ?, calories = ?, protein = ?, carbs = ?, fat = ?, image_url = ?
		 WHERE user_id = ? AND id = ?`,
		updated.FoodName, updated.Calories, updated.Protein, updated.Carbs, updated.Fat, updated.ImageURL,
		userID, id)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("failed to update entry: %w", err)
	}
	return s.GetEntry(ctx, userID, id)
}

// DeleteEntry removes one of the user's entries and returns the new total of its day
func (s *Store) DeleteEntry(ctx context.Context, userID, id int64) (int, error) {
	current, err := s.GetEntry(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	s.beginWrite(ctx, userID)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM food_logs WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return 0, fmt.Errorf("failed to delete entry: %w", err)
	}

	rows, err := s.aggregateRows(ctx, userID)
	if err != nil {
		return 0, err
	}
	return dayTotal(rows, current.Day), nil
}

// SetEntryImage stores a photo and its credit on one of the user's entries
func (s *Store) SetEntryImage(ctx context.Context, userID, id int64, imageURL string, credit model.AttributionRecord) (model.LogEntry, error) {
	if _, err := s.GetEntry(ctx, userID, id); err != nil {
		return model.LogEntry{}, err
	}
	s.beginWrite(ctx, userID)

	name := credit.Name
	if len(name) > model.MaxCreditName {
		name = name[:model.MaxCreditName]
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE food_logs SET image_url = ?, image_credit_name = ?, image_credit_profile = ?,
		 image_credit_photo = ?, image_credit_source = ? WHERE user_id = ? AND id = ?`,
		imageURL, name, credit.Profile, credit.Photo, credit.Source, userID, id)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("failed to set image: %w", err)
	}
	return s.GetEntry(ctx, userID, id)
}

// beginWrite snapshots the user's aggregate inputs before a write so that
// lagging reads can serve them
func (s *Store) beginWrite(ctx context.Context, userID int64) {
	s.mu.Lock()
	lag := s.readLag
	s.mu.Unlock()
	if lag == 0 {
		return
	}

	rows, err := s.aggregateRows(ctx, userID)
	if err != nil {
		util.LogWarn("Failed to snapshot aggregates", util.F("user", userID), util.F("error", err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lags[userID] = &lagState{rows: rows, lag: lag, remaining: make(map[string]int)}
}

// rowsForRead returns the rows an aggregate read of resource should see
func (s *Store) rowsForRead(ctx context.Context, userID int64, resource string) ([]logRow, error) {
	s.mu.Lock()
	if state, ok := s.lags[userID]; ok {
		n, seen := state.remaining[resource]
		if !seen {
			n = state.lag
		}
		if n > 0 {
			state.remaining[resource] = n - 1
			rows := state.rows
			s.mu.Unlock()
			util.LogDebugf("Serving lagged %s read to user %d (%d left)", resource, userID, n-1)
			return rows, nil
		}
	}
	s.mu.Unlock()
	return s.aggregateRows(ctx, userID)
}

func (s *Store) aggregateRows(ctx context.Context, userID int64) ([]logRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, week_start, calories FROM food_logs WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	var out []logRow
	for rows.Next() {
		var r logRow
		if err := rows.Scan(&r.day, &r.weekStart, &r.calories); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Days returns daily aggregates newest first, or the days of one week in date order
func (s *Store) Days(ctx context.Context, userID int64, weekStart string) ([]model.DailyAggregate, error) {
	rows, err := s.rowsForRead(ctx, userID, "days:"+weekStart)
	if err != nil {
		return nil, err
	}
	days := buildDays(rows)
	if weekStart != "" {
		filtered := []model.DailyAggregate{}
		for _, d := range days {
			if d.ParentWeek == weekStart {
				filtered = append(filtered, d)
			}
		}
		sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date < filtered[j].Date })
		return filtered, nil
	}
	if len(days) > maxListedDays {
		days = days[:maxListedDays]
	}
	return days, nil
}

// Day returns one date's aggregate
func (s *Store) Day(ctx context.Context, userID int64, date string) (model.DailyAggregate, error) {
	rows, err := s.rowsForRead(ctx, userID, "day:"+date)
	if err != nil {
		return model.DailyAggregate{}, err
	}
	for _, d := range buildDays(rows) {
		if d.Date == date {
			return d, nil
		}
	}
	return model.DailyAggregate{}, ErrNotFound
}

// Weeks returns weekly aggregates newest first
func (s *Store) Weeks(ctx context.Context, userID int64) ([]model.WeeklyAggregate, error) {
	rows, err := s.rowsForRead(ctx, userID, "weeks")
	if err != nil {
		return nil, err
	}
	weeks := buildWeeks(rows)
	if len(weeks) > maxListedWeeks {
		weeks = weeks[:maxListedWeeks]
	}
	return weeks, nil
}

// Week returns the aggregate of the week starting on start
func (s *Store) Week(ctx context.Context, userID int64, start string) (model.WeeklyAggregate, error) {
	rows, err := s.rowsForRead(ctx, userID, "week:"+start)
	if err != nil {
		return model.WeeklyAggregate{}, err
	}
	for _, w := range buildWeeks(rows) {
		if w.StartDate == start {
			return w, nil
		}
	}
	return model.WeeklyAggregate{}, ErrNotFound
}

func buildDays(rows []logRow) []model.DailyAggregate {
	byDay := make(map[string]*model.DailyAggregate)
	for _, r := range rows {
		d, ok := byDay[r.day]
		if !ok {
			d = &model.DailyAggregate{Date: r.day, ParentWeek: r.weekStart}
			byDay[r.day] = d
		}
		d.DailyCalorieTotal += r.calories
	}

	days := make([]model.DailyAggregate, 0, len(byDay))
	for _, d := range byDay {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days
}

func buildWeeks(rows []logRow) []model.WeeklyAggregate {
	byWeek := make(map[string]int)
	for _, r := range rows {
		byWeek[r.weekStart] += r.calories
	}

	weeks := make([]model.WeeklyAggregate, 0, len(byWeek))
	for start, total := range byWeek {
		weeks = append(weeks, model.WeeklyAggregate{StartDate: start, WeeklyCalorieTotal: total})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].StartDate > weeks[j].StartDate })
	return weeks
}

func dayTotal(rows []logRow, day string) int {
	total := 0
	for _, r := range rows {
		if r.day == day {
			total += r.calories
		}
	}
	return total
}
