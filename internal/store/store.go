// Package store — реестр ботов дашборда в SQLite.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("bot not found")
	ErrDuplicate = errors.New("bot name already exists")
)

type Status string

const (
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
	StatusStarting Status = "starting"
	StatusError    Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusStarting, StatusError:
		return true
	}
	return false
}

// Bot — запись о боте.
type Bot struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Username  string     `db:"username" json:"username"`
	Server    string     `db:"server" json:"server"`
	Port      int        `db:"port" json:"port"`
	Version   string     `db:"version" json:"version"`
	Status    Status     `db:"status" json:"status"`
	Config    string     `db:"config" json:"config,omitempty"` // YAML bot.Config
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	LastSeen  *time.Time `db:"last_seen" json:"lastSeen,omitempty"`
}

// Validate проверяет поля, которые задаёт пользователь.
func (b Bot) Validate() error {
	var problems []string
	if strings.TrimSpace(b.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(b.Username) == "" {
		problems = append(problems, "username is required")
	} else if len(b.Username) > 16 {
		problems = append(problems, "username must be at most 16 characters")
	}
	if strings.TrimSpace(b.Server) == "" {
		problems = append(problems, "server is required")
	}
	if b.Port < 1 || b.Port > 65535 {
		problems = append(problems, "port must be between 1 and 65535")
	}
	if b.Status != "" && !b.Status.Valid() {
		problems = append(problems, "unknown status "+string(b.Status))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid bot: " + strings.Join(e.Problems, "; ")
}

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open открывает (создаёт) базу и накатывает миграции.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrapf(err, "creating directory for %q", path)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", path)
	}
	// одно соединение: sqlite не любит параллельную запись, а :memory: живёт в соединении
	db.SetMaxOpenConns(1)
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return errors.WithStack(s.db.Close())
}

func (s *Store) List(ctx context.Context) ([]Bot, error) {
	bots := []Bot{}
	if err := s.db.SelectContext(ctx, &bots, `SELECT * FROM bots ORDER BY created_at, name`); err != nil {
		return nil, errors.WithStack(err)
	}
	return bots, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Bot, error) {
	b := &Bot{}
	if err := s.db.GetContext(ctx, b, `SELECT * FROM bots WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "id %q", id)
		}
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// Create сохраняет нового бота; ID, статус и время проставляются здесь.
func (s *Store) Create(ctx context.Context, b *Bot) error {
	if err := b.Validate(); err != nil {
		return err
	}
	now := s.now()
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now
	if b.Status == "" {
		b.Status = StatusOffline
	}
	if b.Version == "" {
		b.Version = "1.20.2"
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO bots (id, name, username, server, port, version, status, config, created_at, updated_at, last_seen)
		VALUES (:id, :name, :username, :server, :port, :version, :status, :config, :created_at, :updated_at, :last_seen)`, b)
	return s.mapErr(err)
}

// Update перезаписывает изменяемые поля.
func (s *Store) Update(ctx context.Context, b *Bot) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b.UpdatedAt = s.now()
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE bots SET name = :name, username = :username, server = :server, port = :port,
			version = :version, status = :status, config = :config, updated_at = :updated_at
		WHERE id = :id`, b)
	if err != nil {
		return s.mapErr(err)
	}
	return mustAffect(res, b.ID)
}

// UpdateStatus меняет статус; online обновляет и last_seen.
func (s *Store) UpdateStatus(ctx context.Context, id string, st Status) error {
	if !st.Valid() {
		return &ValidationError{Problems: []string{"unknown status " + string(st)}}
	}
	now := s.now()
	q := `UPDATE bots SET status = ?, updated_at = ? WHERE id = ?`
	args := []any{st, now, id}
	if st == StatusOnline {
		q = `UPDATE bots SET status = ?, updated_at = ?, last_seen = ? WHERE id = ?`
		args = []any{st, now, now, id}
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.WithStack(err)
	}
	return mustAffect(res, id)
}

// UpdateConfig сохраняет YAML-конфиг бота.
func (s *Store) UpdateConfig(ctx context.Context, id, config string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE bots SET config = ?, updated_at = ? WHERE id = ?`, config, s.now(), id)
	if err != nil {
		return errors.WithStack(err)
	}
	return mustAffect(res, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return errors.WithStack(err)
	}
	return mustAffect(res, id)
}

// ResetStatuses помечает всех ботов offline (после перезапуска процесса).
func (s *Store) ResetStatuses(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE bots SET status = ? WHERE status != ?`, StatusOffline, StatusOffline)
	return errors.WithStack(err)
}

func mustAffect(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "id %q", id)
	}
	return nil
}

func (s *Store) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errors.WithStack(ErrDuplicate)
	}
	return errors.WithStack(err)
}
