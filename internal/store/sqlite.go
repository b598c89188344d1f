package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/amishk599/agregador/internal/model"
)

var _ model.Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS provincias_angola (
	id   TEXT PRIMARY KEY,
	nome TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS fontes_vagas (
	id                TEXT PRIMARY KEY,
	nome              TEXT NOT NULL,
	tipo              TEXT NOT NULL,
	url               TEXT NOT NULL,
	intervalo_minutos INTEGER NOT NULL DEFAULT 60,
	ultima_coleta     TEXT,
	proxima_coleta    TEXT,
	ativa             INTEGER NOT NULL DEFAULT 1,
	config            TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS vagas (
	id                TEXT PRIMARY KEY,
	titulo            TEXT NOT NULL,
	empresa           TEXT NOT NULL,
	localidade        TEXT NOT NULL,
	provincia_id      TEXT REFERENCES provincias_angola(id),
	descricao         TEXT NOT NULL DEFAULT '',
	requisitos        TEXT NOT NULL DEFAULT '[]',
	tipo_contrato     TEXT NOT NULL,
	salario_min       REAL,
	salario_max       REAL,
	moeda             TEXT NOT NULL DEFAULT 'AOA',
	url_origem        TEXT NOT NULL DEFAULT '',
	email_contacto    TEXT NOT NULL DEFAULT '',
	coletada_em       TEXT NOT NULL,
	publicada_em      TEXT,
	data_expiracao    TEXT,
	ativa             INTEGER NOT NULL DEFAULT 1,
	hash_deduplicacao TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS vagas_fontes (
	fonte_id    TEXT NOT NULL REFERENCES fontes_vagas(id),
	vaga_id     TEXT NOT NULL REFERENCES vagas(id),
	coletada_em TEXT NOT NULL,
	PRIMARY KEY (fonte_id, vaga_id)
);
CREATE TABLE IF NOT EXISTS logs_coleta (
	id                TEXT PRIMARY KEY,
	fonte_id          TEXT NOT NULL,
	status            TEXT NOT NULL,
	vagas_novas       INTEGER NOT NULL DEFAULT 0,
	vagas_duplicadas  INTEGER NOT NULL DEFAULT 0,
	vagas_atualizadas INTEGER NOT NULL DEFAULT 0,
	tempo_ms          INTEGER NOT NULL DEFAULT 0,
	erro              TEXT NOT NULL DEFAULT '',
	metadados         TEXT NOT NULL DEFAULT '{}',
	iniciada_em       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS notificacoes (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	tipo      TEXT NOT NULL,
	titulo    TEXT NOT NULL,
	mensagem  TEXT NOT NULL,
	lida      INTEGER NOT NULL DEFAULT 0,
	criada_em TEXT NOT NULL
);`

const listingColumns = `id, titulo, empresa, localidade, provincia_id, descricao, requisitos,
	tipo_contrato, salario_min, salario_max, moeda, url_origem, email_contacto,
	coletada_em, publicada_em, data_expiracao, ativa, hash_deduplicacao`

// SQLiteStore is the embedded single-file backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures the
// schema exists and seeds the province table.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	for _, p := range AngolaProvinces {
		if _, err := db.Exec("INSERT OR IGNORE INTO provincias_angola (id, nome) VALUES (?, ?)", p.ID, p.Name); err != nil {
			db.Close()
			return nil, fmt.Errorf("seeding province %s: %w", p.Name, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- sources ---

func (s *SQLiteStore) ListSources(ctx context.Context) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nome, tipo, url, intervalo_minutos,
		ultima_coleta, proxima_coleta, ativa, config FROM fontes_vagas ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		src, err := scanSQLiteSource(rows)
		if err != nil {
			return nil, fmt.Errorf("listing sources: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *SQLiteStore) GetSource(ctx context.Context, id string) (model.Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, nome, tipo, url, intervalo_minutos,
		ultima_coleta, proxima_coleta, ativa, config FROM fontes_vagas WHERE id = ?`, id)
	src, err := scanSQLiteSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Source{}, fmt.Errorf("source %s: %w", id, model.ErrSourceNotFound)
	}
	if err != nil {
		return model.Source{}, fmt.Errorf("getting source %s: %w", id, err)
	}
	return src, nil
}

func (s *SQLiteStore) CreateSource(ctx context.Context, src model.Source) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	cfg := string(src.Config)
	if cfg == "" {
		cfg = "{}"
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO fontes_vagas
		(id, nome, tipo, url, intervalo_minutos, ultima_coleta, proxima_coleta, ativa, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, string(src.Type), src.URL, int64(src.PollingInterval/time.Minute),
		formatNullTime(src.LastCollectedAt), formatNullTime(src.NextDueAt), src.Active, cfg,
	)
	if err != nil {
		return fmt.Errorf("creating source %s: %w", src.Name, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateSourceSchedule(ctx context.Context, id string, lastCollected, nextDue time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE fontes_vagas SET ultima_coleta = ?, proxima_coleta = ? WHERE id = ?",
		formatTime(lastCollected), formatTime(nextDue), id,
	)
	if err != nil {
		return fmt.Errorf("advancing source %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("advancing source %s: %w", id, model.ErrSourceNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSource(row rowScanner) (model.Source, error) {
	var (
		src                    model.Source
		typ, cfg               string
		intervalMinutes        int64
		lastCollected, nextDue sql.NullString
	)
	if err := row.Scan(&src.ID, &src.Name, &typ, &src.URL, &intervalMinutes,
		&lastCollected, &nextDue, &src.Active, &cfg); err != nil {
		return model.Source{}, err
	}
	src.Type = model.SourceType(typ)
	src.PollingInterval = time.Duration(intervalMinutes) * time.Minute
	src.LastCollectedAt = parseNullTime(lastCollected)
	src.NextDueAt = parseNullTime(nextDue)
	src.Config = json.RawMessage(cfg)
	return src, nil
}

// --- listings ---

func (s *SQLiteStore) FindByFingerprint(ctx context.Context, fingerprint string) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM vagas WHERE hash_deduplicacao = ?", fingerprint)
	l, err := scanSQLiteListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding listing by fingerprint: %w", err)
	}
	return &l, nil
}

func (s *SQLiteStore) InsertListing(ctx context.Context, l model.Listing) error {
	reqs, err := json.Marshal(nonNil(l.Requirements))
	if err != nil {
		return fmt.Errorf("encoding requirements: %w", err)
	}
	var province any
	if l.ProvinceID != "" {
		province = l.ProvinceID
	}
	_, err = s.db.ExecContext(ctx, "INSERT INTO vagas ("+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Title, l.Company, l.Location, province, l.Description, string(reqs),
		l.ContractType, l.SalaryMin, l.SalaryMax, l.Currency, l.SourceURL, l.ContactEmail,
		formatTime(l.CollectedAt), formatNullTime(l.PublishedAt), formatNullDate(l.ExpiresAt),
		l.Active, l.Fingerprint,
	)
	if isSQLiteUniqueViolation(err) {
		return fmt.Errorf("inserting listing %q: %w", l.Title, model.ErrDuplicateFingerprint)
	}
	if err != nil {
		return fmt.Errorf("inserting listing %q: %w", l.Title, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateListingDescription(ctx context.Context, id, description string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE vagas SET descricao = ? WHERE id = ?", description, id); err != nil {
		return fmt.Errorf("updating description of %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) LinkSource(ctx context.Context, link model.SourceListingLink) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO vagas_fontes (fonte_id, vaga_id, coletada_em)
		VALUES (?, ?, ?)
		ON CONFLICT (fonte_id, vaga_id) DO UPDATE SET coletada_em = excluded.coletada_em`,
		link.SourceID, link.ListingID, formatTime(link.CollectedAt),
	)
	if err != nil {
		return fmt.Errorf("linking listing %s to source %s: %w", link.ListingID, link.SourceID, err)
	}
	return nil
}

func (s *SQLiteStore) DeactivateExpired(ctx context.Context, cutoff time.Time) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `UPDATE vagas SET ativa = 0
		WHERE ativa = 1 AND data_expiracao IS NOT NULL AND data_expiracao < ?
		RETURNING `+listingColumns, cutoff.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("deactivating expired listings: %w", err)
	}
	defer rows.Close()
	return collectSQLiteListings(rows)
}

func (s *SQLiteStore) ListListings(ctx context.Context, limit int) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+listingColumns+" FROM vagas ORDER BY coletada_em DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	defer rows.Close()
	return collectSQLiteListings(rows)
}

// CountLinks returns how many sources reported the listing.
func (s *SQLiteStore) CountLinks(ctx context.Context, listingID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vagas_fontes WHERE vaga_id = ?", listingID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting links of %s: %w", listingID, err)
	}
	return n, nil
}

func collectSQLiteListings(rows *sql.Rows) ([]model.Listing, error) {
	var out []model.Listing
	for rows.Next() {
		l, err := scanSQLiteListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanSQLiteListing(row rowScanner) (model.Listing, error) {
	var (
		l                    model.Listing
		province             sql.NullString
		reqs, collected      string
		published, expires   sql.NullString
		salaryMin, salaryMax sql.NullFloat64
	)
	if err := row.Scan(&l.ID, &l.Title, &l.Company, &l.Location, &province, &l.Description, &reqs,
		&l.ContractType, &salaryMin, &salaryMax, &l.Currency, &l.SourceURL, &l.ContactEmail,
		&collected, &published, &expires, &l.Active, &l.Fingerprint); err != nil {
		return model.Listing{}, err
	}
	l.ProvinceID = province.String
	if err := json.Unmarshal([]byte(reqs), &l.Requirements); err != nil {
		return model.Listing{}, fmt.Errorf("decoding requirements: %w", err)
	}
	if salaryMin.Valid {
		l.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		l.SalaryMax = &salaryMax.Float64
	}
	if t := parseNullTime(sql.NullString{String: collected, Valid: true}); t != nil {
		l.CollectedAt = *t
	}
	l.PublishedAt = parseNullTime(published)
	l.ExpiresAt = parseNullTime(expires)
	return l, nil
}

// --- runs ---

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.CollectionRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	meta, err := json.Marshal(run.Metadata)
	if err != nil {
		return fmt.Errorf("encoding run metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO logs_coleta
		(id, fonte_id, status, vagas_novas, vagas_duplicadas, vagas_atualizadas, tempo_ms, erro, metadados, iniciada_em)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourceID, string(run.Status), run.New, run.Duplicate, run.Updated,
		run.Elapsed.Milliseconds(), run.Error, string(meta), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("recording run for source %s: %w", run.SourceID, err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.CollectionRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, fonte_id, status, vagas_novas, vagas_duplicadas,
		vagas_atualizadas, tempo_ms, erro, metadados, iniciada_em
		FROM logs_coleta ORDER BY iniciada_em DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.CollectionRun
	for rows.Next() {
		var (
			run           model.CollectionRun
			status, meta  string
			started       string
			elapsedMillis int64
		)
		if err := rows.Scan(&run.ID, &run.SourceID, &status, &run.New, &run.Duplicate,
			&run.Updated, &elapsedMillis, &run.Error, &meta, &started); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Status = model.RunStatus(status)
		run.Elapsed = time.Duration(elapsedMillis) * time.Millisecond
		if err := json.Unmarshal([]byte(meta), &run.Metadata); err != nil {
			return nil, fmt.Errorf("decoding run metadata: %w", err)
		}
		if t := parseNullTime(sql.NullString{String: started, Valid: true}); t != nil {
			run.StartedAt = *t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- provinces & notifications ---

func (s *SQLiteStore) ListProvinces(ctx context.Context) ([]model.Province, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, nome FROM provincias_angola ORDER BY nome")
	if err != nil {
		return nil, fmt.Errorf("listing provinces: %w", err)
	}
	defer rows.Close()

	var out []model.Province
	for rows.Next() {
		var p model.Province
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scanning province: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO notificacoes (id, user_id, tipo, titulo, mensagem, lida, criada_em)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Read, formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting notification for %s: %w", n.UserID, err)
	}
	return nil
}

// --- helpers ---

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// timestampLayout is fixed width so text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatNullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return &t
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
