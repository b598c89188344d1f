package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/agregador/internal/model"
)

var _ model.Store = (*PostgresStore)(nil)

const pgUniqueViolation = "23505"

// PostgresStore is the shared-database backend. The schema is owned by the
// embedded migrations (see MigrateUp).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- sources ---

const pgSourceColumns = `id, nome, tipo, url, intervalo_minutos, ultima_coleta, proxima_coleta, ativa, config`

func (s *PostgresStore) ListSources(ctx context.Context) ([]model.Source, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+pgSourceColumns+" FROM fontes_vagas ORDER BY nome")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		src, err := scanPgSource(rows)
		if err != nil {
			return nil, fmt.Errorf("listing sources: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *PostgresStore) GetSource(ctx context.Context, id string) (model.Source, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+pgSourceColumns+" FROM fontes_vagas WHERE id = $1", id)
	src, err := scanPgSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Source{}, fmt.Errorf("source %s: %w", id, model.ErrSourceNotFound)
	}
	if err != nil {
		return model.Source{}, fmt.Errorf("getting source %s: %w", id, err)
	}
	return src, nil
}

func (s *PostgresStore) CreateSource(ctx context.Context, src model.Source) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	cfg := src.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage("{}")
	}
	_, err := s.pool.Exec(ctx, "INSERT INTO fontes_vagas ("+pgSourceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		src.ID, src.Name, string(src.Type), src.URL, int64(src.PollingInterval/time.Minute),
		src.LastCollectedAt, src.NextDueAt, src.Active, []byte(cfg),
	)
	if err != nil {
		return fmt.Errorf("creating source %s: %w", src.Name, err)
	}
	return nil
}

func (s *PostgresStore) UpdateSourceSchedule(ctx context.Context, id string, lastCollected, nextDue time.Time) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE fontes_vagas SET ultima_coleta = $1, proxima_coleta = $2 WHERE id = $3",
		lastCollected, nextDue, id,
	)
	if err != nil {
		return fmt.Errorf("advancing source %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("advancing source %s: %w", id, model.ErrSourceNotFound)
	}
	return nil
}

func scanPgSource(row pgx.Row) (model.Source, error) {
	var (
		src             model.Source
		typ             string
		intervalMinutes int64
		cfg             []byte
	)
	if err := row.Scan(&src.ID, &src.Name, &typ, &src.URL, &intervalMinutes,
		&src.LastCollectedAt, &src.NextDueAt, &src.Active, &cfg); err != nil {
		return model.Source{}, err
	}
	src.Type = model.SourceType(typ)
	src.PollingInterval = time.Duration(intervalMinutes) * time.Minute
	src.Config = json.RawMessage(cfg)
	return src, nil
}

// --- listings ---

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fingerprint string) (*model.Listing, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+listingColumns+" FROM vagas WHERE hash_deduplicacao = $1", fingerprint)
	l, err := scanPgListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding listing by fingerprint: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) InsertListing(ctx context.Context, l model.Listing) error {
	var province *string
	if l.ProvinceID != "" {
		province = &l.ProvinceID
	}
	_, err := s.pool.Exec(ctx, "INSERT INTO vagas ("+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		l.ID, l.Title, l.Company, l.Location, province, l.Description, nonNil(l.Requirements),
		l.ContractType, l.SalaryMin, l.SalaryMax, l.Currency, l.SourceURL, l.ContactEmail,
		l.CollectedAt, l.PublishedAt, l.ExpiresAt, l.Active, l.Fingerprint,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "vagas_hash_deduplicacao_key" {
		return fmt.Errorf("inserting listing %q: %w", l.Title, model.ErrDuplicateFingerprint)
	}
	if err != nil {
		return fmt.Errorf("inserting listing %q: %w", l.Title, err)
	}
	return nil
}

func (s *PostgresStore) UpdateListingDescription(ctx context.Context, id, description string) error {
	if _, err := s.pool.Exec(ctx, "UPDATE vagas SET descricao = $1 WHERE id = $2", description, id); err != nil {
		return fmt.Errorf("updating description of %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) LinkSource(ctx context.Context, link model.SourceListingLink) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO vagas_fontes (fonte_id, vaga_id, coletada_em)
		VALUES ($1, $2, $3)
		ON CONFLICT (fonte_id, vaga_id) DO UPDATE SET coletada_em = EXCLUDED.coletada_em`,
		link.SourceID, link.ListingID, link.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("linking listing %s to source %s: %w", link.ListingID, link.SourceID, err)
	}
	return nil
}

func (s *PostgresStore) DeactivateExpired(ctx context.Context, cutoff time.Time) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, `UPDATE vagas SET ativa = FALSE
		WHERE ativa AND data_expiracao IS NOT NULL AND data_expiracao < $1
		RETURNING `+listingColumns, cutoff)
	if err != nil {
		return nil, fmt.Errorf("deactivating expired listings: %w", err)
	}
	defer rows.Close()
	return collectPgListings(rows)
}

func (s *PostgresStore) ListListings(ctx context.Context, limit int) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+listingColumns+" FROM vagas ORDER BY coletada_em DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	defer rows.Close()
	return collectPgListings(rows)
}

func collectPgListings(rows pgx.Rows) ([]model.Listing, error) {
	var out []model.Listing
	for rows.Next() {
		l, err := scanPgListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanPgListing(row pgx.Row) (model.Listing, error) {
	var (
		l        model.Listing
		province *string
	)
	if err := row.Scan(&l.ID, &l.Title, &l.Company, &l.Location, &province, &l.Description, &l.Requirements,
		&l.ContractType, &l.SalaryMin, &l.SalaryMax, &l.Currency, &l.SourceURL, &l.ContactEmail,
		&l.CollectedAt, &l.PublishedAt, &l.ExpiresAt, &l.Active, &l.Fingerprint); err != nil {
		return model.Listing{}, err
	}
	if province != nil {
		l.ProvinceID = *province
	}
	return l, nil
}

// --- runs ---

func (s *PostgresStore) RecordRun(ctx context.Context, run model.CollectionRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	meta, err := json.Marshal(run.Metadata)
	if err != nil {
		return fmt.Errorf("encoding run metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO logs_coleta
		(id, fonte_id, status, vagas_novas, vagas_duplicadas, vagas_atualizadas, tempo_ms, erro, metadados, iniciada_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.SourceID, string(run.Status), run.New, run.Duplicate, run.Updated,
		run.Elapsed.Milliseconds(), run.Error, meta, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("recording run for source %s: %w", run.SourceID, err)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.CollectionRun, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, fonte_id, status, vagas_novas, vagas_duplicadas,
		vagas_atualizadas, tempo_ms, erro, metadados, iniciada_em
		FROM logs_coleta ORDER BY iniciada_em DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.CollectionRun
	for rows.Next() {
		var (
			run           model.CollectionRun
			status        string
			meta          []byte
			elapsedMillis int64
		)
		if err := rows.Scan(&run.ID, &run.SourceID, &status, &run.New, &run.Duplicate,
			&run.Updated, &elapsedMillis, &run.Error, &meta, &run.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Status = model.RunStatus(status)
		run.Elapsed = time.Duration(elapsedMillis) * time.Millisecond
		if err := json.Unmarshal(meta, &run.Metadata); err != nil {
			return nil, fmt.Errorf("decoding run metadata: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- provinces & notifications ---

func (s *PostgresStore) ListProvinces(ctx context.Context) ([]model.Province, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, nome FROM provincias_angola ORDER BY nome")
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

func (s *PostgresStore) InsertNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO notificacoes (id, user_id, tipo, titulo, mensagem, lida, criada_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification for %s: %w", n.UserID, err)
	}
	return nil
}
