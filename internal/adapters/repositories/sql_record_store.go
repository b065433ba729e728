package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"manifest-service/internal/domain"
	"manifest-service/internal/platform/obs"
	"manifest-service/internal/ports"
	"strings"
	"time"
)

var _ ports.RecordStore = (*SQLRecordStore)(nil)

// SQL-backed implementation of the RecordStore port. Driver selects the
// placeholder dialect ("sqlite" or "pgx").
type SQLRecordStore struct {
	DB     *sql.DB
	Driver string
}

func NewSQLRecordStore(db *sql.DB, driver string) *SQLRecordStore {
	return &SQLRecordStore{DB: db, Driver: driver}
}

func (s *SQLRecordStore) q(query string) string {
	return rebind(s.Driver, query)
}

func (s *SQLRecordStore) Ping(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("sql record store: DB is nil")
	}
	return s.DB.PingContext(ctx)
}

const manifestColumns = `
	manifest_id,
	status,
	assigned_operator,
	carrier_agent,
	load_a,
	load_b,
	secondary_action,
	last_action_at`

func scanManifest(scan func(dest ...any) error) (*domain.Manifest, error) {
	var m domain.Manifest
	var status, lastAction sql.NullString
	err := scan(
		&m.ManifestID,
		&status,
		&m.AssignedOperator,
		&m.CarrierAgent,
		&m.Loads.A,
		&m.Loads.B,
		&m.SecondaryAction,
		&lastAction,
	)
	if err != nil {
		return nil, err
	}
	m.Status = domain.ParseStatus(status.String)
	if lastAction.Valid && lastAction.String != "" {
		if ts, err := time.Parse(time.RFC3339Nano, lastAction.String); err == nil {
			m.LastActionAt = &ts
		}
	}
	return &m, nil
}

// Return a single manifest by id.
func (s *SQLRecordStore) GetManifest(ctx context.Context, manifestID string) (_ *domain.Manifest, err error) {
	defer obs.Time(ctx, "store.GetManifest")(&err)

	if s.DB == nil {
		return nil, errors.New("sql record store: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, s.q(`SELECT`+manifestColumns+` FROM manifests WHERE manifest_id = ?;`), manifestID)
	m, err := scanManifest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("get manifest: scan row: %w", err)
	}
	return m, nil
}

func statusPredicate(statuses []domain.Status) (string, []any) {
	if len(statuses) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(statuses))
	args := make([]any, 0, len(statuses))
	for _, st := range statuses {
		parts = append(parts, "LOWER(status) LIKE ?")
		args = append(args, "%"+string(st)+"%")
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// Return manifests matching the filter, ordered by id.
func (s *SQLRecordStore) ListManifests(ctx context.Context, filter domain.ManifestFilter) (_ []*domain.Manifest, err error) {
	defer obs.Time(ctx, "store.ListManifests")(&err)

	if s.DB == nil {
		return nil, errors.New("sql record store: DB is nil")
	}

	var where []string
	var args []any
	if pred, pargs := statusPredicate(filter.Statuses); pred != "" {
		where = append(where, pred)
		args = append(args, pargs...)
	}
	if filter.AssignedOperator != "" {
		where = append(where, "assigned_operator = ?")
		args = append(args, filter.AssignedOperator)
	}
	if filter.CarrierAgent != "" {
		where = append(where, "LOWER(carrier_agent) = LOWER(?)")
		args = append(args, filter.CarrierAgent)
	}

	query := `SELECT` + manifestColumns + ` FROM manifests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY manifest_id;"

	rows, err := s.DB.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list manifests: query manifests table: %w", err)
	}
	defer rows.Close()

	manifests := make([]*domain.Manifest, 0, 64)
	for rows.Next() {
		m, err := scanManifest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list manifests: scan row: %w", err)
		}
		manifests = append(manifests, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list manifests: row iteration: %w", err)
	}

	return manifests, nil
}

// Compare-and-set the primary status. Zero affected rows means the stored
// status moved on (or the manifest vanished) since it was read.
func (s *SQLRecordStore) UpdateStatus(ctx context.Context, u ports.StatusUpdate) (err error) {
	defer obs.Time(ctx, "store.UpdateStatus")(&err)

	if s.DB == nil {
		return errors.New("sql record store: DB is nil")
	}
	if len(u.From) == 0 {
		return errors.New("update status: no source states given")
	}

	pred, pargs := statusPredicate(u.From)
	query := `
	UPDATE manifests
	SET status = ?, assigned_operator = ?, last_action_at = ?
	WHERE manifest_id = ? AND ` + pred + `;`
	args := append([]any{string(u.To), u.Operator, u.At.UTC().Format(time.RFC3339Nano), u.ManifestID}, pargs...)

	res, err := s.DB.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("update status manifest_id=%s: %w", u.ManifestID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status manifest_id=%s: rows affected: %w", u.ManifestID, err)
	}
	if n == 0 {
		return domain.ErrNoRows
	}
	return nil
}

func (s *SQLRecordStore) UpdateSecondaryAction(ctx context.Context, manifestID string, action domain.Action) (err error) {
	defer obs.Time(ctx, "store.UpdateSecondaryAction")(&err)

	if s.DB == nil {
		return errors.New("sql record store: DB is nil")
	}

	_, err = s.DB.ExecContext(ctx, s.q(`UPDATE manifests SET secondary_action = ? WHERE manifest_id = ?;`), string(action), manifestID)
	if err != nil {
		return fmt.Errorf("update secondary action manifest_id=%s: %w", manifestID, err)
	}
	return nil
}

func (s *SQLRecordStore) AppendAudit(ctx context.Context, e domain.AuditEntry) (err error) {
	defer obs.Time(ctx, "store.AppendAudit")(&err)

	if s.DB == nil {
		return errors.New("sql record store: DB is nil")
	}

	query := `
	INSERT INTO audit_log (entry_id, manifest_id, action, actor_name, observation, created_at)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err = s.DB.ExecContext(ctx, s.q(query),
		e.EntryID, e.ManifestID, string(e.Action), e.ActorName, e.Observation,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append audit manifest_id=%s: %w", e.ManifestID, err)
	}
	return nil
}

// Return audit entries for a manifest in insertion order.
func (s *SQLRecordStore) ListAudit(ctx context.Context, manifestID string) (entries []domain.AuditEntry, err error) {
	defer obs.Time(ctx, "store.ListAudit")(&err)

	if s.DB == nil {
		return nil, errors.New("sql record store: DB is nil")
	}

	query := `
	SELECT entry_id, manifest_id, action, actor_name, observation, created_at
	FROM audit_log
	WHERE manifest_id = ?
	ORDER BY created_at, entry_id;
	`
	rows, err := s.DB.QueryContext(ctx, s.q(query), manifestID)
	if err != nil {
		return nil, fmt.Errorf("list audit: query audit_log table: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var action, created string
		if err := rows.Scan(&e.EntryID, &e.ManifestID, &action, &e.ActorName, &e.Observation, &created); err != nil {
			return nil, fmt.Errorf("list audit: scan row: %w", err)
		}
		e.Action = domain.Action(action)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit: row iteration: %w", err)
	}
	return out, nil
}

func (s *SQLRecordStore) listNames(ctx context.Context, query string) ([]string, error) {
	if s.DB == nil {
		return nil, errors.New("sql record store: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0, 16)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names, rows.Err()
}

func (s *SQLRecordStore) ListOperatorNames(ctx context.Context) (_ []string, err error) {
	defer obs.Time(ctx, "store.ListOperatorNames")(&err)

	names, err := s.listNames(ctx, `SELECT DISTINCT operator_name FROM staff_roster ORDER BY operator_name;`)
	if err != nil {
		return nil, fmt.Errorf("list operator names: %w", err)
	}
	return names, nil
}

func (s *SQLRecordStore) ListAgentNames(ctx context.Context) (_ []string, err error) {
	defer obs.Time(ctx, "store.ListAgentNames")(&err)

	names, err := s.listNames(ctx, `SELECT DISTINCT agent_name FROM agent_roster ORDER BY agent_name;`)
	if err != nil {
		return nil, fmt.Errorf("list agent names: %w", err)
	}
	return names, nil
}

func (s *SQLRecordStore) AgentPasswordHash(ctx context.Context, agentName string) (string, error) {
	if s.DB == nil {
		return "", errors.New("sql record store: DB is nil")
	}

	var hash string
	err := s.DB.QueryRowContext(ctx, s.q(`SELECT password_hash FROM agent_roster WHERE agent_name = ?;`), agentName).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNoRows
	}
	if err != nil {
		return "", fmt.Errorf("agent password hash: %w", err)
	}
	return hash, nil
}

// AddOperator inserts a staff roster entry.
func (s *SQLRecordStore) AddOperator(ctx context.Context, name string) error {
	if s.DB == nil {
		return errors.New("sql record store: DB is nil")
	}
	_, err := s.DB.ExecContext(ctx, s.q(`INSERT INTO staff_roster (operator_name) VALUES (?) ON CONFLICT (operator_name) DO NOTHING;`), name)
	if err != nil {
		return fmt.Errorf("add operator %q: %w", name, err)
	}
	return nil
}
