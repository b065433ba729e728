package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"manifest-service/internal/domain"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Initialize the record store schema. The DDL is portable across SQLite and Postgres.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createManifestsQuery := `
	CREATE TABLE IF NOT EXISTS manifests (
		manifest_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		assigned_operator TEXT NOT NULL DEFAULT '',
		carrier_agent TEXT NOT NULL DEFAULT '',
		load_a INTEGER NOT NULL DEFAULT 0,
		load_b INTEGER NOT NULL DEFAULT 0,
		secondary_action TEXT NOT NULL DEFAULT '',
		last_action_at TEXT
	);
	`

	createAuditLogQuery := `
	CREATE TABLE IF NOT EXISTS audit_log (
		entry_id TEXT PRIMARY KEY,
		manifest_id TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_name TEXT NOT NULL,
		observation TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`

	createStaffRosterQuery := `
	CREATE TABLE IF NOT EXISTS staff_roster (
		operator_name TEXT PRIMARY KEY
	);
	`

	createAgentRosterQuery := `
	CREATE TABLE IF NOT EXISTS agent_roster (
		agent_name TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_audit_log_manifest
	ON audit_log(manifest_id, created_at);
	`

	statements := []string{
		createManifestsQuery,
		createAuditLogQuery,
		createStaffRosterQuery,
		createAgentRosterQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type ManifestSeed struct {
	ManifestID   string `json:"manifest_id"`
	Status       string `json:"status"`
	CarrierAgent string `json:"carrier_agent"`
	LoadA        int    `json:"load_a"`
	LoadB        int    `json:"load_b"`
}

type AgentSeed struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Seed is the on-disk shape of a seed file.
type Seed struct {
	Manifests []ManifestSeed `json:"manifests"`
	Operators []string       `json:"operators"`
	Agents    []AgentSeed    `json:"agents"`
}

// Populate the record store from a JSON seed file.
// Agent passwords are stored as bcrypt hashes.
func SeedFromJSON(ctx context.Context, db *sql.DB, driver, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return ApplySeed(ctx, db, driver, data)
}

// ApplySeed validates and upserts seed rows in one transaction.
func ApplySeed(ctx context.Context, db *sql.DB, driver string, data Seed) error {
	for i, m := range data.Manifests {
		if strings.TrimSpace(m.ManifestID) == "" {
			return fmt.Errorf("seed: manifest at index %d: manifest_id cannot be empty", i+1)
		}
		if m.LoadA < 0 || m.LoadB < 0 {
			return fmt.Errorf("seed: manifest %q: load counts must be non-negative", m.ManifestID)
		}
		if m.Status != "" && domain.ParseStatus(m.Status) == domain.StatusUnknown {
			return fmt.Errorf("seed: manifest %q: unknown status %q", m.ManifestID, m.Status)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := rebind(driver, `
	INSERT INTO manifests (manifest_id, status, carrier_agent, load_a, load_b)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (manifest_id) DO UPDATE
	SET status = EXCLUDED.status,
		carrier_agent = EXCLUDED.carrier_agent,
		load_a = EXCLUDED.load_a,
		load_b = EXCLUDED.load_b;
	`)
	for _, m := range data.Manifests {
		status := m.Status
		if status == "" {
			status = string(domain.StatusReceived)
		}
		if _, err := tx.ExecContext(ctx, q, strings.TrimSpace(m.ManifestID), status, m.CarrierAgent, m.LoadA, m.LoadB); err != nil {
			return fmt.Errorf("seed: insert manifest_id=%s: %w", m.ManifestID, err)
		}
	}

	q = rebind(driver, `INSERT INTO staff_roster (operator_name) VALUES (?) ON CONFLICT (operator_name) DO NOTHING;`)
	for _, name := range data.Operators {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, q, name); err != nil {
			return fmt.Errorf("seed: insert operator %q: %w", name, err)
		}
	}

	q = rebind(driver, `
	INSERT INTO agent_roster (agent_name, password_hash) VALUES (?, ?)
	ON CONFLICT (agent_name) DO UPDATE SET password_hash = EXCLUDED.password_hash;
	`)
	for _, a := range data.Agents {
		name := strings.TrimSpace(a.Name)
		if name == "" || a.Password == "" {
			return fmt.Errorf("seed: agent entries need a name and a password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed: hash password for %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, q, name, string(hash)); err != nil {
			return fmt.Errorf("seed: insert agent %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

// rebind rewrites ? placeholders into $n for Postgres.
func rebind(driver, query string) string {
	if driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
