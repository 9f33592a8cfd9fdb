package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/karooma/backend/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kits (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	slug              TEXT NOT NULL UNIQUE,
	theme             TEXT NOT NULL DEFAULT '',
	task_intent       TEXT NOT NULL DEFAULT '',
	short_description TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	concept_items     TEXT NOT NULL,
	rules             TEXT NOT NULL,
	status            TEXT NOT NULL,
	last_updated_at   TEXT NOT NULL,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kit_products (
	id               TEXT PRIMARY KEY,
	kit_id           TEXT NOT NULL REFERENCES kits(id) ON DELETE CASCADE,
	asin             TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	brand            TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	price            REAL NOT NULL DEFAULT 0,
	original_price   REAL NOT NULL DEFAULT 0,
	rating           REAL NOT NULL DEFAULT 0,
	review_count     INTEGER NOT NULL DEFAULT 0,
	is_prime         INTEGER NOT NULL DEFAULT 0,
	image_url        TEXT NOT NULL DEFAULT '',
	product_url      TEXT NOT NULL DEFAULT '',
	concept_name     TEXT NOT NULL DEFAULT '',
	role             TEXT NOT NULL,
	rank_score       REAL NOT NULL DEFAULT 0,
	task_match_score REAL NOT NULL DEFAULT 0,
	rationale        TEXT NOT NULL DEFAULT '',
	added_via        TEXT NOT NULL,
	affiliate_link   TEXT NOT NULL DEFAULT '',
	sort_order       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_kit_products_kit ON kit_products(kit_id);

CREATE TABLE IF NOT EXISTS manual_products (
	id               TEXT PRIMARY KEY,
	kit_id           TEXT NOT NULL REFERENCES kits(id) ON DELETE CASCADE,
	asin             TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	brand            TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	price            REAL NOT NULL DEFAULT 0,
	original_price   REAL NOT NULL DEFAULT 0,
	rating           REAL NOT NULL DEFAULT 0,
	review_count     INTEGER NOT NULL DEFAULT 0,
	is_prime         INTEGER NOT NULL DEFAULT 0,
	image_url        TEXT NOT NULL DEFAULT '',
	product_url      TEXT NOT NULL DEFAULT '',
	concept_name     TEXT NOT NULL DEFAULT '',
	role             TEXT NOT NULL,
	affiliate_link   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_manual_products_kit ON manual_products(kit_id);
`

// Store is a sqlite-backed kit repository. It also serves as the manual
// override store for fallback substitution.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the sqlite database at path and applies
// the schema. Use ":memory:" for an ephemeral store in tests.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// The modernc driver serializes writes itself, but a single
	// connection avoids SQLITE_BUSY on concurrent refreshes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateKit inserts a new kit aggregate.
func (s *Store) CreateKit(ctx context.Context, kit *domain.Kit) error {
	conceptJSON, err := json.Marshal(kit.ConceptItems)
	if err != nil {
		return fmt.Errorf("marshal concept items: %w", err)
	}
	rulesJSON, err := json.Marshal(kit.Rules)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kits (id, title, slug, theme, task_intent, short_description, category,
			concept_items, rules, status, last_updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		kit.ID, kit.Title, kit.Slug, kit.Theme, kit.TaskIntent, kit.ShortDescription, kit.Category,
		string(conceptJSON), string(rulesJSON), string(kit.Status),
		kit.LastUpdatedAt.UTC().Format(time.RFC3339Nano), kit.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert kit: %w", err)
	}
	return nil
}

// GetKit loads a kit with its current product list.
func (s *Store) GetKit(ctx context.Context, id string) (*domain.Kit, error) {
	return s.getKit(ctx, "id = ?", id)
}

// GetKitBySlug loads a kit by its URL slug.
func (s *Store) GetKitBySlug(ctx context.Context, slug string) (*domain.Kit, error) {
	return s.getKit(ctx, "slug = ?", slug)
}

func (s *Store) getKit(ctx context.Context, where string, arg interface{}) (*domain.Kit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, slug, theme, task_intent, short_description, category,
			concept_items, rules, status, last_updated_at, created_at
		FROM kits WHERE `+where, arg)

	kit, err := scanKit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrKitNotFound
		}
		return nil, err
	}

	products, err := s.loadProducts(ctx, kit.ID)
	if err != nil {
		return nil, err
	}
	kit.Products = products
	return kit, nil
}

// ListKits returns all kits without their product lists; the scheduler
// only needs rule sets and timestamps to decide what is due.
func (s *Store) ListKits(ctx context.Context) ([]domain.Kit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, slug, theme, task_intent, short_description, category,
			concept_items, rules, status, last_updated_at, created_at
		FROM kits ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	defer rows.Close()

	var kits []domain.Kit
	for rows.Next() {
		kit, err := scanKit(rows)
		if err != nil {
			return nil, err
		}
		kits = append(kits, *kit)
	}
	return kits, rows.Err()
}

// ReplaceProducts swaps a kit's product list and status in one
// transaction. Readers never observe a partially-updated kit; on error
// the prior state remains intact.
func (s *Store) ReplaceProducts(ctx context.Context, kitID string, products []domain.KitProduct, status domain.KitStatus, updatedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE kits SET status = ?, last_updated_at = ? WHERE id = ?`,
		string(status), updatedAt.UTC().Format(time.RFC3339Nano), kitID)
	if err != nil {
		return fmt.Errorf("update kit status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrKitNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM kit_products WHERE kit_id = ?`, kitID); err != nil {
		return fmt.Errorf("clear kit products: %w", err)
	}

	for _, p := range products {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kit_products (id, kit_id, asin, title, description, brand, category,
				price, original_price, rating, review_count, is_prime, image_url, product_url,
				concept_name, role, rank_score, task_match_score, rationale, added_via,
				affiliate_link, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, kitID, p.ASIN, p.Title, p.Description, p.Brand, p.Category,
			p.Price, p.OriginalPrice, p.Rating, p.ReviewCount, boolToInt(p.IsPrime), p.ImageURL, p.ProductURL,
			p.ConceptName, string(p.Role), p.RankScore, p.TaskMatchScore, p.Rationale, string(p.AddedVia),
			p.AffiliateLink, p.SortOrder); err != nil {
			return fmt.Errorf("insert kit product %s: %w", p.ASIN, err)
		}
	}

	return tx.Commit()
}

// SetStatus updates a kit's status without touching its products.
func (s *Store) SetStatus(ctx context.Context, kitID string, status domain.KitStatus, updatedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE kits SET status = ?, last_updated_at = ? WHERE id = ?`,
		string(status), updatedAt.UTC().Format(time.RFC3339Nano), kitID)
	if err != nil {
		return fmt.Errorf("set kit status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrKitNotFound
	}
	return nil
}

// GetManualProducts returns the admin-curated substitutes for a kit.
func (s *Store) GetManualProducts(ctx context.Context, kitID string) ([]domain.KitProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asin, title, description, brand, category, price, original_price,
			rating, review_count, is_prime, image_url, product_url, concept_name, role, affiliate_link
		FROM manual_products WHERE kit_id = ? ORDER BY concept_name, asin`, kitID)
	if err != nil {
		return nil, fmt.Errorf("load manual products: %w", err)
	}
	defer rows.Close()

	var products []domain.KitProduct
	for rows.Next() {
		var p domain.KitProduct
		var isPrime int
		var role string
		if err := rows.Scan(&p.ID, &p.ASIN, &p.Title, &p.Description, &p.Brand, &p.Category,
			&p.Price, &p.OriginalPrice, &p.Rating, &p.ReviewCount, &isPrime,
			&p.ImageURL, &p.ProductURL, &p.ConceptName, &role, &p.AffiliateLink); err != nil {
			return nil, fmt.Errorf("scan manual product: %w", err)
		}
		p.KitID = kitID
		p.IsPrime = isPrime != 0
		p.Role = domain.Role(role)
		p.AddedVia = domain.AddedManual
		products = append(products, p)
	}
	return products, rows.Err()
}

// AddManualProduct stores an admin-curated substitute for a kit.
func (s *Store) AddManualProduct(ctx context.Context, kitID string, p domain.KitProduct) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_products (id, kit_id, asin, title, description, brand, category,
			price, original_price, rating, review_count, is_prime, image_url, product_url,
			concept_name, role, affiliate_link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, kitID, p.ASIN, p.Title, p.Description, p.Brand, p.Category,
		p.Price, p.OriginalPrice, p.Rating, p.ReviewCount, boolToInt(p.IsPrime),
		p.ImageURL, p.ProductURL, p.ConceptName, string(p.Role), p.AffiliateLink)
	if err != nil {
		return fmt.Errorf("insert manual product: %w", err)
	}
	return nil
}

// loadProducts loads a kit's product list in display order.
func (s *Store) loadProducts(ctx context.Context, kitID string) ([]domain.KitProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asin, title, description, brand, category, price, original_price,
			rating, review_count, is_prime, image_url, product_url, concept_name, role,
			rank_score, task_match_score, rationale, added_via, affiliate_link, sort_order
		FROM kit_products WHERE kit_id = ? ORDER BY sort_order`, kitID)
	if err != nil {
		return nil, fmt.Errorf("load kit products: %w", err)
	}
	defer rows.Close()

	var products []domain.KitProduct
	for rows.Next() {
		var p domain.KitProduct
		var isPrime int
		var role, addedVia string
		if err := rows.Scan(&p.ID, &p.ASIN, &p.Title, &p.Description, &p.Brand, &p.Category,
			&p.Price, &p.OriginalPrice, &p.Rating, &p.ReviewCount, &isPrime,
			&p.ImageURL, &p.ProductURL, &p.ConceptName, &role,
			&p.RankScore, &p.TaskMatchScore, &p.Rationale, &addedVia,
			&p.AffiliateLink, &p.SortOrder); err != nil {
			return nil, fmt.Errorf("scan kit product: %w", err)
		}
		p.KitID = kitID
		p.IsPrime = isPrime != 0
		p.Role = domain.Role(role)
		p.AddedVia = domain.AddedVia(addedVia)
		products = append(products, p)
	}
	return products, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanKit(row rowScanner) (*domain.Kit, error) {
	var kit domain.Kit
	var conceptJSON, rulesJSON, status, lastUpdated, created string

	if err := row.Scan(&kit.ID, &kit.Title, &kit.Slug, &kit.Theme, &kit.TaskIntent,
		&kit.ShortDescription, &kit.Category, &conceptJSON, &rulesJSON, &status,
		&lastUpdated, &created); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(conceptJSON), &kit.ConceptItems); err != nil {
		return nil, fmt.Errorf("unmarshal concept items: %w", err)
	}
	if err := json.Unmarshal([]byte(rulesJSON), &kit.Rules); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	kit.Status = domain.KitStatus(status)

	var err error
	if kit.LastUpdatedAt, err = time.Parse(time.RFC3339Nano, lastUpdated); err != nil {
		return nil, fmt.Errorf("parse last_updated_at: %w", err)
	}
	if kit.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &kit, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
