package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"CrawlPipe/internal/ports"
)

// SQLiteRepository persists tagged articles into a single-file sqlite
// database: articles plus tags/subtags dictionaries and their join tables.
// Every insert commits on its own; there is no batch-wide transaction, so a
// crash mid-batch leaves earlier rows committed and the dedup pass cleans
// up any replayed ones.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.ArticleRepository = (*SQLiteRepository)(nil)

// Open connects to (and if needed creates) the database file.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			html TEXT,
			pos TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subtags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS article_tags (
			article_id INTEGER,
			tag_id INTEGER,
			PRIMARY KEY(article_id, tag_id),
			FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE,
			FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS article_subtags (
			article_id INTEGER,
			subtag_id INTEGER,
			PRIMARY KEY(article_id, subtag_id),
			FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE,
			FOREIGN KEY (subtag_id) REFERENCES subtags(id) ON DELETE CASCADE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// InsertArticle inserts one article row keyed by pos (the html column holds
// the article's URL), resolving every tag and subtag through get-or-create
// and recording memberships with insert-or-ignore.
func (r *SQLiteRepository) InsertArticle(ctx context.Context, pos, url string, tags, subtags []string) error {
	query, args, err := sq.Insert("articles").Columns("html", "pos").Values(url, pos).ToSql()
	if err != nil {
		return fmt.Errorf("build article insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert article %s: %w", pos, err)
	}
	articleID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("article id for %s: %w", pos, err)
	}

	for _, tag := range tags {
		tagID, err := r.getOrCreate(ctx, "tags", tag)
		if err != nil {
			return err
		}
		if err := r.link(ctx, "article_tags", "tag_id", articleID, tagID); err != nil {
			return err
		}
	}

	for _, subtag := range subtags {
		subtagID, err := r.getOrCreate(ctx, "subtags", subtag)
		if err != nil {
			return err
		}
		if err := r.link(ctx, "article_subtags", "subtag_id", articleID, subtagID); err != nil {
			return err
		}
	}

	return nil
}

// getOrCreate resolves a name-unique dictionary row, inserting it when
// absent. Persist-stage writes are serialized per process, so the lookup
// and insert do not race; a parallel deployment would need
// insert-or-ignore-then-select instead.
func (r *SQLiteRepository) getOrCreate(ctx context.Context, table, name string) (int64, error) {
	query, args, err := sq.Select("id").From(table).Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s select: %w", table, err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("select %s %q: %w", table, name, err)
	}

	query, args, err = sq.Insert(table).Columns("name").Values(name).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s insert: %w", table, err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s id for %q: %w", table, name, err)
	}
	return id, nil
}

func (r *SQLiteRepository) link(ctx context.Context, table, refColumn string, articleID, refID int64) error {
	query, args, err := sq.Insert(table).
		Options("OR IGNORE").
		Columns("article_id", refColumn).
		Values(articleID, refID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s insert: %w", table, err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("link %s: %w", table, err)
	}
	return nil
}

// DeleteDuplicates removes rows sharing a (pos, html) pair, keeping the
// lowest id of each group. Returns the number of rows removed.
func (r *SQLiteRepository) DeleteDuplicates(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM articles
		WHERE id NOT IN (
			SELECT MIN(id) FROM articles GROUP BY pos, html
		)`)
	if err != nil {
		return 0, fmt.Errorf("delete duplicates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("duplicate rowcount: %w", err)
	}
	return n, nil
}

// DeleteByDate removes every article whose pos contains the date substring.
func (r *SQLiteRepository) DeleteByDate(ctx context.Context, date string) (int64, error) {
	query, args, err := sq.Delete("articles").Where(sq.Like{"pos": "%" + date + "%"}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build date delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete by date %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("date rowcount: %w", err)
	}
	return n, nil
}
