/*
Package assetcache keeps versioned copies of the page's static assets so the
page still loads when the network does not answer.

A version is installed by fetching a fixed list of assets and storing them
together. Activating a version throws away every other version. Requests are
answered from the active version first, then from the network, and finally
with the cached offline page.
*/
package assetcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	DefaultVersion = "pixelgrid-cache-v1"
	OfflinePage    = "index.html"
)

// DefaultAssets is the list of assets needed to render the page offline.
var DefaultAssets = []string{
	"./",
	"index.html",
	"style.css",
	"app.js",
	"manifest.json",
	"icons/icon-192.png",
	"icons/icon-512.png",
}

var (
	ErrNotCached = errors.New("assetcache: asset not cached")
	ErrNotFound  = errors.New("assetcache: asset does not exist")
)

type Asset struct {
	Name        string
	ContentType string
	Body        []byte
}

type Fetcher interface {
	Fetch(ctx context.Context, name string) (Asset, error)
}

type FetchFunc func(ctx context.Context, name string) (Asset, error)

func (f FetchFunc) Fetch(ctx context.Context, name string) (Asset, error) {
	return f(ctx, name)
}

type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database. dsn is handed to the sqlite3
// driver, so ":memory:" works for throwaway caches.
func Open(dsn string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open asset cache %q: %w", dsn, err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS asset (version TEXT NOT NULL, name TEXT NOT NULL, content_type TEXT NOT NULL, body BLOB NOT NULL, PRIMARY KEY (version, name))"); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create asset table: %w", err)
	}

	return &Cache{
		db: db,
	}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Install fetches every name and stores the results under version. Either all
// assets are stored or none are.
func (c *Cache) Install(ctx context.Context, version string, names []string, fetch Fetcher) (err error) {
	assets := make([]Asset, 0, len(names))
	for _, name := range names {
		a, err := fetch.Fetch(ctx, name)
		if err != nil {
			return fmt.Errorf("could not fetch %q: %w", name, err)
		}
		a.Name = name
		assets = append(assets, a)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin install of %q: %w", version, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, a := range assets {
		if _, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO asset (version, name, content_type, body) VALUES (?, ?, ?, ?)", version, a.Name, a.ContentType, a.Body); err != nil {
			return fmt.Errorf("could not store %q: %w", a.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit install of %q: %w", version, err)
	}
	return nil
}

// Activate deletes all assets that do not belong to version and returns how
// many were removed.
func (c *Cache) Activate(ctx context.Context, version string) (int64, error) {
	result, err := c.db.ExecContext(ctx, "DELETE FROM asset WHERE version <> ?", version)
	if err != nil {
		return 0, fmt.Errorf("could not activate %q: %w", version, err)
	}
	return result.RowsAffected()
}

func (c *Cache) Match(ctx context.Context, version, name string) (Asset, error) {
	a := Asset{Name: name}
	switch err := c.db.QueryRowContext(ctx, "SELECT content_type, body FROM asset WHERE version = ? AND name = ?", version, name).Scan(&a.ContentType, &a.Body); err {
	case sql.ErrNoRows:
		return Asset{}, fmt.Errorf("%w: %s/%s", ErrNotCached, version, name)
	case nil:
		return a, nil
	default:
		return Asset{}, err
	}
}

// Versions lists the versions currently holding at least one asset.
func (c *Cache) Versions(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT DISTINCT version FROM asset ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
