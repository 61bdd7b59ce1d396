// Package embedstore implements the Embedding Store (ES): SQLite-backed
// persistence for per-symbol embedding vectors, file-hash-driven
// invalidation, and brute-force cosine similarity search. Grounded on
// original_source/src/embedding/storage.rs (exact schema and transaction
// shape) using modernc.org/sqlite + WAL-mode access
// (internal/store/sqlite_bm25.go).
package embedstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/cgrep/cgrep/internal/errs"
)

// DefaultDimension matches a common sentence-transformer output width; the
// store itself is dimension-agnostic, this is only used by callers that
// need a default before the first embed call.
const DefaultDimension = 384

// SymbolEmbedding is one stored vector plus the symbol metadata needed to
// render a result without a second lookup.
type SymbolEmbedding struct {
	SymbolID    string
	Path        string
	Language    string
	SymbolKind  string
	SymbolName  string
	StartLine   int
	EndLine     int
	FileHash    string
	ContentHash string
	Embedding   []float32
	CreatedAt   int64
}

// SymbolInput is a symbol's embedding plus identity, as handed to ReplaceFile
// / SyncFile during indexing.
type SymbolInput struct {
	SymbolID    string
	Language    string
	SymbolKind  string
	SymbolName  string
	StartLine   int
	EndLine     int
	ContentHash string
	Embedding   []float32
}

// SimilarityResult is a search_similar hit.
type SimilarityResult struct {
	Symbol SymbolEmbedding
	Score  float32
}

// Store is the ES capability surface: symbol-level embedding persistence
// with file-granular atomic replace/sync.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens an embedding store at path. The parent directory is
// created if missing; WAL mode is enabled for concurrent readers.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Wrap(errs.ErrIO, "embedstore dir", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "open embedstore", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const currentSchemaVersion = "2"

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS symbol_embeddings (
	symbol_id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	lang TEXT NOT NULL,
	symbol_kind TEXT NOT NULL,
	symbol_name TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	file_hash TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	embedding BLOB NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_symbol_embeddings_path_line
	ON symbol_embeddings(path, start_line, end_line);

CREATE TABLE IF NOT EXISTS symbol_files (
	path TEXT PRIMARY KEY,
	file_hash TEXT NOT NULL,
	last_modified INTEGER NOT NULL,
	symbol_count INTEGER NOT NULL
);
`)
	if err != nil {
		return errs.Wrap(errs.ErrSchema, "embedstore schema", err)
	}
	if err := s.ensureColumns(); err != nil {
		return err
	}
	return s.setMetaIfAbsent("schema_version", currentSchemaVersion)
}

// ensureColumns ALTERs in columns that a prior schema_version didn't have,
// so an ES opened against an older on-disk database picks up new columns
// instead of silently lacking them. Each column is guarded by a
// PRAGMA table_info check since SQLite's ADD COLUMN has no IF NOT EXISTS.
func (s *Store) ensureColumns() error {
	hasContentHash, err := s.hasColumn("symbol_embeddings", "content_hash")
	if err != nil {
		return err
	}
	if !hasContentHash {
		if _, err := s.db.Exec(`ALTER TABLE symbol_embeddings ADD COLUMN content_hash TEXT NOT NULL DEFAULT ''`); err != nil {
			return errs.Wrap(errs.ErrSchema, "alter symbol_embeddings add content_hash", err)
		}
	}
	return nil
}

// hasColumn reports whether table currently has a column named name.
func (s *Store) hasColumn(table, name string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, errs.Wrap(errs.ErrSchema, "table_info "+table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			colName    string
			colType    string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, errs.Wrap(errs.ErrSchema, "scan table_info "+table, err)
		}
		if colName == name {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ResetSchema drops every ES table and meta row, then reinitializes an
// empty schema at the current version (spec §4.6 reset_schema). Unlike
// ClearAll, this also discards the meta table, so a corrupted or
// incompatible on-disk schema can be rebuilt from scratch.
func (s *Store) ResetSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
DROP TABLE IF EXISTS symbol_embeddings;
DROP TABLE IF EXISTS symbol_files;
DROP TABLE IF EXISTS meta;
`)
	if err != nil {
		return errs.Wrap(errs.ErrSchema, "drop embedstore tables", err)
	}
	return s.initSchema()
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// ReplaceFile atomically replaces every symbol embedding for path: delete
// then insert, in one transaction. lastModified is the file's mtime (unix
// seconds), recorded in symbol_files so it reflects the source file rather
// than the moment this call happened to run.
func (s *Store) ReplaceFile(ctx context.Context, path, fileHash string, lastModified int64, symbols []SymbolInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.ErrIO, "embedstore tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_embeddings WHERE path = ?`, path); err != nil {
		return errs.Wrap(errs.ErrIO, "delete symbol_embeddings", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_files WHERE path = ?`, path); err != nil {
		return errs.Wrap(errs.ErrIO, "delete symbol_files", err)
	}

	if err := insertSymbols(ctx, tx, path, fileHash, symbols); err != nil {
		return err
	}
	if err := upsertSymbolFile(ctx, tx, path, fileHash, lastModified, len(symbols)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.ErrIO, "embedstore commit", err)
	}
	return nil
}

// SyncFile updates only the symbols that changed, deleting any existing
// symbol_id for path not present in symbols. Used during incremental
// indexing when most of a file's symbols are unchanged. lastModified is the
// file's mtime (unix seconds).
func (s *Store) SyncFile(ctx context.Context, path, fileHash string, lastModified int64, symbols []SymbolInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.ErrIO, "embedstore tx", err)
	}
	defer tx.Rollback()

	if len(symbols) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_embeddings WHERE path = ?`, path); err != nil {
			return errs.Wrap(errs.ErrIO, "delete symbol_embeddings", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_files WHERE path = ?`, path); err != nil {
			return errs.Wrap(errs.ErrIO, "delete symbol_files", err)
		}
		return commitOrWrap(tx)
	}

	keep := make([]string, len(symbols))
	for i, sym := range symbols {
		keep[i] = sym.SymbolID
	}
	placeholders, args := inClause(keep)
	query := fmt.Sprintf(`DELETE FROM symbol_embeddings WHERE path = ? AND symbol_id NOT IN (%s)`, placeholders)
	if _, err := tx.ExecContext(ctx, query, append([]any{path}, args...)...); err != nil {
		return errs.Wrap(errs.ErrIO, "sync delete stale symbols", err)
	}

	if err := upsertSymbols(ctx, tx, path, fileHash, symbols); err != nil {
		return err
	}
	if err := upsertSymbolFile(ctx, tx, path, fileHash, lastModified, len(symbols)); err != nil {
		return err
	}

	return commitOrWrap(tx)
}

func commitOrWrap(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.ErrIO, "embedstore commit", err)
	}
	return nil
}

func inClause(ids []string) (string, []any) {
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args[i] = id
	}
	return placeholders, args
}

func insertSymbols(ctx context.Context, tx *sql.Tx, path, fileHash string, symbols []SymbolInput) error {
	if len(symbols) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO symbol_embeddings (
	symbol_id, path, lang, symbol_kind, symbol_name, start_line, end_line,
	file_hash, content_hash, embedding, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errs.Wrap(errs.ErrIO, "prepare insert", err)
	}
	defer stmt.Close()

	createdAt := time.Now().Unix()
	for _, sym := range symbols {
		if _, err := stmt.ExecContext(ctx, sym.SymbolID, path, sym.Language, sym.SymbolKind, sym.SymbolName,
			sym.StartLine, sym.EndLine, fileHash, sym.ContentHash, encodeVector(sym.Embedding), createdAt); err != nil {
			return errs.Wrap(errs.ErrIO, fmt.Sprintf("insert symbol %s", sym.SymbolID), err)
		}
	}
	return nil
}

func upsertSymbols(ctx context.Context, tx *sql.Tx, path, fileHash string, symbols []SymbolInput) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO symbol_embeddings (
	symbol_id, path, lang, symbol_kind, symbol_name, start_line, end_line,
	file_hash, content_hash, embedding, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol_id) DO UPDATE SET
	path = excluded.path, lang = excluded.lang, symbol_kind = excluded.symbol_kind,
	symbol_name = excluded.symbol_name, start_line = excluded.start_line, end_line = excluded.end_line,
	file_hash = excluded.file_hash, content_hash = excluded.content_hash,
	embedding = excluded.embedding, created_at = excluded.created_at`)
	if err != nil {
		return errs.Wrap(errs.ErrIO, "prepare upsert", err)
	}
	defer stmt.Close()

	createdAt := time.Now().Unix()
	for _, sym := range symbols {
		if _, err := stmt.ExecContext(ctx, sym.SymbolID, path, sym.Language, sym.SymbolKind, sym.SymbolName,
			sym.StartLine, sym.EndLine, fileHash, sym.ContentHash, encodeVector(sym.Embedding), createdAt); err != nil {
			return errs.Wrap(errs.ErrIO, fmt.Sprintf("upsert symbol %s", sym.SymbolID), err)
		}
	}
	return nil
}

func upsertSymbolFile(ctx context.Context, tx *sql.Tx, path, fileHash string, lastModified int64, count int) error {
	if lastModified == 0 {
		lastModified = time.Now().Unix()
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO symbol_files (path, file_hash, last_modified, symbol_count)
VALUES (?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	file_hash = excluded.file_hash, last_modified = excluded.last_modified, symbol_count = excluded.symbol_count`,
		path, fileHash, lastModified, count)
	if err != nil {
		return errs.Wrap(errs.ErrIO, "upsert symbol_files", err)
	}
	return nil
}

// DeleteFile removes every embedding and tracking row for path.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.ErrIO, "embedstore tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_embeddings WHERE path = ?`, path); err != nil {
		return errs.Wrap(errs.ErrIO, "delete symbol_embeddings", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_files WHERE path = ?`, path); err != nil {
		return errs.Wrap(errs.ErrIO, "delete symbol_files", err)
	}
	return commitOrWrap(tx)
}

// FileNeedsUpdate reports whether path's stored file_hash differs from
// currentHash (or is absent entirely).
func (s *Store) FileNeedsUpdate(ctx context.Context, path, currentHash string) (bool, error) {
	var stored sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT file_hash FROM symbol_files WHERE path = ?`, path).Scan(&stored)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.ErrIO, "query file hash", err)
	}
	return !stored.Valid || stored.String != currentHash, nil
}

// ListPaths returns every path with tracked embeddings, sorted ascending.
func (s *Store) ListPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM symbol_files ORDER BY path`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "list paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errs.Wrap(errs.ErrIO, "scan path", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListSymbolHashes returns (symbol_id, content_hash) pairs for path, used to
// skip re-embedding unchanged symbols.
func (s *Store) ListSymbolHashes(ctx context.Context, path string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol_id, content_hash FROM symbol_embeddings WHERE path = ?`, path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "list symbol hashes", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, errs.Wrap(errs.ErrIO, "scan symbol hash", err)
		}
		out[id] = hash
	}
	return out, rows.Err()
}

// GetSymbolsForPath returns every stored symbol embedding for path, ordered
// by start line.
func (s *Store) GetSymbolsForPath(ctx context.Context, path string) ([]SymbolEmbedding, error) {
	rows, err := s.db.QueryContext(ctx, symbolColumns+` FROM symbol_embeddings WHERE path = ? ORDER BY start_line`, path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "get symbols for path", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

const symbolColumns = `SELECT symbol_id, path, lang, symbol_kind, symbol_name, start_line, end_line, file_hash, content_hash, embedding, created_at`

func scanSymbols(rows *sql.Rows) ([]SymbolEmbedding, error) {
	var out []SymbolEmbedding
	for rows.Next() {
		sym, blob, err := scanOneRow(rows)
		if err != nil {
			return nil, err
		}
		sym.Embedding = decodeVector(blob)
		out = append(out, sym)
	}
	return out, rows.Err()
}

func scanOneRow(rows *sql.Rows) (SymbolEmbedding, []byte, error) {
	var sym SymbolEmbedding
	var blob []byte
	err := rows.Scan(&sym.SymbolID, &sym.Path, &sym.Language, &sym.SymbolKind, &sym.SymbolName,
		&sym.StartLine, &sym.EndLine, &sym.FileHash, &sym.ContentHash, &blob, &sym.CreatedAt)
	if err != nil {
		return SymbolEmbedding{}, nil, errs.Wrap(errs.ErrIO, "scan symbol row", err)
	}
	return sym, blob, nil
}

// GetChunkForLine finds the stored symbol covering line within path, if any
// — used by hybrid fusion to attach a vector score to a BM25 candidate.
func (s *Store) GetChunkForLine(ctx context.Context, path string, line int) (*SymbolEmbedding, bool, error) {
	row := s.db.QueryRowContext(ctx, symbolColumns+`
FROM symbol_embeddings
WHERE path = ? AND start_line <= ? AND end_line >= ?
ORDER BY (end_line - start_line) ASC
LIMIT 1`, path, line, line)

	var sym SymbolEmbedding
	var blob []byte
	err := row.Scan(&sym.SymbolID, &sym.Path, &sym.Language, &sym.SymbolKind, &sym.SymbolName,
		&sym.StartLine, &sym.EndLine, &sym.FileHash, &sym.ContentHash, &blob, &sym.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.ErrIO, "get chunk for line", err)
	}
	sym.Embedding = decodeVector(blob)
	return &sym, true, nil
}

// SearchSimilar performs a brute-force cosine similarity scan across every
// stored embedding, returning the top k sorted descending by score.
func (s *Store) SearchSimilar(ctx context.Context, query []float32, k int) ([]SimilarityResult, error) {
	rows, err := s.db.QueryContext(ctx, symbolColumns+` FROM symbol_embeddings`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "search_similar scan", err)
	}
	defer rows.Close()

	var results []SimilarityResult
	for rows.Next() {
		sym, blob, err := scanOneRow(rows)
		if err != nil {
			return nil, err
		}
		sym.Embedding = decodeVector(blob)
		results = append(results, SimilarityResult{Symbol: sym, Score: CosineSimilarity(query, sym.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrIO, "search_similar rows", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// CountSymbols returns the total number of stored symbol embeddings.
func (s *Store) CountSymbols(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbol_embeddings`).Scan(&n)
	if err != nil {
		return 0, errs.Wrap(errs.ErrIO, "count symbols", err)
	}
	return n, nil
}

// ClearAll deletes every row from both tables but keeps the schema/meta
// intact. Called once at the start of a Pipeline.Run when --force-embeddings
// is set, so a forced re-embed starts from an empty store rather than
// relying on the per-file sync to converge to the same end state.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.ErrIO, "embedstore tx", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_embeddings`); err != nil {
		return errs.Wrap(errs.ErrIO, "clear symbol_embeddings", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_files`); err != nil {
		return errs.Wrap(errs.ErrIO, "clear symbol_files", err)
	}
	return commitOrWrap(tx)
}

func (s *Store) setMetaIfAbsent(key, value string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return errs.Wrap(errs.ErrSchema, "set meta", err)
	}
	return nil
}

// encodeVector packs a []float32 into a little-endian byte blob.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		bits := math.Float32bits(f)
		out[4*i] = byte(bits)
		out[4*i+1] = byte(bits >> 8)
		out[4*i+2] = byte(bits >> 16)
		out[4*i+3] = byte(bits >> 24)
	}
	return out
}

// decodeVector unpacks a little-endian byte blob into a []float32.
func decodeVector(blob []byte) []float32 {
	n := len(blob) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(blob[4*i]) | uint32(blob[4*i+1])<<8 | uint32(blob[4*i+2])<<16 | uint32(blob[4*i+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// CosineSimilarity is dot(a,b)/(‖a‖·‖b‖); returns 0 for a zero vector or a
// dimension mismatch.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
