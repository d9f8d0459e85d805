// Package embedindex persists the per-note multi-vector embedding
// records in an embedded relational store, keyed by content hash so
// rebuilds are incremental.
package embedindex

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aayoawoyemi/ori-mnemos/internal/embedding"
	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
	"github.com/aayoawoyemi/ori-mnemos/internal/note"
	_ "github.com/aayoawoyemi/ori-mnemos/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Record is one note's persisted embedding: five vectors plus the
// content hash and timestamp used to decide whether it is stale.
type Record struct {
	Title         string
	TitleVec      []float32
	DescVec       []float32
	BodyVec       []float32
	TypeVec       []float32
	CommunityVec  []float32
	ContentHash   string
	IndexedAt     time.Time
}

// Store wraps a SQLite database holding one row per note.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the embedding store at path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "embedindex.Open")
	defer timer.Stop()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open embedding store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping embedding store: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
	title TEXT PRIMARY KEY,
	title_vec BLOB NOT NULL,
	desc_vec BLOB NOT NULL,
	body_vec BLOB NOT NULL,
	type_vec BLOB NOT NULL,
	community_vec BLOB NOT NULL,
	content_hash TEXT NOT NULL,
	indexed_at TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create embeddings schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ContentHash computes the SHA-256 over title||description||body used to
// decide whether a note needs re-embedding.
func ContentHash(title, description, body string) string {
	sum := sha256.Sum256([]byte(title + description + body))
	return hex.EncodeToString(sum[:])
}

// StoredHash returns the content hash on record for title, and whether a
// row exists at all.
func (s *Store) StoredHash(title string) (hash string, exists bool, err error) {
	row := s.db.QueryRow(`SELECT content_hash FROM embeddings WHERE title = ?`, title)
	err = row.Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// Upsert writes or replaces a note's embedding record atomically as a
// single-row upsert, so an index build commits each note independently
// rather than in one large transaction.
func (s *Store) Upsert(r Record) error {
	_, err := s.db.Exec(`
INSERT INTO embeddings (title, title_vec, desc_vec, body_vec, type_vec, community_vec, content_hash, indexed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(title) DO UPDATE SET
	title_vec=excluded.title_vec, desc_vec=excluded.desc_vec, body_vec=excluded.body_vec,
	type_vec=excluded.type_vec, community_vec=excluded.community_vec,
	content_hash=excluded.content_hash, indexed_at=excluded.indexed_at`,
		r.Title, encodeBlob(r.TitleVec), encodeBlob(r.DescVec), encodeBlob(r.BodyVec),
		encodeBlob(r.TypeVec), encodeBlob(r.CommunityVec), r.ContentHash, r.IndexedAt.Format(time.RFC3339))
	return err
}

// Get returns the stored record for title, if any.
func (s *Store) Get(title string) (Record, bool, error) {
	row := s.db.QueryRow(`SELECT title, title_vec, desc_vec, body_vec, type_vec, community_vec, content_hash, indexed_at
		FROM embeddings WHERE title = ?`, title)

	var r Record
	var titleVec, descVec, bodyVec, typeVec, communityVec []byte
	var indexedAt string
	err := row.Scan(&r.Title, &titleVec, &descVec, &bodyVec, &typeVec, &communityVec, &r.ContentHash, &indexedAt)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	r.TitleVec = decodeBlob(titleVec)
	r.DescVec = decodeBlob(descVec)
	r.BodyVec = decodeBlob(bodyVec)
	r.TypeVec = decodeBlob(typeVec)
	r.CommunityVec = decodeBlob(communityVec)
	r.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return r, true, nil
}

// All returns every stored record, sorted by title for determinism.
func (s *Store) All() ([]Record, error) {
	rows, err := s.db.Query(`SELECT title, title_vec, desc_vec, body_vec, type_vec, community_vec, content_hash, indexed_at FROM embeddings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var titleVec, descVec, bodyVec, typeVec, communityVec []byte
		var indexedAt string
		if err := rows.Scan(&r.Title, &titleVec, &descVec, &bodyVec, &typeVec, &communityVec, &r.ContentHash, &indexedAt); err != nil {
			return nil, err
		}
		r.TitleVec = decodeBlob(titleVec)
		r.DescVec = decodeBlob(descVec)
		r.BodyVec = decodeBlob(bodyVec)
		r.TypeVec = decodeBlob(typeVec)
		r.CommunityVec = decodeBlob(communityVec)
		r.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Delete removes the row for title, used for optional GC when a note
// disappears from the corpus.
func (s *Store) Delete(title string) error {
	_, err := s.db.Exec(`DELETE FROM embeddings WHERE title = ?`, title)
	return err
}

// Count returns the number of stored rows.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&n)
	return n, err
}

// encodeBlob little-endian-encodes a float32 slice for sqlite-vec
// compatibility, matching the binary layout sqlite-vec expects.
func encodeBlob(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeBlob(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

// BuildInput is the per-note data needed to build its embedding record.
type BuildInput struct {
	Note         note.Note
	OutgoingLinks []string
	CommunityID  int
	NumCommunities int
}

// BuildStats reports an index build invocation's outcome.
type BuildStats struct {
	Indexed  int
	Skipped  int
	Total    int
	Duration time.Duration
}

// Build runs the incremental build protocol: for each note, skip if the
// stored hash matches the current content hash unless force is set;
// otherwise compute all five vectors and upsert. progress, if non-nil,
// is invoked after every processed note, for long-running vault-scale
// builds.
func Build(ctx context.Context, store *Store, engine embedding.Engine, inputs []BuildInput, communityDims int, force bool, progress func(done, total int)) (BuildStats, error) {
	start := time.Now()
	stats := BuildStats{Total: len(inputs)}

	for i, in := range inputs {
		hash := ContentHash(in.Note.Title, in.Note.Description, in.Note.Body)

		if !force {
			stored, exists, err := store.StoredHash(in.Note.Title)
			if err == nil && exists && stored == hash {
				stats.Skipped++
				if progress != nil {
					progress(i+1, len(inputs))
				}
				continue
			}
		}

		rec, err := embedNote(ctx, engine, in, hash, communityDims)
		if err != nil {
			return stats, fmt.Errorf("embed note %q: %w", in.Note.Title, err)
		}
		if err := store.Upsert(rec); err != nil {
			return stats, fmt.Errorf("upsert note %q: %w", in.Note.Title, err)
		}
		stats.Indexed++
		if progress != nil {
			progress(i+1, len(inputs))
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func embedNote(ctx context.Context, engine embedding.Engine, in BuildInput, hash string, communityDims int) (Record, error) {
	desc := in.Note.Description
	if desc == "" {
		desc = in.Note.Title
	}

	titleVec, err := engine.Embed(ctx, in.Note.Title)
	if err != nil {
		return Record{}, err
	}
	descVec, err := engine.Embed(ctx, desc)
	if err != nil {
		return Record{}, err
	}
	bodyVec, err := engine.Embed(ctx, enrichedBody(in))
	if err != nil {
		return Record{}, err
	}

	return Record{
		Title:        in.Note.Title,
		TitleVec:     titleVec,
		DescVec:      descVec,
		BodyVec:      bodyVec,
		TypeVec:      TypeOneHot(in.Note.Type),
		CommunityVec: CommunityProjection(in.CommunityID, in.NumCommunities, communityDims),
		ContentHash:  hash,
		IndexedAt:    time.Now(),
	}, nil
}

// enrichedBody builds the body-embedding input: an optional
// "[TYPE] [projects]" prefix line, then title, description, and up to 10
// outgoing link targets as "Connected: a, b, c, ...".
func enrichedBody(in BuildInput) string {
	var b strings.Builder
	if in.Note.Type != "" || len(in.Note.Project) > 0 {
		fmt.Fprintf(&b, "[%s] [%s]\n", in.Note.Type, strings.Join(in.Note.Project, " "))
	}
	b.WriteString(in.Note.Title)
	b.WriteString("\n")
	if in.Note.Description != "" {
		b.WriteString(in.Note.Description)
		b.WriteString("\n")
	}
	if len(in.OutgoingLinks) > 0 {
		n := len(in.OutgoingLinks)
		if n > 10 {
			n = 10
		}
		b.WriteString("Connected: ")
		b.WriteString(strings.Join(in.OutgoingLinks[:n], ", "))
		b.WriteString("\n")
	}
	b.WriteString(in.Note.Body)
	return b.String()
}

// TypeOneHot returns a one-hot vector over note.AllTypes, dimension 6.
func TypeOneHot(t note.Type) []float32 {
	out := make([]float32, len(note.AllTypes))
	for i, candidate := range note.AllTypes {
		if candidate == t {
			out[i] = 1
		}
	}
	return out
}

// CommunityProjection computes the deterministic low-dimensional
// projection of a community ID: alternating sine/cosine of
// community_id * prime_d / total_communities, using a fixed table of
// small primes.
var communityPrimes = []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71}

func CommunityProjection(communityID, totalCommunities, dims int) []float32 {
	if dims <= 0 {
		dims = 16
	}
	out := make([]float32, dims)
	if totalCommunities <= 0 {
		return out
	}
	for d := 0; d < dims; d++ {
		prime := float64(communityPrimes[d%len(communityPrimes)])
		theta := float64(communityID) * prime / float64(totalCommunities)
		if d%2 == 0 {
			out[d] = float32(math.Sin(theta))
		} else {
			out[d] = float32(math.Cos(theta))
		}
	}
	return out
}
