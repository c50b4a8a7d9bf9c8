package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MTGMAD/ai-media-gallery/internal/logging"
)

// ErrNotFound is returned when no media item has the requested id.
var ErrNotFound = errors.New("media item not found")

const itemColumns = `id, title, prompt, model, tags, notes, date_added, media_type,
	image_data, thumbnail_data, server_path, thumb_x, thumb_y, metadata`

// Insert stores a new media item and returns its assigned id. DateAdded
// and ThumbnailPosition receive defaults when unset; the metadata map is
// serialized to JSON with each value capped at maxMetadataFieldLen.
func (s *Store) Insert(ctx context.Context, item *MediaItem) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if item.DateAdded == "" {
		item.DateAdded = time.Now().UTC().Format(time.RFC3339)
	}
	if item.ThumbnailPosition == (ThumbnailPosition{}) {
		item.ThumbnailPosition = DefaultThumbnailPosition
	}

	metaJSON, err := encodeMetadata(item.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to encode metadata: %w", err)
	}

	var serverPath sql.NullString
	if item.ServerPath != "" {
		serverPath = sql.NullString{String: item.ServerPath, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO media_items (title, prompt, model, tags, notes, date_added, media_type,
			image_data, thumbnail_data, server_path, thumb_x, thumb_y, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.Title, item.Prompt, item.Model, item.Tags, item.Notes,
		item.DateAdded, string(item.MediaType),
		item.ImageData, item.ThumbnailData, serverPath,
		item.ThumbnailPosition.X, item.ThumbnailPosition.Y, metaJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert failed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	item.ID = id
	return id, nil
}

// GetByID retrieves a single media item. Returns ErrNotFound when the
// id does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*MediaItem, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_by_id", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM media_items WHERE id = ?`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return item, nil
}

// Update applies a partial update and returns the number of changed
// rows (0 when the id does not exist).
func (s *Store) Update(ctx context.Context, id int64, fields UpdateFields) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("update", start, err) }()

	var set []string
	var args []interface{}

	appendField := func(column string, value *string) {
		if value != nil {
			set = append(set, column+" = ?")
			args = append(args, *value)
		}
	}
	appendField("title", fields.Title)
	appendField("prompt", fields.Prompt)
	appendField("model", fields.Model)
	appendField("tags", fields.Tags)
	appendField("notes", fields.Notes)
	appendField("image_data", fields.ImageData)
	appendField("thumbnail_data", fields.ThumbnailData)

	if fields.ServerPath != nil {
		if *fields.ServerPath == "" {
			set = append(set, "server_path = NULL")
		} else {
			set = append(set, "server_path = ?")
			args = append(args, *fields.ServerPath)
		}
	}
	if fields.ThumbnailPosition != nil {
		set = append(set, "thumb_x = ?", "thumb_y = ?")
		args = append(args, fields.ThumbnailPosition.X, fields.ThumbnailPosition.Y)
	}

	if len(set) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	args = append(args, id)
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE media_items SET %s WHERE id = ?", strings.Join(set, ", ")),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("update failed: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes a media item and returns the number of deleted rows.
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, "DELETE FROM media_items WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Search returns items whose title, prompt, tags, model or notes contain
// the term (case-insensitive substring, OR-combined), newest first.
func (s *Store) Search(ctx context.Context, term string) ([]MediaItem, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("search", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pattern := "%" + escapeLike(term) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM media_items
		WHERE title LIKE ? ESCAPE '\'
		   OR prompt LIKE ? ESCAPE '\'
		   OR tags LIKE ? ESCAPE '\'
		   OR model LIKE ? ESCAPE '\'
		   OR notes LIKE ? ESCAPE '\'
		ORDER BY date_added DESC, id DESC
	`, pattern, pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListAll returns every media item, newest first.
func (s *Store) ListAll(ctx context.Context) ([]MediaItem, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_all", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM media_items ORDER BY date_added DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// Stats returns item counts and the total inline payload size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats Stats
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN media_type = 'image' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN media_type = 'video' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(LENGTH(image_data) + LENGTH(thumbnail_data)), 0)
		FROM media_items
	`).Scan(&stats.Total, &stats.Images, &stats.Videos, &stats.InlineBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("stats failed: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*MediaItem, error) {
	var item MediaItem
	var serverPath sql.NullString
	var metaJSON string

	err := row.Scan(
		&item.ID, &item.Title, &item.Prompt, &item.Model, &item.Tags, &item.Notes,
		&item.DateAdded, &item.MediaType,
		&item.ImageData, &item.ThumbnailData, &serverPath,
		&item.ThumbnailPosition.X, &item.ThumbnailPosition.Y, &metaJSON,
	)
	if err != nil {
		return nil, err
	}

	if serverPath.Valid {
		item.ServerPath = serverPath.String
	}
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &item.Metadata); err != nil {
			// A corrupt metadata blob should not hide the item.
			logging.Warn("media item %d has unreadable metadata: %v", item.ID, err)
		}
	}
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]MediaItem, error) {
	items := []MediaItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func encodeMetadata(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}

	capped := make(map[string]string, len(meta))
	for k, v := range meta {
		if len(v) > maxMetadataFieldLen {
			// Back up to a rune boundary so the cut never leaves a
			// partial UTF-8 sequence for json.Marshal to mangle.
			cut := maxMetadataFieldLen
			for cut > 0 && !utf8.RuneStart(v[cut]) {
				cut--
			}
			v = v[:cut]
		}
		capped[k] = v
	}

	encoded, err := json.Marshal(capped)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// escapeLike escapes LIKE wildcards in user-supplied search terms.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, "%", `\%`)
	term = strings.ReplaceAll(term, "_", `\_`)
	return term
}
