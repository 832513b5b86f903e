package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

type PostgresDB struct {
	db *sql.DB
}

func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) SaveMedia(ctx context.Context, rec *MediaRecord) error {
	query := `
        INSERT INTO media (id, title, original_name, storage_name, content_type, media_type,
                           size, width, height, aspect_ratio, original_path, thumbnail_path,
                           webp_path, avif_path, dominant_color, created_at, deleted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
    `
	_, err := p.db.ExecContext(ctx, query,
		rec.ID,
		rec.Title,
		rec.OriginalName,
		rec.StorageName,
		rec.ContentType,
		string(rec.MediaType),
		rec.Size,
		rec.Width,
		rec.Height,
		rec.AspectRatio,
		rec.OriginalPath,
		rec.ThumbnailPath,
		rec.WebPPath,
		rec.AVIFPath,
		rec.DominantColor,
		time.Now(),
		nil,
	)

	return err
}

func (p *PostgresDB) GetMedia(ctx context.Context, id string) (*MediaRecord, error) {
	query := `
        SELECT id, title, original_name, storage_name, content_type, media_type,
               size, width, height, aspect_ratio, original_path,
               COALESCE(thumbnail_path, ''), COALESCE(webp_path, ''),
               COALESCE(avif_path, ''), COALESCE(dominant_color, ''), created_at
        FROM media
        WHERE id = $1 AND deleted_at IS NULL
    `

	var rec MediaRecord
	var mediaType string
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Title,
		&rec.OriginalName,
		&rec.StorageName,
		&rec.ContentType,
		&mediaType,
		&rec.Size,
		&rec.Width,
		&rec.Height,
		&rec.AspectRatio,
		&rec.OriginalPath,
		&rec.ThumbnailPath,
		&rec.WebPPath,
		&rec.AVIFPath,
		&rec.DominantColor,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.MediaType = MediaType(mediaType)

	return &rec, nil
}

func (p *PostgresDB) ListMedia(ctx context.Context, limit, offset int) ([]*MediaRecord, error) {
	query := `
        SELECT id, title, original_name, storage_name, content_type, media_type,
               size, width, height, aspect_ratio, original_path,
               COALESCE(thumbnail_path, ''), COALESCE(webp_path, ''),
               COALESCE(avif_path, ''), COALESCE(dominant_color, ''), created_at
        FROM media
        WHERE deleted_at IS NULL
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `
	rows, err := p.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*MediaRecord
	for rows.Next() {
		var rec MediaRecord
		var mediaType string
		if err := rows.Scan(
			&rec.ID, &rec.Title, &rec.OriginalName, &rec.StorageName,
			&rec.ContentType, &mediaType, &rec.Size, &rec.Width, &rec.Height,
			&rec.AspectRatio, &rec.OriginalPath, &rec.ThumbnailPath,
			&rec.WebPPath, &rec.AVIFPath, &rec.DominantColor, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.MediaType = MediaType(mediaType)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (p *PostgresDB) DeleteMedia(ctx context.Context, id string) error {
	query := `
        UPDATE media
        SET deleted_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL
    `
	result, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
