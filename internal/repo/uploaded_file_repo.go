package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/gemchat/internal/model"
	"github.com/xxxsen/gemchat/internal/pkg/dbutil"
	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
)

type UploadedFileRepo struct {
	db     *sql.DB
	driver string
}

func NewUploadedFileRepo(db *sql.DB, driver string) *UploadedFileRepo {
	return &UploadedFileRepo{db: db, driver: driver}
}

func (r *UploadedFileRepo) Create(ctx context.Context, item *model.UploadedFile) error {
	data := map[string]interface{}{
		"id":         item.ID,
		"local_path": item.LocalPath,
		"file_hash":  item.FileHash,
		"remote_uri": item.RemoteURI,
		"mime_type":  item.MimeType,
		"ctime":      item.Ctime,
		"expires_at": item.ExpiresAt,
	}
	sqlStr, args, err := builder.BuildInsert("uploaded_file", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// GetByHash returns the newest record for a content hash whose vendor copy
// has not expired yet.
func (r *UploadedFileRepo) GetByHash(ctx context.Context, hash string, now int64) (*model.UploadedFile, error) {
	where := map[string]interface{}{
		"file_hash":    hash,
		"expires_at >": now,
		"_orderby":     "ctime desc",
		"_limit":       []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("uploaded_file", where, []string{"id", "local_path", "file_hash", "remote_uri", "mime_type", "ctime", "expires_at"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var item model.UploadedFile
	if err := rows.Scan(&item.ID, &item.LocalPath, &item.FileHash, &item.RemoteURI, &item.MimeType, &item.Ctime, &item.ExpiresAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *UploadedFileRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	where := map[string]interface{}{
		"expires_at <=": now,
	}
	sqlStr, args, err := builder.BuildDelete("uploaded_file", where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
