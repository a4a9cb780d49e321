package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/gemchat/internal/model"
	"github.com/xxxsen/gemchat/internal/pkg/dbutil"
	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
)

type CachedResponseRepo struct {
	db     *sql.DB
	driver string
}

func NewCachedResponseRepo(db *sql.DB, driver string) *CachedResponseRepo {
	return &CachedResponseRepo{db: db, driver: driver}
}

var cachedResponseFields = []string{"id", "request_key", "model", "input_text", "instructions", "file_hashes", "response_text", "meta_data", "ctime", "expires_at"}

// Get returns the entry stored under key, or ErrNotFound. An entry whose
// expiry has passed is removed on the way out; there is no background
// sweeper.
func (r *CachedResponseRepo) Get(ctx context.Context, key string, now int64) (*model.CachedResponse, error) {
	where := map[string]interface{}{
		"request_key": key,
	}
	sqlStr, args, err := builder.BuildSelect("cached_response", where, cachedResponseFields)
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
	var (
		item      model.CachedResponse
		hashesRaw string
		metaRaw   string
	)
	if err := rows.Scan(&item.ID, &item.RequestKey, &item.Model, &item.InputText, &item.Instructions,
		&hashesRaw, &item.ResponseText, &metaRaw, &item.Ctime, &item.ExpiresAt); err != nil {
		return nil, err
	}
	rows.Close()
	if item.ExpiresAt != nil && *item.ExpiresAt < now {
		_ = r.deleteByKey(ctx, key)
		return nil, appErr.ErrNotFound
	}
	if err := json.Unmarshal([]byte(hashesRaw), &item.FileHashes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metaRaw), &item.MetaData); err != nil {
		return nil, err
	}
	return &item, nil
}

// Save upserts the entry under its request key, refreshing the payload and
// expiry of an existing row in place (the row id stays stable across
// refreshes, and concurrent writers resolve by last write wins). ttlDays <= 0
// stores an entry that never expires.
func (r *CachedResponseRepo) Save(ctx context.Context, item *model.CachedResponse, ttlDays int, now int64) error {
	item.Ctime = now
	if ttlDays > 0 {
		expires := now + int64(ttlDays)*24*3600*1000
		item.ExpiresAt = &expires
	} else {
		item.ExpiresAt = nil
	}
	if item.FileHashes == nil {
		item.FileHashes = []string{}
	}
	if item.MetaData == nil {
		item.MetaData = map[string]interface{}{}
	}
	hashes, err := json.Marshal(item.FileHashes)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(item.MetaData)
	if err != nil {
		return err
	}

	where := map[string]interface{}{
		"request_key": item.RequestKey,
	}
	update := map[string]interface{}{
		"model":         item.Model,
		"input_text":    item.InputText,
		"instructions":  item.Instructions,
		"file_hashes":   string(hashes),
		"response_text": item.ResponseText,
		"meta_data":     string(meta),
		"ctime":         item.Ctime,
		"expires_at":    item.ExpiresAt,
	}
	sqlStr, args, err := builder.BuildUpdate("cached_response", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	data := map[string]interface{}{
		"id":            item.ID,
		"request_key":   item.RequestKey,
		"model":         item.Model,
		"input_text":    item.InputText,
		"instructions":  item.Instructions,
		"file_hashes":   string(hashes),
		"response_text": item.ResponseText,
		"meta_data":     string(meta),
		"ctime":         item.Ctime,
		"expires_at":    item.ExpiresAt,
	}
	sqlStr, args, err = builder.BuildInsert("cached_response", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *CachedResponseRepo) deleteByKey(ctx context.Context, key string) error {
	where := map[string]interface{}{
		"request_key": key,
	}
	sqlStr, args, err := builder.BuildDelete("cached_response", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
