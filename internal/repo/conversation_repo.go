package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/gemchat/internal/model"
	"github.com/xxxsen/gemchat/internal/pkg/dbutil"
	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
)

var conversationFields = []string{"id", "title", "ctime"}

type ConversationRepo struct {
	db     *sql.DB
	driver string
}

func NewConversationRepo(db *sql.DB, driver string) *ConversationRepo {
	return &ConversationRepo{db: db, driver: driver}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	data := map[string]interface{}{
		"id":    conv.ID,
		"title": conv.Title,
		"ctime": conv.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("conversation", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("conversation", where, conversationFields)
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
	var conv model.Conversation
	if err := rows.Scan(&conv.ID, &conv.Title, &conv.Ctime); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) List(ctx context.Context) ([]model.Conversation, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("conversation", where, conversationFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var convs []model.Conversation
	for rows.Next() {
		var conv model.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.Ctime); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) UpdateTitle(ctx context.Context, id string, title *string) error {
	where := map[string]interface{}{
		"id": id,
	}
	update := map[string]interface{}{
		"title": title,
	}
	sqlStr, args, err := builder.BuildUpdate("conversation", where, update)
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
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildDelete("conversation", where)
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
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
