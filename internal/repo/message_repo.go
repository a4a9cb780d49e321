package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/gemchat/internal/model"
	"github.com/xxxsen/gemchat/internal/pkg/dbutil"
)

type MessageRepo struct {
	db     *sql.DB
	driver string
}

func NewMessageRepo(db *sql.DB, driver string) *MessageRepo {
	return &MessageRepo{db: db, driver: driver}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	data := map[string]interface{}{
		"id":              msg.ID,
		"conversation_id": msg.ConversationID,
		"role":            msg.Role,
		"content":         msg.Content,
		"ctime":           msg.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("message", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	where := map[string]interface{}{
		"conversation_id": conversationID,
		"_orderby":        "ctime asc, id asc",
	}
	sqlStr, args, err := builder.BuildSelect("message", where, []string{"id", "conversation_id", "role", "content", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Ctime); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) DeleteByConversation(ctx context.Context, conversationID string) error {
	where := map[string]interface{}{
		"conversation_id": conversationID,
	}
	sqlStr, args, err := builder.BuildDelete("message", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
