package repository

import (
	"context"

	"github.com/ecomtel/ussd-bridge/internal/model"
	"github.com/jmoiron/sqlx"
)

// SessionLogsRepository defines persistence for the ussd_logs table. The table
// is an append-only sink: rows are inserted once and never updated or deleted.
type SessionLogsRepository interface {
	Insert(ctx context.Context, l model.SessionLog) error
}

type SessionLogsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSessionLogsRepository(db *sqlx.DB) *SessionLogsRepositoryImpl {
	return &SessionLogsRepositoryImpl{db: db}
}

var _ SessionLogsRepository = (*SessionLogsRepositoryImpl)(nil)

// Insert appends one session log row. No uniqueness is enforced: duplicate
// (sessionid, transactionid) pairs produce duplicate rows.
func (r *SessionLogsRepositoryImpl) Insert(ctx context.Context, l model.SessionLog) error {
	const q = `
		INSERT INTO ussd_logs
		    (id, msisdn, sessionid, transactionid, ussdgw_id, requestType, responseType, responseMessage, userMessage, timestamp)
		VALUES
		    (?,  ?,      ?,         ?,             ?,         ?,           ?,            ?,               ?,           ?)
	`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.MSISDN, l.SessionID, l.TransactionID, l.GatewayID,
		l.RequestType, l.ResponseType, l.ResponseMessage, l.UserMessage, l.CreatedAt,
	)
	return err
}
