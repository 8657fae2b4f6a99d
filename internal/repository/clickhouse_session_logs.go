package repository

import (
	"context"

	"github.com/ecomtel/ussd-bridge/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHSessionLogsRepository lists session logs from ClickHouse. The table is
// populated from MySQL by an external replication pipeline; this side is
// read-only.
type CHSessionLogsRepository interface {
	List(ctx context.Context, msisdn string, limit, offset int) ([]model.SessionLog, error)
}

type chSessionLogsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHSessionLogsRepository(ch *sqlx.DB) CHSessionLogsRepository {
	return &chSessionLogsRepository{ch: ch}
}

func (r *chSessionLogsRepository) List(ctx context.Context, msisdn string, limit, offset int) ([]model.SessionLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, msisdn, sessionid, transactionid, ussdgw_id,
		       requestType, responseType, responseMessage, userMessage, timestamp
		FROM ussdbridge.ussd_logs
	`
	args := []any{}

	if msisdn != "" {
		q += " WHERE msisdn = ?"
		args = append(args, msisdn)
	}

	q += " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.SessionLog
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
