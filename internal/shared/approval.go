package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ApprovalAction enumerates status history actions.
type ApprovalAction string

const (
	ApprovalCreate  ApprovalAction = "CREATE"
	ApprovalSubmit  ApprovalAction = "SUBMIT"
	ApprovalReview  ApprovalAction = "REVIEW"
	ApprovalApprove ApprovalAction = "APPROVE"
	ApprovalReject  ApprovalAction = "REJECT"
	ApprovalConvert ApprovalAction = "CONVERT"
	ApprovalExpire  ApprovalAction = "EXPIRE"
	ApprovalCancel  ApprovalAction = "CANCEL"
	ApprovalSend    ApprovalAction = "SEND"
)

// Approval modules.
const (
	ModuleQuote   = "QUOTE"
	ModuleInvoice = "INVOICE"
)

// ApprovalLog represents a single status change.
type ApprovalLog struct {
	ID         int64          `json:"id"`
	Module     string         `json:"module"`
	RefID      uuid.UUID      `json:"ref_id"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Action     ApprovalAction `json:"action"`
	FromStatus string         `json:"from_status"`
	ToStatus   string         `json:"to_status"`
	Note       string         `json:"note,omitempty"`
	At         time.Time      `json:"at"`
}

// DBTX is satisfied by pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Validate checks the required fields of the entry.
func (l ApprovalLog) Validate() error {
	if l.Module == "" {
		return errors.New("approval module required")
	}
	if l.RefID == uuid.Nil {
		return errors.New("approval ref id required")
	}
	if l.Action == "" {
		return errors.New("approval action required")
	}
	return nil
}

// RecordApproval writes a status history entry using the given executor so it
// joins the caller's transaction.
func RecordApproval(ctx context.Context, db DBTX, log ApprovalLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	var actor *uuid.UUID
	if log.ActorID != uuid.Nil {
		actor = &log.ActorID
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err := db.Exec(ctx, `INSERT INTO approvals (module, ref_id, actor_id, action, from_status, to_status, note, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		log.Module, log.RefID, actor, string(log.Action), log.FromStatus, log.ToStatus, log.Note, at)
	return err
}

// ListApprovals returns the history for module/ref in chronological order.
func ListApprovals(ctx context.Context, db DBTX, module string, ref uuid.UUID) ([]ApprovalLog, error) {
	rows, err := db.Query(ctx, `SELECT id, module, ref_id, actor_id, action, from_status, to_status, note, at
FROM approvals WHERE module=$1 AND ref_id=$2 ORDER BY at ASC, id ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		var actor *uuid.UUID
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &actor, &action, &l.FromStatus, &l.ToStatus, &l.Note, &l.At); err != nil {
			return nil, err
		}
		if actor != nil {
			l.ActorID = *actor
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
