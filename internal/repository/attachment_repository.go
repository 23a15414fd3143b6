package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// BlobFunc writes or removes the blob behind a storage key.
type BlobFunc func(ctx context.Context) error

// AttachmentRepository persists attachment metadata. Writes that touch a
// storage key hold a per-key advisory lock so a blob is never removed while
// a new row starts referencing it.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment, ownerID string, storeBlob BlobFunc) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	Delete(ctx context.Context, id, ownerID string) error
	ReleaseStorageKey(ctx context.Context, storageKey string, deleteBlob BlobFunc) (bool, error)
}

type attachmentRepository struct {
	db DBTX
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DBTX) AttachmentRepository {
	return &attachmentRepository{db: db}
}

const attachmentColumns = `id, ticket_id, storage_key, file_name, mime_type, size_bytes, created_at`

const lockStorageKey = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

// Create inserts the row only while ownerID still owns the unassigned
// ticket, then stores the blob in the same transaction. A lost precondition
// returns pgx.ErrNoRows.
func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment, ownerID string, storeBlob BlobFunc) (err error) {
	const query = `
        INSERT INTO attachments (ticket_id, storage_key, file_name, mime_type, size_bytes)
        SELECT t.id, $2::text, $3::text, $4::text, $5::bigint
        FROM tickets t
        WHERE t.id=$1 AND t.owner_id=$6 AND t.assigned_agent_id IS NULL
        RETURNING id, created_at`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, lockStorageKey, attachment.StorageKey); err != nil {
		return err
	}
	if err = tx.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
		ownerID,
	).Scan(&attachment.ID, &attachment.CreatedAt); err != nil {
		return err
	}
	if storeBlob != nil {
		if err = storeBlob(ctx); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM attachments WHERE id=$1`
	var attachment domain.Attachment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.StorageKey,
		&attachment.FileName,
		&attachment.MimeType,
		&attachment.SizeBytes,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.StorageKey,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

// Delete removes the row only while ownerID still owns the unassigned ticket.
func (r *attachmentRepository) Delete(ctx context.Context, id, ownerID string) error {
	const query = `
        DELETE FROM attachments a USING tickets t
        WHERE a.id=$1 AND t.id=a.ticket_id AND t.owner_id=$2 AND t.assigned_agent_id IS NULL`
	cmd, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ReleaseStorageKey calls deleteBlob when no row references storageKey any
// more and reports whether it did.
func (r *attachmentRepository) ReleaseStorageKey(ctx context.Context, storageKey string, deleteBlob BlobFunc) (released bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, lockStorageKey, storageKey); err != nil {
		return false, err
	}
	var refs int
	if err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM attachments WHERE storage_key=$1`, storageKey).Scan(&refs); err != nil {
		return false, err
	}
	if refs == 0 {
		if err = deleteBlob(ctx); err != nil {
			return false, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return refs == 0, nil
}
