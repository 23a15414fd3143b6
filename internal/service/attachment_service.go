package service

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AttachmentService stores files against tickets. Blobs are content
// addressed and shared, so removal goes through Release.
type AttachmentService struct {
	attachments repository.AttachmentRepository
	tickets     repository.TicketRepository
	blobs       storage.BlobStore
	maxBytes    int64
	logger      *zap.Logger
}

// AttachmentDependencies bundles collaborators for the attachment service.
type AttachmentDependencies struct {
	AttachmentRepo repository.AttachmentRepository
	TicketRepo     repository.TicketRepository
	Blobs          storage.BlobStore
	MaxBytes       int64
	Logger         *zap.Logger
}

// UploadInput is a single file posted to a ticket.
type UploadInput struct {
	FileName string
	MimeType string
	Body     []byte
}

// NewAttachmentService builds the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{
		attachments: deps.AttachmentRepo,
		tickets:     deps.TicketRepo,
		blobs:       deps.Blobs,
		maxBytes:    deps.MaxBytes,
		logger:      logger,
	}
}

// Upload attaches a file. Only the owner may attach, and only while nobody
// holds the ticket.
func (s *AttachmentService) Upload(ctx context.Context, actor *domain.User, ticketID string, input UploadInput) (*domain.Attachment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanEditOrDelete(actor, ticket).Err(); err != nil {
		return nil, err
	}

	if len(input.Body) == 0 {
		return nil, apperrors.NewValidationError("file is empty", map[string]any{"field": "file"})
	}
	if s.maxBytes > 0 && int64(len(input.Body)) > s.maxBytes {
		return nil, apperrors.NewValidationError("file is too large", map[string]any{"field": "file", "max_bytes": s.maxBytes})
	}

	name := filepath.Base(strings.TrimSpace(input.FileName))
	if name == "." || name == string(filepath.Separator) {
		name = "attachment"
	}
	mimeType := input.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(input.Body)
	}

	key := storage.ContentKey(input.Body)
	attachment := &domain.Attachment{
		TicketID:   ticket.ID,
		StorageKey: key,
		FileName:   name,
		MimeType:   mimeType,
		SizeBytes:  int64(len(input.Body)),
	}
	err = s.attachments.Create(ctx, attachment, actor.ID, func(ctx context.Context) error {
		return s.blobs.Put(ctx, key, input.Body, mimeType)
	})
	if err != nil {
		return nil, ticketError(err, ticketID)
	}
	return attachment, nil
}

// List returns the attachments of a ticket the actor may view.
func (s *AttachmentService) List(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Attachment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanView(actor, ticket).Err(); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

// Download returns metadata and content.
func (s *AttachmentService) Download(ctx context.Context, actor *domain.User, id string) (*domain.Attachment, []byte, error) {
	attachment, err := s.loadAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ticket, err := s.loadTicket(ctx, attachment.TicketID)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.CanView(actor, ticket).Err(); err != nil {
		return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": id})
	}

	body, err := s.blobs.Get(ctx, attachment.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": id})
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	return attachment, body, nil
}

// Delete removes an attachment under the same rule as Upload.
func (s *AttachmentService) Delete(ctx context.Context, actor *domain.User, id string) error {
	attachment, err := s.loadAttachment(ctx, id)
	if err != nil {
		return err
	}
	ticket, err := s.loadTicket(ctx, attachment.TicketID)
	if err != nil {
		return err
	}
	if err := policy.CanEditOrDelete(actor, ticket).Err(); err != nil {
		return err
	}

	if err := s.attachments.Delete(ctx, id, actor.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("attachment", map[string]any{"attachment_id": id})
		}
		return apperrors.MapError(err)
	}
	if err := s.Release(ctx, []string{attachment.StorageKey}); err != nil {
		s.logger.Warn("attachment blob release failed",
			zap.String("attachment_id", id),
			zap.String("storage_key", attachment.StorageKey),
			zap.Error(err))
	}
	return nil
}

// StorageKeys lists the distinct blobs a ticket references.
func (s *AttachmentService) StorageKeys(ctx context.Context, ticketID string) ([]string, error) {
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(attachments))
	keys := make([]string, 0, len(attachments))
	for _, a := range attachments {
		if _, ok := seen[a.StorageKey]; ok {
			continue
		}
		seen[a.StorageKey] = struct{}{}
		keys = append(keys, a.StorageKey)
	}
	return keys, nil
}

// Release deletes each blob that no attachment row references any more.
func (s *AttachmentService) Release(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		released, err := s.attachments.ReleaseStorageKey(ctx, key, func(ctx context.Context) error {
			if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
				return err
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if released {
			s.logger.Debug("blob released", zap.String("storage_key", key))
		}
	}
	return errors.Join(errs...)
}

func (s *AttachmentService) loadTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, ticketError(err, id)
	}
	return ticket, nil
}

func (s *AttachmentService) loadAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	attachment, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || repository.IsInvalidInput(err) {
			return nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}
