package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/mocks"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	storagemocks "github.com/spec-kit/helpdesk-service/internal/storage/mocks"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type attachmentFixture struct {
	attachments *mocks.MockAttachmentRepository
	tickets     *mocks.MockTicketRepository
	blobs       *storagemocks.MockBlobStore
	svc         *AttachmentService
}

func newAttachmentFixture(t *testing.T) *attachmentFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &attachmentFixture{
		attachments: mocks.NewMockAttachmentRepository(ctrl),
		tickets:     mocks.NewMockTicketRepository(ctrl),
		blobs:       storagemocks.NewMockBlobStore(ctrl),
	}
	f.svc = NewAttachmentService(AttachmentDependencies{
		AttachmentRepo: f.attachments,
		TicketRepo:     f.tickets,
		Blobs:          f.blobs,
		MaxBytes:       16,
	})
	return f
}

func TestAttachmentService_UploadStoresContentAddressedBlob(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()
	body := []byte("hello")
	key := storage.ContentKey(body)

	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
	f.blobs.EXPECT().Put(ctx, key, body, "text/plain").Return(nil)
	f.attachments.EXPECT().Create(ctx, gomock.Any(), normalUser.ID, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *domain.Attachment, _ string, storeBlob repository.BlobFunc) error {
			return storeBlob(ctx)
		})

	attachment, err := f.svc.Upload(ctx, normalUser, "t-1", UploadInput{
		FileName: "../../etc/notes.txt",
		MimeType: "text/plain",
		Body:     body,
	})
	require.NoError(t, err)
	assert.Equal(t, key, attachment.StorageKey)
	assert.Equal(t, "notes.txt", attachment.FileName)
	assert.Equal(t, int64(5), attachment.SizeBytes)
}

func TestAttachmentService_UploadRules(t *testing.T) {
	ctx := context.Background()

	t.Run("too large", func(t *testing.T) {
		f := newAttachmentFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
		_, err := f.svc.Upload(ctx, normalUser, "t-1", UploadInput{FileName: "a", Body: make([]byte, 17)})
		assertCode(t, err, apperrors.CodeValidation)
	})

	t.Run("held ticket", func(t *testing.T) {
		f := newAttachmentFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
		_, err := f.svc.Upload(ctx, normalUser, "t-1", UploadInput{FileName: "a", Body: []byte("x")})
		assertCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("not the owner", func(t *testing.T) {
		f := newAttachmentFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
		_, err := f.svc.Upload(ctx, otherUser, "t-1", UploadInput{FileName: "a", Body: []byte("x")})
		assertCode(t, err, apperrors.CodeNotFound)
	})
}

func TestAttachmentService_DownloadHiddenTicket(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	f.attachments.EXPECT().GetByID(ctx, "a-1").Return(&domain.Attachment{ID: "a-1", TicketID: "t-1", StorageKey: "k"}, nil)
	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)

	_, _, err := f.svc.Download(ctx, hrAgent, "a-1")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestAttachmentService_UploadLosesToAssign(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	// the ticket was open when read, but an agent claimed it before the insert
	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
	f.attachments.EXPECT().Create(ctx, gomock.Any(), normalUser.ID, gomock.Any()).Return(pgx.ErrNoRows)

	_, err := f.svc.Upload(ctx, normalUser, "t-1", UploadInput{FileName: "a.txt", Body: []byte("x")})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestAttachmentService_DeleteLosesToAssign(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	f.attachments.EXPECT().GetByID(ctx, "a-1").Return(&domain.Attachment{ID: "a-1", TicketID: "t-1", StorageKey: "k"}, nil)
	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
	f.attachments.EXPECT().Delete(ctx, "a-1", normalUser.ID).Return(pgx.ErrNoRows)

	assertCode(t, f.svc.Delete(ctx, normalUser, "a-1"), apperrors.CodeNotFound)
}

// releaseWith answers ReleaseStorageKey the way the repository does: the
// blob callback runs only when no row references the key.
func releaseWith(refs map[string]int) func(context.Context, string, repository.BlobFunc) (bool, error) {
	return func(ctx context.Context, key string, deleteBlob repository.BlobFunc) (bool, error) {
		if refs[key] > 0 {
			return false, nil
		}
		if err := deleteBlob(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
}

func TestAttachmentService_ReleaseKeepsSharedBlobs(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	f.attachments.EXPECT().ReleaseStorageKey(ctx, gomock.Any(), gomock.Any()).
		DoAndReturn(releaseWith(map[string]int{"shared": 1})).Times(3)
	f.blobs.EXPECT().Delete(ctx, "orphan").Return(nil)
	f.blobs.EXPECT().Delete(ctx, "gone").Return(storage.ErrBlobNotFound)

	assert.NoError(t, f.svc.Release(ctx, []string{"shared", "orphan", "gone"}))
}

func TestAttachmentService_ReleaseCollectsErrors(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()
	boom := errors.New("s3 unavailable")

	f.attachments.EXPECT().ReleaseStorageKey(ctx, gomock.Any(), gomock.Any()).
		DoAndReturn(releaseWith(nil)).Times(2)
	f.blobs.EXPECT().Delete(ctx, "a").Return(boom)
	f.blobs.EXPECT().Delete(ctx, "b").Return(nil)

	assert.ErrorIs(t, f.svc.Release(ctx, []string{"a", "b"}), boom)
}

func TestAttachmentService_DeleteReleasesBlob(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	f.attachments.EXPECT().GetByID(ctx, "a-1").Return(&domain.Attachment{ID: "a-1", TicketID: "t-1", StorageKey: "k"}, nil)
	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
	f.attachments.EXPECT().Delete(ctx, "a-1", normalUser.ID).Return(nil)
	f.attachments.EXPECT().ReleaseStorageKey(ctx, "k", gomock.Any()).DoAndReturn(releaseWith(nil))
	f.blobs.EXPECT().Delete(ctx, "k").Return(nil)

	assert.NoError(t, f.svc.Delete(ctx, normalUser, "a-1"))
}

func TestAttachmentService_DeleteSucceedsWhenReleaseFails(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	f.attachments.EXPECT().GetByID(ctx, "a-1").Return(&domain.Attachment{ID: "a-1", TicketID: "t-1", StorageKey: "k"}, nil)
	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
	f.attachments.EXPECT().Delete(ctx, "a-1", normalUser.ID).Return(nil)
	f.attachments.EXPECT().ReleaseStorageKey(ctx, "k", gomock.Any()).Return(false, errors.New("s3 unavailable"))

	assert.NoError(t, f.svc.Delete(ctx, normalUser, "a-1"))
}

func TestAttachmentService_StorageKeysDeduplicates(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	f.attachments.EXPECT().ListByTicket(ctx, "t-1").Return([]domain.Attachment{
		{StorageKey: "k1"}, {StorageKey: "k2"}, {StorageKey: "k1"},
	}, nil)

	keys, err := f.svc.StorageKeys(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, keys)
}
