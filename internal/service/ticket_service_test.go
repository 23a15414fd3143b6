package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	notifymocks "github.com/spec-kit/helpdesk-service/internal/notify/mocks"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/mocks"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	normalUser = &domain.User{ID: "user-1", Username: "user1", Email: "user1@example.com", Groups: []domain.Group{domain.GroupNormalUsers}}
	otherUser  = &domain.User{ID: "user-2", Username: "user2", Groups: []domain.Group{domain.GroupNormalUsers}}
	techAgent  = &domain.User{ID: "tech-1", Username: "tech1", Groups: []domain.Group{domain.GroupNormalUsers, domain.GroupTechnicalAgents}}
	hrAgent    = &domain.User{ID: "hr-1", Username: "hr1", Groups: []domain.Group{domain.GroupNormalUsers, domain.GroupHRAgents}}
	adminUser  = &domain.User{ID: "admin-1", Username: "admin1", IsSuperuser: true, IsStaff: true}
)

type ticketFixture struct {
	tickets    *mocks.MockTicketRepository
	comments   *mocks.MockCommentRepository
	users      *mocks.MockUserRepository
	categories *mocks.MockCategoryRepository
	sender     *notifymocks.MockSender
	blobs      *fakeBlobReleaser
	published  []events.Event
	logs       *observer.ObservedLogs
	svc        *TicketService
}

type fakeBlobReleaser struct {
	keys     []string
	released []string
}

func (f *fakeBlobReleaser) StorageKeys(context.Context, string) ([]string, error) {
	return f.keys, nil
}

func (f *fakeBlobReleaser) Release(_ context.Context, keys []string) error {
	f.released = append(f.released, keys...)
	return nil
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	core, logs := observer.New(zap.WarnLevel)

	f := &ticketFixture{
		tickets:    mocks.NewMockTicketRepository(ctrl),
		comments:   mocks.NewMockCommentRepository(ctrl),
		users:      mocks.NewMockUserRepository(ctrl),
		categories: mocks.NewMockCategoryRepository(ctrl),
		sender:     notifymocks.NewMockSender(ctrl),
		blobs:      &fakeBlobReleaser{},
		logs:       logs,
	}

	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, eventType := range append(events.TicketEventTypes, events.EventCommentAdded) {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:    f.tickets,
		CommentRepo:   f.comments,
		UserRepo:      f.users,
		Categories:    NewCategoryService(f.categories, time.Minute),
		Blobs:         f.blobs,
		Sender:        f.sender,
		Dispatcher:    dispatcher,
		Logger:        zap.New(core),
		NotifyTimeout: time.Second,
	})
	return f
}

func openTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          "t-1",
		Name:        "Printer jam",
		Description: "Tray 2 is stuck",
		CategoryID:  "cat-1",
		Priority:    domain.TicketPriorityLow,
		State:       domain.TicketStateOpen,
		OwnerID:     normalUser.ID,
	}
}

func heldBy(agentID string) *domain.Ticket {
	ticket := openTicket()
	ticket.AssignedAgentID = &agentID
	ticket.State = domain.TicketStateInProgress
	return ticket
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

func TestTicketService_CreateDefaultsAndSanitizes(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	f.categories.EXPECT().GetByID(ctx, "cat-1").Return(&domain.Category{ID: "cat-1", Name: "Hardware"}, nil)
	f.tickets.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, ticket *domain.Ticket) error {
		ticket.ID = "t-1"
		return nil
	})

	ticket, err := f.svc.Create(ctx, normalUser, TicketInput{
		Name:        "  Printer jam ",
		Description: "<script>alert(1)</script>Tray <b>2</b> is stuck",
		CategoryID:  "cat-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Printer jam", ticket.Name)
	assert.Equal(t, "Tray 2 is stuck", ticket.Description)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Equal(t, normalUser.ID, ticket.OwnerID)
	assert.Nil(t, ticket.AssignedAgentID)
	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventTicketCreated, f.published[0].Type)
}

func TestTicketService_CreateValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("agent without normal users group", func(t *testing.T) {
		f := newTicketFixture(t)
		agentOnly := &domain.User{ID: "c-1", Groups: []domain.Group{domain.GroupConsultants}}
		_, err := f.svc.Create(ctx, agentOnly, TicketInput{Name: "x", Description: "y", CategoryID: "cat-1"})
		assertCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("name too long", func(t *testing.T) {
		f := newTicketFixture(t)
		long := make([]rune, 101)
		for i := range long {
			long[i] = 'a'
		}
		_, err := f.svc.Create(ctx, normalUser, TicketInput{Name: string(long), Description: "y", CategoryID: "cat-1"})
		assertCode(t, err, apperrors.CodeValidation)
	})

	t.Run("markup only description", func(t *testing.T) {
		f := newTicketFixture(t)
		_, err := f.svc.Create(ctx, normalUser, TicketInput{Name: "x", Description: "<p></p>", CategoryID: "cat-1"})
		assertCode(t, err, apperrors.CodeValidation)
	})

	t.Run("unknown priority", func(t *testing.T) {
		f := newTicketFixture(t)
		_, err := f.svc.Create(ctx, normalUser, TicketInput{Name: "x", Description: "y", CategoryID: "cat-1", Priority: "urgent"})
		assertCode(t, err, apperrors.CodeValidation)
	})

	t.Run("missing category", func(t *testing.T) {
		f := newTicketFixture(t)
		f.categories.EXPECT().GetByID(ctx, "nope").Return(nil, pgx.ErrNoRows)
		_, err := f.svc.Create(ctx, normalUser, TicketInput{Name: "x", Description: "y", CategoryID: "nope"})
		assertCode(t, err, apperrors.CodeValidation)
		assert.Contains(t, err.Error(), "invalid category selected")
	})
}

func TestTicketService_GetHidesOtherUsersTickets(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil).Times(3)

	_, err := f.svc.Get(ctx, otherUser, "t-1")
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.Get(ctx, hrAgent, "t-1")
	assertCode(t, err, apperrors.CodeNotFound)

	ticket, err := f.svc.Get(ctx, normalUser, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", ticket.ID)
}

func TestTicketService_AssignSecondCallerSeesNotFound(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil).Times(2)
	gomock.InOrder(
		f.tickets.EXPECT().Assign(ctx, "t-1", techAgent.ID).Return(heldBy(techAgent.ID), nil),
		f.tickets.EXPECT().Assign(ctx, "t-1", hrAgent.ID).Return(nil, pgx.ErrNoRows),
	)

	won, err := f.svc.Assign(ctx, techAgent, "t-1")
	require.NoError(t, err)
	assert.True(t, won.IsAssignedTo(techAgent.ID))
	assert.Equal(t, domain.TicketStateInProgress, won.State)

	_, err = f.svc.Assign(ctx, hrAgent, "t-1")
	assertCode(t, err, apperrors.CodeNotFound)

	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventTicketAssigned, f.published[0].Type)
}

func TestTicketService_AssignRules(t *testing.T) {
	ctx := context.Background()

	t.Run("normal user is forbidden before any read", func(t *testing.T) {
		f := newTicketFixture(t)
		_, err := f.svc.Assign(ctx, normalUser, "t-1")
		assertCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("already held ticket is not found", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
		_, err := f.svc.Assign(ctx, hrAgent, "t-1")
		assertCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("missing ticket", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-404").Return(nil, pgx.ErrNoRows)
		_, err := f.svc.Assign(ctx, techAgent, "t-404")
		assertCode(t, err, apperrors.CodeNotFound)
	})
}

func TestTicketService_UnassignReturnsToPool(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
	f.tickets.EXPECT().Unassign(ctx, "t-1", techAgent.ID).Return(openTicket(), nil)

	ticket, err := f.svc.Unassign(ctx, techAgent, "t-1")
	require.NoError(t, err)
	assert.False(t, ticket.IsAssigned())

	require.Len(t, f.published, 1)
	payload := f.published[0].Payload.(events.TicketPayload)
	require.NotNil(t, payload.PreviousAgentID)
	assert.Equal(t, techAgent.ID, *payload.PreviousAgentID)
}

func TestTicketService_UnassignByOtherAgentIsNotFound(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)

	_, err := f.svc.Unassign(ctx, hrAgent, "t-1")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestTicketService_ResolveNotifiesOwner(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	closed := heldBy(techAgent.ID)
	closed.State = domain.TicketStateClosed
	now := time.Now()
	closed.ResolutionDate = &now

	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
	f.tickets.EXPECT().Resolve(ctx, "t-1", gomock.Any(), techAgent.ID).Return(closed, nil)
	f.users.EXPECT().GetByID(gomock.Any(), normalUser.ID).Return(normalUser, nil)
	f.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg notify.Message) error {
		assert.Equal(t, []string{"user1@example.com"}, msg.To)
		assert.Equal(t, "Ticket Resolved", msg.Subject)
		assert.Equal(t, "Your ticket 'Printer jam' has been resolved.", msg.Body)
		return nil
	})

	result, err := f.svc.Resolve(ctx, techAgent, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, result.Ticket.State)
	assert.NotNil(t, result.Ticket.ResolutionDate)
	assert.Empty(t, result.Warnings)
}

func TestTicketService_ResolveNotificationFailureIsWarning(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	closed := heldBy(techAgent.ID)
	closed.State = domain.TicketStateClosed

	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
	f.tickets.EXPECT().Resolve(ctx, "t-1", gomock.Any(), techAgent.ID).Return(closed, nil)
	f.users.EXPECT().GetByID(gomock.Any(), normalUser.ID).Return(normalUser, nil)
	f.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("relay refused"))
	f.sender.EXPECT().Name().Return("smtp").AnyTimes()

	result, err := f.svc.Resolve(ctx, techAgent, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, result.Ticket.State)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, apperrors.CodeNotificationFailed, result.Warnings[0].Code)
	assert.Equal(t, 1, f.logs.FilterMessage("resolution notification failed").Len())
}

func TestTicketService_ResolveRules(t *testing.T) {
	ctx := context.Background()

	t.Run("agent cannot resolve unheld ticket", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
		_, err := f.svc.Resolve(ctx, techAgent, "t-1")
		assertCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("closed ticket is not found", func(t *testing.T) {
		f := newTicketFixture(t)
		closed := heldBy(techAgent.ID)
		closed.State = domain.TicketStateClosed
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(closed, nil)
		_, err := f.svc.Resolve(ctx, techAgent, "t-1")
		assertCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("admin resolves open ticket", func(t *testing.T) {
		f := newTicketFixture(t)
		closed := openTicket()
		closed.State = domain.TicketStateClosed
		closed.AssignedAgentID = &adminUser.ID
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
		f.tickets.EXPECT().Resolve(ctx, "t-1", (*string)(nil), adminUser.ID).Return(closed, nil)
		f.users.EXPECT().GetByID(gomock.Any(), normalUser.ID).Return(normalUser, nil)
		f.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

		result, err := f.svc.Resolve(ctx, adminUser, "t-1")
		require.NoError(t, err)
		assert.True(t, result.Ticket.IsAssignedTo(adminUser.ID))
	})
}

func TestTicketService_EditAndDeleteOnlyWhileUnassigned(t *testing.T) {
	ctx := context.Background()

	t.Run("owner edits open ticket", func(t *testing.T) {
		f := newTicketFixture(t)
		updated := openTicket()
		updated.Name = "Printer on fire"
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
		f.categories.EXPECT().GetByID(ctx, "cat-1").Return(&domain.Category{ID: "cat-1"}, nil)
		f.tickets.EXPECT().UpdateUnassigned(ctx, gomock.Any(), normalUser.ID).Return(updated, nil)

		ticket, err := f.svc.Edit(ctx, normalUser, "t-1", TicketInput{Name: "Printer on fire", Description: "smoke", CategoryID: "cat-1"})
		require.NoError(t, err)
		assert.Equal(t, "Printer on fire", ticket.Name)
	})

	t.Run("owner cannot edit held ticket", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
		_, err := f.svc.Edit(ctx, normalUser, "t-1", TicketInput{Name: "x", Description: "y", CategoryID: "cat-1"})
		assertCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("stranger edit is not found", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
		_, err := f.svc.Edit(ctx, otherUser, "t-1", TicketInput{Name: "x", Description: "y", CategoryID: "cat-1"})
		assertCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("assigned between read and write", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
		f.categories.EXPECT().GetByID(ctx, "cat-1").Return(&domain.Category{ID: "cat-1"}, nil)
		f.tickets.EXPECT().UpdateUnassigned(ctx, gomock.Any(), normalUser.ID).Return(nil, pgx.ErrNoRows)
		_, err := f.svc.Edit(ctx, normalUser, "t-1", TicketInput{Name: "x", Description: "y", CategoryID: "cat-1"})
		assertCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("owner deletes open ticket and releases blobs", func(t *testing.T) {
		f := newTicketFixture(t)
		f.blobs.keys = []string{"abc"}
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)
		f.tickets.EXPECT().DeleteUnassigned(ctx, "t-1", normalUser.ID).Return(nil)

		require.NoError(t, f.svc.Delete(ctx, normalUser, "t-1"))
		assert.Equal(t, []string{"abc"}, f.blobs.released)
		require.Len(t, f.published, 1)
		assert.Equal(t, events.EventTicketDeleted, f.published[0].Type)
	})

	t.Run("owner cannot delete held ticket", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
		assertCode(t, f.svc.Delete(ctx, normalUser, "t-1"), apperrors.CodeForbidden)
		assert.Empty(t, f.blobs.released)
	})
}

func TestTicketService_Comment(t *testing.T) {
	ctx := context.Background()

	t.Run("owner is forbidden", func(t *testing.T) {
		f := newTicketFixture(t)
		_, err := f.svc.Comment(ctx, normalUser, "t-1", "hello")
		assertCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("other agent is not found", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
		_, err := f.svc.Comment(ctx, hrAgent, "t-1", "hello")
		assertCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("empty after sanitizing", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
		_, err := f.svc.Comment(ctx, techAgent, "t-1", "<img src=x>")
		assertCode(t, err, apperrors.CodeValidation)
	})

	t.Run("ticket deleted before insert", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
		f.comments.EXPECT().Create(ctx, gomock.Any()).
			Return(&pgconn.PgError{Code: "23503", ConstraintName: "comments_ticket_id_fkey"})

		_, err := f.svc.Comment(ctx, techAgent, "t-1", "hello")
		assertCode(t, err, apperrors.CodeNotFound)
		assert.Empty(t, f.published)
	})

	t.Run("assigned agent comments", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().GetByID(ctx, "t-1").Return(heldBy(techAgent.ID), nil)
		f.comments.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, c *domain.Comment) error {
			c.ID = "c-1"
			return nil
		})

		comment, err := f.svc.Comment(ctx, techAgent, "t-1", "Replaced the <i>roller</i>")
		require.NoError(t, err)
		assert.Equal(t, "Replaced the roller", comment.Text)
		assert.Equal(t, techAgent.ID, comment.AgentID)
		require.Len(t, f.published, 1)
		assert.Equal(t, events.EventCommentAdded, f.published[0].Type)
	})
}

func TestTicketService_ListScopes(t *testing.T) {
	ctx := context.Background()

	t.Run("default scope is own tickets", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().List(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
			require.NotNil(t, filter.OwnerID)
			assert.Equal(t, normalUser.ID, *filter.OwnerID)
			assert.Equal(t, 10, filter.Limit)
			assert.Equal(t, 10, filter.Offset)
			return []domain.Ticket{*openTicket()}, nil
		})
		f.tickets.EXPECT().Count(ctx, gomock.Any()).Return(11, nil)

		page, err := f.svc.List(ctx, normalUser, ListQuery{Page: 2, SortBy: "bogus"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 11, page.Total)
		assert.Len(t, page.Items, 1)
	})

	t.Run("unassigned pool for agents", func(t *testing.T) {
		f := newTicketFixture(t)
		f.tickets.EXPECT().List(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
			assert.True(t, filter.Unassigned)
			require.NotNil(t, filter.Priority)
			assert.Equal(t, domain.TicketPriorityHigh, *filter.Priority)
			return nil, nil
		})
		f.tickets.EXPECT().Count(ctx, gomock.Any()).Return(0, nil)

		_, err := f.svc.List(ctx, techAgent, ListQuery{Scope: policy.ScopeUnassigned, Priority: "high"})
		require.NoError(t, err)
	})

	t.Run("all scope needs admin", func(t *testing.T) {
		f := newTicketFixture(t)
		_, err := f.svc.List(ctx, techAgent, ListQuery{Scope: policy.ScopeAll})
		assertCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("bad state filter", func(t *testing.T) {
		f := newTicketFixture(t)
		_, err := f.svc.List(ctx, adminUser, ListQuery{Scope: policy.ScopeAll, State: "archived"})
		assertCode(t, err, apperrors.CodeValidation)
	})
}

func TestTicketService_Permissions(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	f.tickets.EXPECT().GetByID(ctx, "t-1").Return(openTicket(), nil)

	_, perms, err := f.svc.Permissions(ctx, techAgent, "t-1")
	require.NoError(t, err)
	assert.True(t, perms.View.Allowed)
	assert.True(t, perms.Assign.Allowed)
	assert.False(t, perms.Edit.Allowed)
	assert.False(t, perms.Comment.Allowed)
}
