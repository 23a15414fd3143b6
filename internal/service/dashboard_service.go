package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DashboardService computes desk-wide and per-agent aggregates and keeps
// them in a shared cache.
type DashboardService struct {
	stats  repository.StatsRepository
	cache  repository.DashboardCache
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService builds the service. cache may be nil.
func NewDashboardService(stats repository.StatsRepository, cache repository.DashboardCache, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{stats: stats, cache: cache, logger: logger, now: time.Now}
}

// Admin returns the desk-wide dashboard. Superusers only.
func (s *DashboardService) Admin(ctx context.Context, actor *domain.User) (*domain.AdminDashboard, error) {
	if err := policy.CanViewAll(actor).Err(); err != nil {
		return nil, err
	}
	var cached domain.AdminDashboard
	if s.fromCache(ctx, repository.AdminDashboardKey, &cached) {
		return &cached, nil
	}
	dashboard, err := s.buildAdmin(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, repository.AdminDashboardKey, dashboard)
	return dashboard, nil
}

// Agent returns the dashboard for the tickets the actor holds.
func (s *DashboardService) Agent(ctx context.Context, actor *domain.User) (*domain.AgentDashboard, error) {
	if err := policy.CanViewAgentDashboard(actor).Err(); err != nil {
		return nil, err
	}
	key := repository.AgentDashboardKey(actor.ID)
	var cached domain.AgentDashboard
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	agentID := actor.ID
	byCategory, err := s.stats.TicketsByCategory(ctx, &agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byState, err := s.stats.TicketsByState(ctx, agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	avg, err := s.stats.AvgResolutionHours(ctx, &agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	dashboard := &domain.AgentDashboard{
		AgentID:            agentID,
		TicketsByCategory:  byCategory,
		TicketsByState:     byState,
		AvgResolutionHours: roundHours(avg),
		GeneratedAt:        s.now().UTC(),
	}
	s.toCache(ctx, key, dashboard)
	return dashboard, nil
}

// WarmAdmin recomputes the desk-wide dashboard and stores it.
func (s *DashboardService) WarmAdmin(ctx context.Context) error {
	dashboard, err := s.buildAdmin(ctx)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, repository.AdminDashboardKey, dashboard)
}

// RegisterInvalidation drops cached dashboards whenever a ticket changes.
func (s *DashboardService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	for _, eventType := range events.TicketEventTypes {
		dispatcher.Subscribe(eventType, s.invalidate)
	}
}

func (s *DashboardService) invalidate(ctx context.Context, event events.Event) error {
	keys := []string{repository.AdminDashboardKey}
	if payload, ok := event.Payload.(events.TicketPayload); ok {
		if payload.Ticket.AssignedAgentID != nil {
			keys = append(keys, repository.AgentDashboardKey(*payload.Ticket.AssignedAgentID))
		}
		if payload.PreviousAgentID != nil {
			keys = append(keys, repository.AgentDashboardKey(*payload.PreviousAgentID))
		}
	}
	return s.cache.Invalidate(ctx, keys...)
}

func (s *DashboardService) buildAdmin(ctx context.Context) (*domain.AdminDashboard, error) {
	perDay, err := s.stats.TicketsPerDay(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byCategory, err := s.stats.TicketsByCategory(ctx, nil)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byAgent, err := s.stats.ResolvedByAgent(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	avg, err := s.stats.AvgResolutionHours(ctx, nil)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	matrix, err := s.stats.StatePriorityBreakdown(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &domain.AdminDashboard{
		TicketsPerDay:          perDay,
		TicketsByCategory:      byCategory,
		ResolvedByAgent:        byAgent,
		AvgResolutionHours:     roundHours(avg),
		StatePriorityBreakdown: matrix,
		GeneratedAt:            s.now().UTC(),
	}, nil
}

func (s *DashboardService) fromCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *DashboardService) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func roundHours(h float64) float64 {
	if math.IsNaN(h) || h < 0 {
		return 0
	}
	return math.Round(h*100) / 100
}
