package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/auth"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
	apiv1 "github.com/Jaiharishan/Split-Generator-Backend/pkg/api/v1"
)

// AccountService implements the AccountService RPC interface.
type AccountService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
	gate          *limits.Gate
	logger        *slog.Logger
	now           func() time.Time
}

// NewAccountService creates a new account service.
func NewAccountService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store, gate *limits.Gate, logger *slog.Logger) *AccountService {
	return &AccountService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
		gate:          gate,
		logger:        logger,
		now:           time.Now,
	}
}

// Register creates a new user account on the free tier.
func (s *AccountService) Register(ctx context.Context, req *connect.Request[apiv1.RegisterRequest]) (*connect.Response[apiv1.RegisterResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.DisplayName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("email and display name are required"))
	}

	user, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.DisplayName, req.Msg.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, fail(s.logger, "Register", err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, fail(s.logger, "Register", err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&apiv1.RegisterResponse{User: toAPIUser(user), Token: token}), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AccountService) Login(ctx context.Context, req *connect.Request[apiv1.LoginRequest]) (*connect.Response[apiv1.LoginResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, fail(s.logger, "Login", err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&apiv1.LoginResponse{User: toAPIUser(user), Token: token}), nil
}

// Logout is a no-op: tokens are stateless and discarded by the client.
func (s *AccountService) Logout(ctx context.Context, req *connect.Request[apiv1.LogoutRequest]) (*connect.Response[apiv1.LogoutResponse], error) {
	s.logger.Info("Logout request")
	return connect.NewResponse(&apiv1.LogoutResponse{}), nil
}

// GetCurrentUser returns the authenticated user's account.
func (s *AccountService) GetCurrentUser(ctx context.Context, req *connect.Request[apiv1.GetCurrentUserRequest]) (*connect.Response[apiv1.GetCurrentUserResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fail(s.logger, "GetCurrentUser", err)
	}
	return connect.NewResponse(&apiv1.GetCurrentUserResponse{User: toAPIUser(user)}), nil
}

// GetUsage reports the caller's tier, its quotas and current usage.
func (s *AccountService) GetUsage(ctx context.Context, req *connect.Request[apiv1.GetUsageRequest]) (*connect.Response[apiv1.GetUsageResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fail(s.logger, "GetUsage", err)
	}

	periodStart := limits.PeriodStart(s.now())
	bills, err := s.store.CountBillsSince(ctx, userID, periodStart.Unix())
	if err != nil {
		return nil, fail(s.logger, "GetUsage", err)
	}
	templates, err := s.store.CountTemplates(ctx, userID)
	if err != nil {
		return nil, fail(s.logger, "GetUsage", err)
	}

	return connect.NewResponse(&apiv1.GetUsageResponse{
		Tier:            string(user.Tier),
		Quotas:          toAPIQuotas(s.gate.Quotas(user.Tier)),
		BillsThisPeriod: bills,
		Templates:       templates,
		PeriodStart:     periodStart.Unix(),
	}), nil
}

// GetSubscription returns the caller's billing state. Users who never
// subscribed get an empty free-tier subscription.
func (s *AccountService) GetSubscription(ctx context.Context, req *connect.Request[apiv1.GetSubscriptionRequest]) (*connect.Response[apiv1.GetSubscriptionResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		sub = &models.Subscription{UserID: userID, PlanTier: models.TierFree}
	} else if err != nil {
		return nil, fail(s.logger, "GetSubscription", err)
	}
	return connect.NewResponse(&apiv1.GetSubscriptionResponse{Subscription: toAPISubscription(sub)}), nil
}
