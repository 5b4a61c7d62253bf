package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/pkg/applog"
	"github.com/guts-yang/estone-api/pkg/token"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Phone    string
}

type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, string, error)
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
	GetMe(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, input *domain.UpdateUserInput) (*domain.User, *domain.UserProfile, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	ListUsers(ctx context.Context, limit, offset int64) ([]domain.User, int64, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateUserStatus(ctx context.Context, id int64, status domain.UserStatus) (*domain.User, error)
}

type userService struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	userRepo repository.UserRepository
	cartRepo repository.CartRepository
	tracer   trace.Tracer
}

func NewUserService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	userRepo repository.UserRepository,
	cartRepo repository.CartRepository,
) UserService {
	return &userService{
		pool:     pool,
		logger:   logger,
		userRepo: userRepo,
		cartRepo: cartRepo,
		tracer:   otel.Tracer("user_service"),
	}
}

// Register creates the user together with an empty profile and cart,
// all in one transaction.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Register")
	defer span.End()

	span.SetAttributes(
		attribute.String("username", input.Username),
	)

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         domain.UserRoleCustomer,
		Status:       domain.UserStatusActive,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		applog.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		return nil, "", err
	}

	profile := &domain.UserProfile{
		UserID: user.ID,
		Phone:  input.Phone,
	}
	if err := s.userRepo.CreateProfile(ctx, tx, profile); err != nil {
		return nil, "", err
	}

	if _, err := s.cartRepo.Create(ctx, tx, user.ID); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		applog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	accessToken, err := token.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	applog.Info(ctx, s.logger, "User registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)

	return user, accessToken, nil
}

func (s *userService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Login")
	defer span.End()

	span.SetAttributes(
		attribute.String("username", username),
	)

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}

		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if user.Status != domain.UserStatusActive {
		return nil, "", ErrAccountDisabled
	}

	accessToken, err := token.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, accessToken, nil
}

func (s *userService) GetMe(ctx context.Context, userID int64) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetMe")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile changes account fields and profile fields in one
// transaction so a username conflict leaves the profile untouched.
func (s *userService) UpdateProfile(ctx context.Context, userID int64, input *domain.UpdateUserInput) (*domain.User, *domain.UserProfile, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.UpdateProfile")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		applog.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	if err := s.userRepo.Update(ctx, tx, userID, input); err != nil {
		return nil, nil, err
	}

	if err := s.userRepo.UpdateProfile(ctx, tx, userID, input); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		applog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	ctx, span := s.tracer.Start(ctx, "UserService.ChangePassword")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	applog.Info(ctx, s.logger, "Password changed",
		zap.Int64("user_id", userID),
	)

	return nil
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int64) ([]domain.User, int64, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.ListUsers")
	defer span.End()

	return s.userRepo.List(ctx, limit, offset)
}

func (s *userService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) UpdateUserStatus(ctx context.Context, id int64, status domain.UserStatus) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.UpdateUserStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.String("status", string(status)),
	)

	if err := s.userRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	applog.Info(ctx, s.logger, "User status updated",
		zap.Int64("user_id", id),
		zap.String("status", string(status)),
	)

	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		applog.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}
