package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/pkg/applog"
)

type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	CreateProfile(ctx context.Context, tx pgx.Tx, profile *domain.UserProfile) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error)
	List(ctx context.Context, limit, offset int64) ([]domain.User, int64, error)
	Update(ctx context.Context, tx pgx.Tx, id int64, input *domain.UpdateUserInput) error
	UpdateProfile(ctx context.Context, tx pgx.Tx, userID int64, input *domain.UpdateUserInput) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateStatus(ctx context.Context, id int64, status domain.UserStatus) error
}

type userRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewUserRepository(pool *pgxpool.Pool, logger *zap.Logger) UserRepository {
	return &userRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/user_repo"),
	}
}

func (r *userRepo) Create(ctx context.Context, tx pgx.Tx, user *domain.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("username", user.Username),
	)

	query := `
		INSERT INTO users (username, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(
		ctx,
		query,
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		string(user.Status),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			if strings.Contains(pgError.ConstraintName, "email") {
				return ErrEmailTaken
			}
			return ErrUsernameTaken
		}

		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Error inserting user",
			zap.String("username", user.Username),
			zap.Error(err),
		)

		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

func (r *userRepo) CreateProfile(ctx context.Context, tx pgx.Tx, profile *domain.UserProfile) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.CreateProfile")
	defer span.End()

	query := `
		INSERT INTO user_profiles (user_id, name, phone, address, city, province, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := tx.QueryRow(
		ctx,
		query,
		profile.UserID,
		profile.Name,
		profile.Phone,
		profile.Address,
		profile.City,
		profile.Province,
		profile.PostalCode,
		profile.Country,
	).Scan(&profile.ID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("error creating user profile: %w", err)
	}

	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByUsername")
	defer span.End()

	span.SetAttributes(
		attribute.String("username", username),
	)

	return r.getOne(ctx, "username = $1", username)
}

func (r *userRepo) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetProfile")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT id, user_id, name, phone, address, city, province, postal_code, country
		FROM user_profiles
		WHERE user_id = $1
	`

	var p domain.UserProfile
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Phone,
		&p.Address,
		&p.City,
		&p.Province,
		&p.PostalCode,
		&p.Country,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Error querying user profile",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting user profile: %w", err)
	}

	return &p, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int64) ([]domain.User, int64, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
	)

	query := `
		SELECT id, username, email, password_hash, role, status, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error selecting users", zap.Error(err))

		return nil, 0, fmt.Errorf("error selecting users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.Role,
			&u.Status,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			span.RecordError(err)

			return nil, 0, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	var totalCount int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&totalCount); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	return users, totalCount, nil
}

func (r *userRepo) Update(ctx context.Context, tx pgx.Tx, id int64, input *domain.UpdateUserInput) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	var updates []string
	var args []interface{}
	argId := 1

	appendUpdate := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argId))
		args = append(args, value)
		argId++
	}

	if input.Username != nil {
		appendUpdate("username", *input.Username)
	}
	if input.Email != nil {
		appendUpdate("email", *input.Email)
	}

	if len(updates) == 0 {
		return nil
	}

	updates = append(updates, "updated_at = NOW()")

	query := "UPDATE users SET " + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE id = $%d", argId)
	args = append(args, id)

	commandTag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			if strings.Contains(pgError.ConstraintName, "email") {
				return ErrEmailTaken
			}
			return ErrUsernameTaken
		}

		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error updating user", zap.Int64("id", id), zap.Error(err))

		return fmt.Errorf("error updating user: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, tx pgx.Tx, userID int64, input *domain.UpdateUserInput) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.UpdateProfile")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	var updates []string
	var args []interface{}
	argId := 1

	appendUpdate := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argId))
		args = append(args, value)
		argId++
	}

	if input.Name != nil {
		appendUpdate("name", *input.Name)
	}
	if input.Phone != nil {
		appendUpdate("phone", *input.Phone)
	}
	if input.Address != nil {
		appendUpdate("address", *input.Address)
	}
	if input.City != nil {
		appendUpdate("city", *input.City)
	}
	if input.Province != nil {
		appendUpdate("province", *input.Province)
	}
	if input.PostalCode != nil {
		appendUpdate("postal_code", *input.PostalCode)
	}
	if input.Country != nil {
		appendUpdate("country", *input.Country)
	}

	if len(updates) == 0 {
		return nil
	}

	query := "UPDATE user_profiles SET " + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE user_id = $%d", argId)
	args = append(args, userID)

	commandTag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error updating user profile", zap.Int64("user_id", userID), zap.Error(err))

		return fmt.Errorf("error updating user profile: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.UpdatePassword")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error updating password", zap.Int64("id", id), zap.Error(err))

		return fmt.Errorf("error updating password: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepo) UpdateStatus(ctx context.Context, id int64, status domain.UserStatus) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE users
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error updating user status", zap.Int64("id", id), zap.Error(err))

		return fmt.Errorf("error updating user status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepo) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, email, password_hash, role, status, created_at, updated_at
		FROM users
		WHERE %s
	`, where)

	var u domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		applog.Error(
			ctx,
			r.logger,
			"Error querying user",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return &u, nil
}
