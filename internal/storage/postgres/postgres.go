package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral_service/internal/config"
	"referral_service/internal/models"
	"referral_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (username, email, password_hash, referral_code, referred_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		string(user.PassHash),
		user.ReferralCode,
		user.ReferredBy,
		user.CreatedAt,
	).Scan(&id)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "users_referral_code_key" {
				return 0, storage.ErrReferralCodeTaken
			}

			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, username, email, password_hash, referral_code, referred_by, created_at
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByReferralCode(ctx context.Context, code string) (models.User, error) {
	query := `
		SELECT id, username, email, password_hash, referral_code, referred_by, created_at
		FROM users
		WHERE referral_code = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, code))
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, email string, passHash []byte) error {
	const op = "storage.postgres.UpdatePassword"

	query := `UPDATE users SET password_hash = $1 WHERE email = $2`

	tag, err := r.pool.Exec(ctx, query, string(passHash), email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) SaveReferral(ctx context.Context, referral models.Referral) error {
	const op = "storage.postgres.SaveReferral"

	query := `
		INSERT INTO referrals (referrer_id, referred_user_id, date_referred, status)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query,
		referral.ReferrerID,
		referral.ReferredUserID,
		referral.DateReferred,
		string(referral.Status),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) ReferralsByReferrer(ctx context.Context, referrerID int64) ([]models.ReferredUser, error) {
	const op = "storage.postgres.ReferralsByReferrer"

	query := `
		SELECT u.username, u.email
		FROM referrals r
		JOIN users u ON u.id = r.referred_user_id
		WHERE r.referrer_id = $1
		ORDER BY r.date_referred;
	`

	rows, err := r.pool.Query(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var referred []models.ReferredUser

	for rows.Next() {
		var u models.ReferredUser

		if err := rows.Scan(&u.Username, &u.Email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		referred = append(referred, u)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return referred, nil
}

func (r *PostgresRepo) ReferralStats(ctx context.Context, referrerID int64) (models.ReferralStats, error) {
	const op = "storage.postgres.ReferralStats"

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'successful')
		FROM referrals
		WHERE referrer_id = $1;
	`

	var stats models.ReferralStats

	err := r.pool.QueryRow(ctx, query, referrerID).Scan(&stats.Total, &stats.Successful)
	if err != nil {
		return models.ReferralStats{}, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PassHash,
		&u.ReferralCode,
		&u.ReferredBy,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
