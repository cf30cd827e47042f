package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/domain/users"
	"github.com/yungbote/repodoc-backend/internal/pkg/envutil"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "repodoc")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&users.User{},
		&jobs.Job{},
	); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := s.db.Exec(`
		ALTER TABLE "job"
		DROP CONSTRAINT IF EXISTS "fk_job_actor_id";
	`).Error; err != nil {
		return fmt.Errorf("reset fk_job_actor_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "job"
		ADD CONSTRAINT "fk_job_actor_id"
		FOREIGN KEY ("actor_id")
		REFERENCES "app_user"("id")
		ON DELETE SET NULL
	`).Error; err != nil {
		return fmt.Errorf("add fk_job_actor_id: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
