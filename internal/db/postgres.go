package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/envutil"
	"github.com/communityvault/backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.Str("POSTGRES_HOST", "localhost")
	port := envutil.Str("POSTGRES_PORT", "5432")
	user := envutil.Str("POSTGRES_USER", "postgres")
	password := envutil.Str("POSTGRES_PASSWORD", "")
	name := envutil.Str("POSTGRES_NAME", "communityvault")
	sslMode := envutil.Str("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslMode)

	serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrate(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships...")
	for _, ddl := range []string{
		`ALTER TABLE "file" DROP CONSTRAINT IF EXISTS "fk_file_owner_id"`,
		`ALTER TABLE "file" ADD CONSTRAINT "fk_file_owner_id"
		 FOREIGN KEY ("owner_id") REFERENCES "user"("id") ON DELETE CASCADE`,
		`ALTER TABLE "file_view" DROP CONSTRAINT IF EXISTS "fk_file_view_file_id"`,
		`ALTER TABLE "file_view" ADD CONSTRAINT "fk_file_view_file_id"
		 FOREIGN KEY ("file_id") REFERENCES "file"("id") ON DELETE CASCADE`,
		`ALTER TABLE "notification" DROP CONSTRAINT IF EXISTS "fk_notification_user_id"`,
		`ALTER TABLE "notification" ADD CONSTRAINT "fk_notification_user_id"
		 FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
	} {
		if err := s.db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("configure foreign keys: %w", err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

// AutoMigrate is shared with the repo test harness.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&domain.User{},
		&domain.Project{},
		&domain.File{},
		&domain.FileView{},
		&domain.Transaction{},
		&domain.Notification{},
	)
}
