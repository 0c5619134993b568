// Package dbtest opens throwaway SQLite databases carrying the application
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'mujer',
		description TEXT,
		city TEXT NOT NULL,
		zone TEXT,
		postal_code TEXT,
		phone TEXT,
		whatsapp BOOLEAN NOT NULL DEFAULT 0,
		age INTEGER,
		languages TEXT,
		available_days TEXT,
		accompaniment_types TEXT,
		tags TEXT,
		schedule TEXT,
		hair_color TEXT,
		height_cm INTEGER,
		weight_kg INTEGER,
		profession TEXT,
		nationality TEXT,
		birth_place TEXT,
		image_url TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		verified BOOLEAN NOT NULL DEFAULT 0,
		phone_verified BOOLEAN NOT NULL DEFAULT 0,
		phone_verified_at DATETIME,
		phone_verified_by TEXT,
		public_plan TEXT NOT NULL DEFAULT 'free',
		views_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE profile_media (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		media_type TEXT NOT NULL,
		visibility TEXT NOT NULL DEFAULT 'public',
		storage_path TEXT NOT NULL UNIQUE,
		public_url TEXT,
		mime_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'free',
		status TEXT NOT NULL DEFAULT 'inactive',
		current_period_end DATETIME,
		stripe_customer_id TEXT,
		stripe_subscription_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE favorites (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		created_at DATETIME,
		UNIQUE (user_id, profile_id)
	)`,
	`CREATE TABLE user_roles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (user_id, role)
	)`,
	`CREATE TABLE moderation_logs (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		moderator_id TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE reports (
		id TEXT PRIMARY KEY,
		reporter_id TEXT NOT NULL,
		profile_id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT 'spam',
		description TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		reviewed_at DATETIME,
		reviewed_by TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE contact_submissions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		subject TEXT,
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		created_at DATETIME,
		updated_at DATETIME
	)`,
}

// Open returns a fresh in-memory database with every application table.
// Each call gets its own named database so tests never share rows. The pool
// is pinned to one connection, which serializes concurrent transactions the
// way row locks do on Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
