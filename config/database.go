package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase opens the configured database and auto-migrates the given models.
func InitDatabase(c AppConfig, modelDefs ...interface{}) (*gorm.DB, error) {
	conn, err := OpenDatabase(c.Database, c.Log.Level)
	if err != nil {
		return nil, err
	}
	if len(modelDefs) > 0 {
		if err := conn.AutoMigrate(modelDefs...); err != nil {
			return nil, fmt.Errorf("auto migration failed: %w", err)
		}
	}
	return conn, nil
}

// OpenDatabase connects with the selected driver, sizes the pool and pings once.
func OpenDatabase(d DatabaseSection, level string) (*gorm.DB, error) {
	dialector, err := dialectorFor(d)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "[gorm] ", log.LstdFlags), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  toGormLogLevel(level),
			IgnoreRecordNotFoundError: true,
		}),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if d.Driver == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return conn, nil
}

func dialectorFor(d DatabaseSection) (gorm.Dialector, error) {
	switch d.Driver {
	case "mysql":
		dsn := d.URI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				d.User, d.Password, d.Host, d.Port, d.Name)
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		if d.URI != "" {
			return sqlite.Open(d.URI), nil
		}
		if dir := filepath.Dir(d.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		return sqlite.Open(d.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", d.Driver)
	}
}

// toGormLogLevel maps the application log level onto gorm's. SQL is only echoed at debug.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
