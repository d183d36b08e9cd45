// Package migrations 内嵌数据库表结构，并通过 golang-migrate 执行
package migrations

import (
	"embed"
	stderrors "errors"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed sql/*.sql
var files embed.FS

// Apply 把所有未执行的迁移应用到 dsn 指向的库，已是最新时直接返回
func Apply(dsn string) error {
	m, err := newMigrate(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// Rollback 回滚最近的 steps 个迁移
func Rollback(dsn string, steps int) error {
	m, err := newMigrate(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrapf(err, "rollback %d migrations", steps)
	}
	return nil
}

func newMigrate(dsn string) (*migrate.Migrate, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	cfg.MultiStatements = true
	cfg.ParseTime = true

	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, errors.Wrap(err, "open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "mysql://"+cfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "init migrate")
	}
	return m, nil
}
