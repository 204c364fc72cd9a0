package db

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// connectSQLite opens an embedded file database through the pure-Go sqlite
// dialector, so single-node deployments run without a postgres server.
func connectSQLite(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn is required")
	}

	// TranslateError maps sqlite unique violations to gorm.ErrDuplicatedKey;
	// without it a double vote would surface as a raw constraint error.
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open gorm sqlite: %w", err)
	}
	return &Database{DB: db}, nil
}
