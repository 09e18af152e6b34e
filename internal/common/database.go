package common

import (
	"database/sql"
	"fmt"
	"os"
	"time"
)

// InitializeDatabase establishes a PostgreSQL database connection with
// optional schema initialization.
//
// The connection pool is sized from the Postgres configuration. When
// schemaFilePath is non-empty the SQL file is executed once against the
// database, which is how the survey schema (resources/sql/surveyschema.sql)
// is installed on first start.
func InitializeDatabase(cfg PostgresConfig, schemaFilePath string) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, err
	}
	if schemaFilePath == "" {
		fmt.Println("No SQL Schema passed - skipping schema loading.")
		return db, nil
	}
	queryString, fileError := os.ReadFile(schemaFilePath)
	if fileError != nil {
		return nil, fileError
	}

	if _, dbError := db.Exec(string(queryString)); dbError != nil {
		return nil, dbError
	}
	return db, nil
}
