package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/regfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateUserTable()
	migrateFilingsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS filings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		submission_id TEXT NOT NULL UNIQUE,
		filing_type TEXT NOT NULL,
		company_number TEXT NOT NULL,
		status TEXT NOT NULL,
		gateway_reference TEXT,
		correlation_id TEXT,
		errors_json TEXT,
		request_xml TEXT,
		response_xml TEXT,
		credits_charged INTEGER DEFAULT 0,
		credits_refunded BOOLEAN DEFAULT FALSE,
		submitted_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS credit_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL,
		submission_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// tableColumns returns the existing column names of a table, or nil when the
// table does not exist yet (first run: CREATE TABLE handles it).
func tableColumns(table string) map[string]bool {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("table does not exist yet, no migration needed", "table", table)
			} else {
				stdlog.Printf("table %s does not exist yet, no migration needed", table)
			}
			return nil
		}
		if logger.L != nil {
			logger.L.Error("Error checking for table", "table", table, "error", err)
		} else {
			stdlog.Printf("Error checking for table %s: %v", table, err)
		}
		return nil
	}

	rows, err := DB.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema", "table", table, "error", err)
		} else {
			stdlog.Printf("Error querying table schema for %s: %v", table, err)
		}
		return nil
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "table", table, "error", err)
			} else {
				stdlog.Printf("Error scanning column info for %s: %v", table, err)
			}
			return nil
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "table", table, "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for %s: %v", table, err)
		}
		return nil
	}
	return columnExists
}

func addColumn(table, definition, column string) {
	_, err := DB.Exec("ALTER TABLE " + table + " ADD COLUMN " + definition)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error adding column", "table", table, "column", column, "error", err)
		} else {
			stdlog.Printf("Error adding %s column to %s table: %v", column, table, err)
		}
		return
	}
	if logger.L != nil {
		logger.L.Info("Added column", "table", table, "column", column)
	} else {
		stdlog.Printf("Added %s column to %s table", column, table)
	}
}

func migrateUserTable() {
	columnExists := tableColumns("users")
	if columnExists == nil {
		return
	}

	if _, ok := columnExists["email"]; !ok {
		addColumn("users", "email TEXT NOT NULL DEFAULT ''", "email")
	}
	if _, ok := columnExists["is_email_verified"]; !ok {
		addColumn("users", "is_email_verified BOOLEAN DEFAULT FALSE", "is_email_verified")
	}
	if _, ok := columnExists["email_verification_token"]; !ok {
		addColumn("users", "email_verification_token TEXT", "email_verification_token")
	}
	if _, ok := columnExists["email_verification_token_expires_at"]; !ok {
		addColumn("users", "email_verification_token_expires_at TIMESTAMP", "email_verification_token_expires_at")
	}
	if _, ok := columnExists["password_reset_token"]; !ok {
		addColumn("users", "password_reset_token TEXT", "password_reset_token")
	}
	if _, ok := columnExists["password_reset_token_expires_at"]; !ok {
		addColumn("users", "password_reset_token_expires_at TIMESTAMP", "password_reset_token_expires_at")
	}
	if _, ok := columnExists["created_at"]; !ok {
		addColumn("users", "created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP", "created_at")
	}
	if _, ok := columnExists["updated_at"]; !ok {
		addColumn("users", "updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP", "updated_at")
	}
}

func migrateFilingsTable() {
	columnExists := tableColumns("filings")
	if columnExists == nil {
		return
	}

	// response_xml and the refund flag arrived after the first release
	if _, ok := columnExists["response_xml"]; !ok {
		addColumn("filings", "response_xml TEXT", "response_xml")
	}
	if _, ok := columnExists["credits_refunded"]; !ok {
		addColumn("filings", "credits_refunded BOOLEAN DEFAULT FALSE", "credits_refunded")
		_, errUpdate := DB.Exec("UPDATE filings SET credits_refunded = FALSE WHERE credits_refunded IS NULL")
		if errUpdate != nil {
			if logger.L != nil {
				logger.L.Error("Error backfilling credits_refunded for existing rows", "error", errUpdate)
			} else {
				stdlog.Printf("Error backfilling credits_refunded for existing rows: %v", errUpdate)
			}
		}
	}
}
