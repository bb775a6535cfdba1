// Package sqlx opens jmoiron/sqlx databases on top of the instrumented
// database/sql driver, so every sqlx helper is logged through querylog.
//
// # Features
//
//   - Full sqlx API support (Get, Select, NamedExec, etc.)
//   - One query log event per statement, including named queries
//   - Transactions log BEGIN, COMMIT and ROLLBACK
//
// # Quick Start
//
//	import querysqlx "github.com/kroma-labs/sentinel-querylog/sqlx"
//
//	db, err := querysqlx.Open("postgres", dsn,
//	    querylog.WithDBSystem("postgresql"),
//	    querylog.WithLogStatements(querylog.LevelInfo),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	var users []User
//	err = db.SelectContext(ctx, &users, "SELECT id, name FROM users WHERE active = $1", true)
//
// The returned value is a plain *sqlx.DB. Instrumentation lives in the
// driver, so sqlx methods need no wrappers of their own.
package sqlx
