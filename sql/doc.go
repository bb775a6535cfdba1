// Package sql provides an instrumented database/sql driver wrapper that
// logs every statement through querylog.
//
// # Features
//
//   - One event per statement, at a level picked by its duration
//   - Optional "db.query" span per statement
//   - Row counts: rows read from result sets and rows affected by Exec
//   - BEGIN, COMMIT and ROLLBACK logged like any other statement
//   - Connection pool metrics
//   - Full compatibility with database/sql interface
//
// # Quick Start
//
// Open a database connection with instrumentation:
//
//	import querysql "github.com/kroma-labs/sentinel-querylog/sql"
//
//	db, err := querysql.Open("postgres", dsn,
//	    querylog.WithDBSystem("postgresql"),
//	    querylog.WithDBName("myapp"),
//	    querylog.WithLogStatements(querylog.LevelInfo),
//	    querylog.WithLogSlowStatements(querylog.LevelWarn, 200*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	// Use like standard *sql.DB
//	rows, err := db.QueryContext(ctx, "SELECT * FROM users")
//
// # Driver Registration
//
// For more control, register a wrapped driver:
//
//	driver := querysql.WrapDriver(pq.Driver{},
//	    querylog.WithDBSystem("postgresql"),
//	)
//	sql.Register("postgres-logged", driver)
//
//	db, _ := sql.Open("postgres-logged", dsn)
//
// # Statement Lifetime
//
// Exec statements are finished when the driver returns. Query statements
// are finished when the rows are closed, so the event reports every row
// the caller read and the elapsed time includes reading them.
//
// # Observability
//
// Besides the per-statement events and spans emitted by querylog, pool
// gauges can be registered with RecordPoolMetrics:
//
//   - db.client.connections.open, idle, max, used
//   - db.client.connections.wait_count, wait_duration
package sql
