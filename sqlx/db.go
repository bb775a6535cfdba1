package sqlx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sentinel-querylog/querylog"
	querysql "github.com/kroma-labs/sentinel-querylog/sql"
)

// Open opens a database connection with query logging.
// driverName is kept on the returned *sqlx.DB so bind variables follow the
// underlying driver.
//
// Example:
//
//	db, err := querysqlx.Open("postgres", dsn,
//	    querylog.WithDBSystem("postgresql"),
//	    querylog.WithDBName("mydb"),
//	)
func Open(driverName, dsn string, opts ...querylog.Option) (*sqlx.DB, error) {
	db, err := querysql.Open(driverName, dsn, opts...)
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, driverName), nil
}

// Connect opens and verifies a database connection.
// It is equivalent to Open followed by Ping.
//
// Example:
//
//	db, err := querysqlx.Connect(ctx, "postgres", dsn,
//	    querylog.WithDBSystem("postgresql"),
//	)
func Connect(ctx context.Context, driverName, dsn string, opts ...querylog.Option) (*sqlx.DB, error) {
	db, err := Open(driverName, dsn, opts...)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenDriver wraps d directly instead of looking it up by name. Use it for
// drivers that are not registered with database/sql.
//
// Example:
//
//	db, err := querysqlx.OpenDriver(pq.Driver{}, "postgres", dsn,
//	    querylog.WithDBSystem("postgresql"),
//	)
func OpenDriver(d driver.Driver, driverName, dsn string, opts ...querylog.Option) (*sqlx.DB, error) {
	dc, ok := querysql.WrapDriver(d, opts...).(driver.DriverContext)
	if !ok {
		return nil, fmt.Errorf("wrapped driver %T does not implement driver.DriverContext", d)
	}
	connector, err := dc.OpenConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connector: %w", err)
	}
	return sqlx.NewDb(sql.OpenDB(connector), driverName), nil
}

// MustConnect is like Connect but panics on error.
func MustConnect(ctx context.Context, driverName, dsn string, opts ...querylog.Option) *sqlx.DB {
	db, err := Connect(ctx, driverName, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// MustOpen is like Open but panics on error.
func MustOpen(driverName, dsn string, opts ...querylog.Option) *sqlx.DB {
	db, err := Open(driverName, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}
