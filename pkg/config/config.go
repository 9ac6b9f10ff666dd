package config

import (
	"time"
)

type DB struct {
	Url string `envconfig:"URL"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	Group        string        `envconfig:"GROUP" default:"read-processor"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	BlockTime    time.Duration `envconfig:"BLOCK_TIME" default:"5s"`
}

type Bus struct {
	// Driver selects the event bus implementation: "redis" or "memory".
	Driver string `envconfig:"DRIVER" default:"redis"`
}

type Projector struct {
	// CatchUp controls whether the full event log is replayed before the
	// live subscription starts.
	CatchUp bool `envconfig:"CATCH_UP" default:"true"`
}

type Query struct {
	TransactionLimit int `envconfig:"TRANSACTION_LIMIT" default:"50"`
	EventLimit       int `envconfig:"EVENT_LIMIT" default:"100"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[ledger]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"4000"`
}

type App struct {
	Env    string `envconfig:"APP_ENV" default:"development"`
	Server *Server
	Log    *Log
	// EventStoreDB is the append-only event log (CockroachDB or Postgres).
	EventStoreDB *DB `envconfig:"EVENT_STORE_DB"`
	// ReadModelDB holds the derived projection tables.
	ReadModelDB *DB        `envconfig:"READ_MODEL_DB"`
	Redis       *Redis     `envconfig:"REDIS"`
	Bus         *Bus       `envconfig:"BUS"`
	Projector   *Projector `envconfig:"PROJECTOR"`
	Query       *Query     `envconfig:"QUERY"`
}
