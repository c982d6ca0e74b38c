package db

import (
	"context"
	"embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/atomicore/eosio-contract-indexer/dbtypes"
	"github.com/atomicore/eosio-contract-indexer/types"
	"github.com/atomicore/eosio-contract-indexer/utils"
)

//go:embed schema/pgsql/*.sql
var EmbedPgsqlSchema embed.FS

//go:embed schema/sqlite/*.sql
var EmbedSqliteSchema embed.FS

var DbEngine dbtypes.DBEngineType
var ReaderDb *sqlx.DB
var writerDb *sqlx.DB

// the filler is single-writer; the mutex only matters for sqlite, where a
// second write transaction would fail instead of queueing
var writerMutex sync.Mutex

var logger = logrus.StandardLogger().WithField("module", "db")

const dbConnectTimeout = 15 * time.Second

func pingDb(dbConn *sqlx.DB, dataBaseName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()

	if err := dbConn.PingContext(ctx); err != nil {
		return fmt.Errorf("unable to ping %v: %w", dataBaseName, err)
	}
	return nil
}

func mustInitSqlite(config *types.SqliteDatabaseConfig) (*sqlx.DB, *sqlx.DB) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 25
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.WithFields(logrus.Fields{
		"file":  config.File,
		"conns": fmt.Sprintf("%v/%v", config.MaxIdleConns, config.MaxOpenConns),
	}).Info("initializing sqlite database")

	// busy_timeout lets the block transaction win over concurrent readers
	dbConn, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", config.File))
	if err != nil {
		utils.LogFatal(err, "error opening sqlite database", 0)
	}
	if err := pingDb(dbConn, "sqlite database"); err != nil {
		utils.LogFatal(err, "error connecting to sqlite database", 0)
	}

	dbConn.SetConnMaxIdleTime(0)
	dbConn.SetConnMaxLifetime(0)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	// sqlite serves both roles; the writer mutex serializes block transactions
	return dbConn, dbConn
}

func pgsqlDsn(config *types.PgsqlDatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&application_name=contract-indexer",
		config.Username, config.Password, config.Host, config.Port, config.Name)
}

func mustOpenPgsql(config *types.PgsqlDatabaseConfig, role string, defaultOpen int) *sqlx.DB {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = defaultOpen
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = config.MaxOpenConns / 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 1
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.WithFields(logrus.Fields{
		"role":  role,
		"host":  config.Host,
		"name":  config.Name,
		"conns": fmt.Sprintf("%v/%v", config.MaxIdleConns, config.MaxOpenConns),
	}).Info("initializing pgsql connection")

	dbConn, err := sqlx.Open("pgx", pgsqlDsn(config))
	if err != nil {
		utils.LogFatal(err, fmt.Sprintf("error opening pgsql %v database", role), 0)
	}
	if err := pingDb(dbConn, fmt.Sprintf("pgsql %v database", role)); err != nil {
		utils.LogFatal(err, fmt.Sprintf("error connecting to pgsql %v database", role), 0)
	}

	dbConn.SetConnMaxIdleTime(time.Second * 30)
	dbConn.SetConnMaxLifetime(time.Second * 60)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)
	return dbConn
}

func mustInitPgsql(writer *types.PgsqlDatabaseConfig, reader *types.PgsqlDatabaseConfig) (*sqlx.DB, *sqlx.DB) {
	// blocks are processed strictly sequentially, so the writer pool stays
	// small; readers serve the query surface and can fan out
	dbConnWriter := mustOpenPgsql(writer, "writer", 10)
	dbConnReader := mustOpenPgsql(reader, "reader", 50)
	return dbConnWriter, dbConnReader
}

func MustInitDB() {
	switch utils.Config.Database.Engine {
	case "sqlite":
		sqliteConfig := (*types.SqliteDatabaseConfig)(&utils.Config.Database.Sqlite)
		DbEngine = dbtypes.DBEngineSqlite
		writerDb, ReaderDb = mustInitSqlite(sqliteConfig)
	case "pgsql":
		readerConfig := (*types.PgsqlDatabaseConfig)(&utils.Config.Database.Pgsql)
		writerConfig := (*types.PgsqlDatabaseConfig)(&utils.Config.Database.PgsqlWriter)
		if writerConfig.Host == "" {
			writerConfig = readerConfig
		}
		DbEngine = dbtypes.DBEnginePgsql
		writerDb, ReaderDb = mustInitPgsql(writerConfig, readerConfig)
	default:
		logger.Fatalf("unknown database engine type: %s", utils.Config.Database.Engine)
	}
}

func MustCloseDB() {
	if err := writerDb.Close(); err != nil {
		logger.Errorf("error closing writer db connection: %v", err)
	}
	if ReaderDb != writerDb {
		if err := ReaderDb.Close(); err != nil {
			logger.Errorf("error closing reader db connection: %v", err)
		}
	}
}

// RunDBTransaction runs bookkeeping work (fork rollback, resync cleanup) in
// one writer transaction. Block ingestion uses ContractTx instead, which adds
// the rollback-history capture.
func RunDBTransaction(handler func(tx *sqlx.Tx) error) error {
	if DbEngine == dbtypes.DBEngineSqlite {
		writerMutex.Lock()
		defer writerMutex.Unlock()
	}

	tx, err := writerDb.Beginx()
	if err != nil {
		return fmt.Errorf("error starting db transaction: %v", err)
	}

	defer tx.Rollback()

	if err := handler(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing db transaction: %v", err)
	}

	return nil
}

// ApplyEmbeddedDbSchema applies the embedded goose migrations for the active
// engine. version -2 migrates to the latest, -1 applies exactly one step and
// any other value migrates up to that version.
func ApplyEmbeddedDbSchema(version int64) error {
	var engineDialect string
	var schemaDirectory string
	switch DbEngine {
	case dbtypes.DBEnginePgsql:
		goose.SetBaseFS(EmbedPgsqlSchema)
		engineDialect = "postgres"
		schemaDirectory = "schema/pgsql"
	case dbtypes.DBEngineSqlite:
		goose.SetBaseFS(EmbedSqliteSchema)
		engineDialect = "sqlite3"
		schemaDirectory = "schema/sqlite"
	default:
		logger.Fatalf("unknown database engine")
	}
	if err := goose.SetDialect(engineDialect); err != nil {
		return err
	}

	logger.WithField("dialect", engineDialect).Info("applying database schema")

	var err error
	switch version {
	case -2:
		err = goose.Up(writerDb.DB, schemaDirectory, goose.WithAllowMissing())
	case -1:
		err = goose.UpByOne(writerDb.DB, schemaDirectory, goose.WithAllowMissing())
	default:
		err = goose.UpTo(writerDb.DB, schemaDirectory, version, goose.WithAllowMissing())
	}
	if err != nil {
		return err
	}

	dbVersion, err := goose.GetDBVersion(writerDb.DB)
	if err != nil {
		return err
	}
	logger.WithField("version", dbVersion).Info("database schema is up to date")

	return nil
}

func EngineQuery(queryMap map[dbtypes.DBEngineType]string) string {
	if queryMap[DbEngine] != "" {
		return queryMap[DbEngine]
	}
	return queryMap[dbtypes.DBEngineAny]
}
