package types

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"LOGGING_FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Chain struct {
		Name        string `yaml:"name" envconfig:"CHAIN_NAME"`
		ChainId     string `yaml:"chainId" envconfig:"CHAIN_ID"`
		RpcEndpoint string `yaml:"rpcEndpoint" envconfig:"CHAIN_RPC_ENDPOINT"`
		// State-History websocket endpoint (ws:// or wss://)
		ShipEndpoint string `yaml:"shipEndpoint" envconfig:"CHAIN_SHIP_ENDPOINT"`
	} `yaml:"chain"`

	Filler struct {
		ReaderName string `yaml:"readerName" envconfig:"FILLER_READER_NAME"`
		// StartBlock 0 resumes from the last committed block + 1
		StartBlock         uint64 `yaml:"startBlock" envconfig:"FILLER_START_BLOCK"`
		StopBlock          uint64 `yaml:"stopBlock" envconfig:"FILLER_STOP_BLOCK"`
		BlockBatchSize     uint32 `yaml:"blockBatchSize" envconfig:"FILLER_BLOCK_BATCH_SIZE"`
		BlockQueueSize     uint32 `yaml:"blockQueueSize" envconfig:"FILLER_BLOCK_QUEUE_SIZE"`
		DeserializeWorkers int    `yaml:"deserializeWorkers" envconfig:"FILLER_DESERIALIZE_WORKERS"`
		BlockRetries       int    `yaml:"blockRetries" envconfig:"FILLER_BLOCK_RETRIES"`
		DeleteData         bool   `yaml:"deleteData" envconfig:"FILLER_DELETE_DATA"`

		Handlers []HandlerConfig `yaml:"handlers"`
	} `yaml:"filler"`

	Redis struct {
		Address   string `yaml:"address" envconfig:"REDIS_ADDRESS"`
		KeyPrefix string `yaml:"keyPrefix" envconfig:"REDIS_KEY_PREFIX"`
	} `yaml:"redis"`

	Database struct {
		Engine string `yaml:"engine" envconfig:"DATABASE_ENGINE"`
		Sqlite struct {
			File string `yaml:"file" envconfig:"DATABASE_SQLITE_FILE"`

			MaxOpenConns int `yaml:"maxOpenConns" envconfig:"DATABASE_SQLITE_MAX_OPEN_CONNS"`
			MaxIdleConns int `yaml:"maxIdleConns" envconfig:"DATABASE_SQLITE_MAX_IDLE_CONNS"`
		} `yaml:"sqlite"`
		Pgsql struct {
			Username string `yaml:"user" envconfig:"DATABASE_PGSQL_USERNAME"`
			Password string `yaml:"password" envconfig:"DATABASE_PGSQL_PASSWORD"`
			Name     string `yaml:"name" envconfig:"DATABASE_PGSQL_NAME"`
			Host     string `yaml:"host" envconfig:"DATABASE_PGSQL_HOST"`
			Port     string `yaml:"port" envconfig:"DATABASE_PGSQL_PORT"`

			MaxOpenConns int `yaml:"maxOpenConns" envconfig:"DATABASE_PGSQL_MAX_OPEN_CONNS"`
			MaxIdleConns int `yaml:"maxIdleConns" envconfig:"DATABASE_PGSQL_MAX_IDLE_CONNS"`
		} `yaml:"pgsql"`
		PgsqlWriter struct {
			Username string `yaml:"user" envconfig:"DATABASE_PGSQL_WRITER_USERNAME"`
			Password string `yaml:"password" envconfig:"DATABASE_PGSQL_WRITER_PASSWORD"`
			Name     string `yaml:"name" envconfig:"DATABASE_PGSQL_WRITER_NAME"`
			Host     string `yaml:"host" envconfig:"DATABASE_PGSQL_WRITER_HOST"`
			Port     string `yaml:"port" envconfig:"DATABASE_PGSQL_WRITER_PORT"`

			MaxOpenConns int `yaml:"maxOpenConns" envconfig:"DATABASE_PGSQL_WRITER_MAX_OPEN_CONNS"`
			MaxIdleConns int `yaml:"maxIdleConns" envconfig:"DATABASE_PGSQL_WRITER_MAX_IDLE_CONNS"`
		} `yaml:"pgsqlWriter"`
	} `yaml:"database"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Host    string `yaml:"host" envconfig:"METRICS_HOST"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`
}

// HandlerConfig selects a contract handler and carries its free-form argument record.
// Args are decoded into the handler's typed option struct at construction.
type HandlerConfig struct {
	Handler string                 `yaml:"handler"`
	Args    map[string]interface{} `yaml:"args"`
}

// SqliteDatabaseConfig and PgsqlDatabaseConfig mirror the inline database structs
// so the db package can take them as typed parameters.
type SqliteDatabaseConfig struct {
	File string

	MaxOpenConns int
	MaxIdleConns int
}

type PgsqlDatabaseConfig struct {
	Username string
	Password string
	Name     string
	Host     string
	Port     string

	MaxOpenConns int
	MaxIdleConns int
}
