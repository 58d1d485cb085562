package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Fulfillment  FulfillmentConfig
	Verification VerificationConfig
	Referral     ReferralConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Referral.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WALLETLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"WALLETLEDGER_APP_PORT" default:"8081"`
	LogLevel     string `envconfig:"WALLETLEDGER_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"WALLETLEDGER_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"WALLETLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"WALLETLEDGER_SERVICE_KIND" default:"worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"WALLETLEDGER_DB_DSN"`
	Driver string `envconfig:"WALLETLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WALLETLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"WALLETLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WALLETLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"WALLETLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"WALLETLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"WALLETLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WALLETLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WALLETLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WALLETLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WALLETLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a posting waits for a wallet row lock.
	LockTimeout time.Duration `envconfig:"WALLETLEDGER_DB_LOCK_TIMEOUT" default:"5s"`
	// SlowQuery is the threshold above which gorm logs a statement at warn. Zero disables it.
	SlowQuery time.Duration `envconfig:"WALLETLEDGER_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"WALLETLEDGER_REDIS_URL"`
	Address      string        `envconfig:"WALLETLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"WALLETLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"WALLETLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WALLETLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WALLETLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WALLETLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WALLETLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WALLETLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool `envconfig:"WALLETLEDGER_AUTO_MIGRATE" default:"false"`
	FundingConsume bool `envconfig:"WALLETLEDGER_FEATURE_FUNDING_CONSUMER" default:"true"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"WALLETLEDGER_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	FundingSubscription string `envconfig:"WALLETLEDGER_PUBSUB_FUNDING_SUBSCRIPTION"`
	MaxOutstanding      int    `envconfig:"WALLETLEDGER_PUBSUB_MAX_OUTSTANDING" default:"100"`
	NumGoroutines       int    `envconfig:"WALLETLEDGER_PUBSUB_NUM_GOROUTINES" default:"1"`
	SkipAdminCheck      bool   `envconfig:"WALLETLEDGER_PUBSUB_SKIP_ADMIN_CHECK" default:"false"`
}

type FulfillmentConfig struct {
	Provider       string        `envconfig:"WALLETLEDGER_FULFILLMENT_PROVIDER" default:"mock"`
	BaseURL        string        `envconfig:"WALLETLEDGER_FULFILLMENT_BASE_URL"`
	APIKey         string        `envconfig:"WALLETLEDGER_FULFILLMENT_API_KEY"`
	Username       string        `envconfig:"WALLETLEDGER_FULFILLMENT_USERNAME"`
	Password       string        `envconfig:"WALLETLEDGER_FULFILLMENT_PASSWORD"`
	RequestTimeout time.Duration `envconfig:"WALLETLEDGER_FULFILLMENT_REQUEST_TIMEOUT" default:"30s"`
}

// ProviderName returns the normalized provider selector.
func (f FulfillmentConfig) ProviderName() string {
	name := strings.ToLower(strings.TrimSpace(f.Provider))
	if name == "" {
		return FulfillmentProviderMock
	}
	return name
}

type VerificationConfig struct {
	BaseDelay    time.Duration `envconfig:"WALLETLEDGER_VERIFY_BASE_DELAY" default:"60s"`
	MaxDelay     time.Duration `envconfig:"WALLETLEDGER_VERIFY_MAX_DELAY" default:"1h"`
	MaxAttempts  int           `envconfig:"WALLETLEDGER_VERIFY_MAX_ATTEMPTS" default:"5"`
	PollInterval time.Duration `envconfig:"WALLETLEDGER_VERIFY_POLL_INTERVAL" default:"2s"`
	BatchSize    int           `envconfig:"WALLETLEDGER_VERIFY_BATCH_SIZE" default:"50"`
}

type ReferralConfig struct {
	BonusPercent string `envconfig:"WALLETLEDGER_REFERRAL_BONUS_PERCENT" default:"1.0"`
	MinFunding   string `envconfig:"WALLETLEDGER_REFERRAL_MIN_FUND" default:"1000.00"`
}

// Percent returns the parsed bonus percent.
func (r ReferralConfig) Percent() decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(r.BonusPercent))
	if err != nil {
		return decimal.Zero
	}
	return value
}

// MinFundingAmount returns the parsed minimum funding threshold.
func (r ReferralConfig) MinFundingAmount() decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(r.MinFunding))
	if err != nil {
		return decimal.Zero
	}
	return value
}

func (r ReferralConfig) validate() error {
	if _, err := decimal.NewFromString(strings.TrimSpace(r.BonusPercent)); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvReferralBonusPercent, err)
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(r.MinFunding)); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvReferralMinFund, err)
	}
	return nil
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"WALLETLEDGER_CRON_INTERVAL" default:"15m"`
	PendingSweepAge time.Duration `envconfig:"WALLETLEDGER_CRON_PENDING_SWEEP_AGE" default:"10m"`
	ReconcilePage   int           `envconfig:"WALLETLEDGER_CRON_RECONCILE_PAGE_SIZE" default:"500"`
	JobTimeout      time.Duration `envconfig:"WALLETLEDGER_CRON_JOB_TIMEOUT" default:"5m"`
	RunOnce         bool          `envconfig:"WALLETLEDGER_CRON_RUN_ONCE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
