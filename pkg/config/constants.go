package config

// EnvPrefix scopes every environment key read by Load.
const EnvPrefix = "WALLETLEDGER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:walletledger.db?_busy_timeout=5000"

	FulfillmentProviderMock   = "mock"
	FulfillmentProviderVTPass = "vtpass"
)

const (
	EnvAppEnv   = "WALLETLEDGER_APP_ENV"
	EnvPort     = "WALLETLEDGER_APP_PORT"
	EnvLogLevel = "WALLETLEDGER_LOG_LEVEL"

	EnvDBDSN         = "WALLETLEDGER_DB_DSN"
	EnvDBDriver      = "WALLETLEDGER_DB_DRIVER"
	EnvDBHost        = "WALLETLEDGER_DB_HOST"
	EnvDBUser        = "WALLETLEDGER_DB_USER"
	EnvDBName        = "WALLETLEDGER_DB_NAME"
	EnvDBLockTimeout = "WALLETLEDGER_DB_LOCK_TIMEOUT"

	EnvRedisURL = "WALLETLEDGER_REDIS_URL"

	EnvGCPProjectID             = "WALLETLEDGER_GCP_PROJECT_ID"
	EnvPubSubFundingSubscription = "WALLETLEDGER_PUBSUB_FUNDING_SUBSCRIPTION"

	EnvFulfillmentProvider = "WALLETLEDGER_FULFILLMENT_PROVIDER"
	EnvFulfillmentBaseURL  = "WALLETLEDGER_FULFILLMENT_BASE_URL"

	EnvVerifyBaseDelay   = "WALLETLEDGER_VERIFY_BASE_DELAY"
	EnvVerifyMaxAttempts = "WALLETLEDGER_VERIFY_MAX_ATTEMPTS"

	EnvReferralBonusPercent = "WALLETLEDGER_REFERRAL_BONUS_PERCENT"
	EnvReferralMinFund      = "WALLETLEDGER_REFERRAL_MIN_FUND"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
