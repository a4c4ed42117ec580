package config

// EnvPrefix is applied by envconfig to every variable lookup.
const EnvPrefix = "CHATAPP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names, kept in one place so tests and deploy
// manifests reference the same strings.
const (
	EnvAppEnv   = "CHATAPP_APP_ENV"
	EnvPort     = "CHATAPP_APP_PORT"
	EnvLogLevel = "CHATAPP_LOG_LEVEL"

	EnvDBDSN  = "CHATAPP_DB_DSN"
	EnvDBHost = "CHATAPP_DB_HOST"
	EnvDBUser = "CHATAPP_DB_USER"
	EnvDBName = "CHATAPP_DB_NAME"

	EnvRedisURL = "CHATAPP_REDIS_URL"

	EnvIdentityBaseURL = "CHATAPP_IDENTITY_BASE_URL"
	EnvIdentityAPIKey  = "CHATAPP_IDENTITY_API_KEY"

	EnvGCPProjectID = "CHATAPP_GCP_PROJECT_ID"
	EnvGCSBucket    = "CHATAPP_GCS_BUCKET_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
