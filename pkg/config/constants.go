package config

const (
	// EnvPrefix is passed to envconfig; individual fields carry explicit names.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CASESYNC_DB_DSN"
	EnvDBHost = "CASESYNC_DB_HOST"
	EnvDBUser = "CASESYNC_DB_USER"
	EnvDBName = "CASESYNC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
