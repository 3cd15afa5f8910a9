package config

const (
	EnvPrefix = "TECHSTORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv           = "TECHSTORE_APP_ENV"
	EnvPort             = "TECHSTORE_APP_PORT"
	EnvCommerceBaseURL  = "TECHSTORE_COMMERCE_BASE_URL"
	EnvCommerceTimeout  = "TECHSTORE_COMMERCE_REQUEST_TIMEOUT"
	EnvPricingTaxRate   = "TECHSTORE_PRICING_TAX_RATE"
	EnvPricingThreshold = "TECHSTORE_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvPricingFlatFee   = "TECHSTORE_PRICING_FLAT_SHIPPING_FEE"
	EnvStripeSecretKey  = "TECHSTORE_STRIPE_SECRET_KEY"
	EnvStripeEnv        = "TECHSTORE_STRIPE_ENV"
	EnvCheckoutLockTTL  = "TECHSTORE_CHECKOUT_LOCK_TTL"
	EnvDBDSN            = "TECHSTORE_DB_DSN"
	EnvDBDriver         = "TECHSTORE_DB_DRIVER"
	EnvRedisURL         = "TECHSTORE_REDIS_URL"
	EnvJWTSecret        = "TECHSTORE_JWT_SECRET"
	EnvJWTIssuer        = "TECHSTORE_JWT_ISSUER"
	EnvPubSubProject    = "TECHSTORE_GCP_PROJECT_ID"
	EnvPubSubTopic      = "TECHSTORE_PUBSUB_CHECKOUT_TOPIC"
)
