package config

type ServiceConfig struct {
	Name        string       `yaml:"name" validate:"required"`
	Environment string       `yaml:"environment"`
	Version     string       `yaml:"version"`
	Stripe      StripeConfig `yaml:"stripe"`
	Toss        TossConfig   `yaml:"toss"`
	Ops         OpsConfig    `yaml:"ops"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type TossConfig struct {
	SecretKey     string `yaml:"secret_key"`
	ClientKey     string `yaml:"client_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// OpsConfig guards the internal read API.
type OpsConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}
