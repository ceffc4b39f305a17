package internal

import "time"

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	Host           string `env:"HOST,required=true"`
	Port           int    `env:"PORT,required=true"`

	OfferSweepInterval    time.Duration `env:"OFFER_SWEEP_INTERVAL,required=true"`
	InviteSweepInterval   time.Duration `env:"INVITE_SWEEP_INTERVAL,required=true"`
	PaymentSweepInterval  time.Duration `env:"PAYMENT_SWEEP_INTERVAL,required=true"`
	ReminderSweepInterval time.Duration `env:"REMINDER_SWEEP_INTERVAL,required=true"`
	TelemetryInterval     time.Duration `env:"TELEMETRY_INTERVAL,required=true"`

	// AmqpURL switches notification delivery from the log to a RabbitMQ
	// topic exchange when set.
	AmqpURL *string `env:"AMQP_URL"`
}
