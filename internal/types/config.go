package types

type RunMode string

const (
	// ModeLocal runs the API server together with the audit consumer and notifier fan-out
	ModeLocal RunMode = "local"
	// ModeAPI runs the API server and the notifier fan-out
	ModeAPI RunMode = "api"
	// ModeConsumer runs only the audit consumer, used with the kafka pubsub driver
	ModeConsumer RunMode = "consumer"
	// ModeAWSLambdaAPI serves the API from AWS Lambda
	ModeAWSLambdaAPI RunMode = "aws_lambda_api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type PubSubDriver string

const (
	PubSubDriverMemory PubSubDriver = "memory"
	PubSubDriverKafka  PubSubDriver = "kafka"
)
