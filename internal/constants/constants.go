package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixDedup = "sms:dedup:"
)

const (
	DefaultInputTopic = "inbound_sms"
)

const (
	DefaultMongoDBName = "kosh"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultDedupTTLSeconds = 30 * 24 * 60 * 60
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	SourceDevice = "device"
	SourceScan   = "scan"
	SourceAPI    = "api"
)
