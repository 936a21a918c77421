package integration

import (
	"kosh/internal/config"
	"kosh/internal/constants"
	"kosh/internal/logger"
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestDedupConfig() config.DedupConfig {
	return config.DedupConfig{
		TTLSeconds:   3600,
		OnRedisError: constants.FallbackAllow,
	}
}

func createTestIngestConfig() config.IngestConfig {
	return config.IngestConfig{
		LookbackDays: 30,
		Dedup:        createTestDedupConfig(),
	}
}
