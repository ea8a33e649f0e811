package config

import (
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"server.host":         "0.0.0.0",
		"server.port":         5673,
		"server.idle_timeout": "0s",

		"client.host":    "localhost",
		"client.port":    5673,
		"client.timeout": "10s",

		"storage.backend":        "file",
		"storage.path":           "jobflow.json",
		"storage.redis_addr":     "localhost:6379",
		"storage.redis_password": "",
		"storage.redis_db":       0,
		"storage.redis_key":      "jobflow:snapshot",
		"storage.s3_bucket":      "",
		"storage.s3_key":         "jobflow/snapshot.json",
		"storage.s3_region":      "",

		"queue.retry_delay":  "5s",
		"queue.max_attempts": 0,
		"queue.history":      100,

		"processor.name":  "shell",
		"processor.shell": "bash",

		"api.enabled": false,
		"api.addr":    ":8673",

		"runtime.dir": ".",

		"logging.level":  "info",
		"logging.format": "pretty",
	}

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return err
		}
	}
	return nil
}
