package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	viper.SetDefault("state_dir", "./data")

	viper.SetDefault("server.bind", "127.0.0.1")
	viper.SetDefault("server.port", 8080)

	// Each instance serves one conversation at a time unless raised.
	viper.SetDefault("router.session_cap", 1)
	viper.SetDefault("router.inactivity_timeout", time.Hour)
	viper.SetDefault("router.sweep_interval", time.Minute)

	viper.SetDefault("archive.enabled", true)
	viper.SetDefault("archive.dsn", "")

	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.api_base", "")
	viper.SetDefault("facebook.page_access_token", "")
	viper.SetDefault("facebook.webhook_secret", "")
	viper.SetDefault("facebook.api_base", "")
}
