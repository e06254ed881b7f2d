package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port                          string   `mapstructure:"PORT"`
	DatabasePath                  string   `mapstructure:"DATABASE_PATH"`
	DiscordClientID               string   `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string   `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string   `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string   `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string   `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string   `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	ApproverDiscordRoleID         string   `mapstructure:"APPROVER_DISCORD_ROLE_ID"`
	SuperAdminDiscordIDs          []string `mapstructure:"SUPER_ADMIN_DISCORD_IDS"`
	JWTSecret                     string   `mapstructure:"JWT_SECRET"`
	FrontendURL                   string   `mapstructure:"FRONTEND_URL"`
	AuditQueueSize                int      `mapstructure:"AUDIT_QUEUE_SIZE"`
	StatusChangeMaxAttempts       int      `mapstructure:"STATUS_CHANGE_MAX_ATTEMPTS"`
	LogLevel                      string   `mapstructure:"LOG_LEVEL"`
	LogFormat                     string   `mapstructure:"LOG_FORMAT"`
}

// LoadConfig reads the environment (and an optional .env file named by
// ENV_FILE) into a Config.
func LoadConfig() *Config {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_PATH", "vegfest.db")
	v.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	v.SetDefault("FRONTEND_URL", "http://127.0.0.1:4000/dashboard")
	v.SetDefault("AUDIT_QUEUE_SIZE", 256)
	v.SetDefault("STATUS_CHANGE_MAX_ATTEMPTS", 3)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("SUPER_ADMIN_DISCORD_IDS", []string{})

	v.BindEnv("ENV_FILE")
	if envFile := v.GetString("ENV_FILE"); envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			log.Printf("Could not read env file %s: %v", envFile, err)
		}
	}

	for _, key := range []string{
		"DATABASE_PATH",
		"DISCORD_CLIENT_ID",
		"DISCORD_CLIENT_SECRET",
		"DISCORD_GUILD_ID",
		"DISCORD_BOT_TOKEN",
		"DISCORD_NOTIFICATIONS_CHANNEL_ID",
		"APPROVER_DISCORD_ROLE_ID",
		"SUPER_ADMIN_DISCORD_IDS",
		"JWT_SECRET",
		"FRONTEND_URL",
		"AUDIT_QUEUE_SIZE",
		"STATUS_CHANGE_MAX_ATTEMPTS",
		"LOG_LEVEL",
		"LOG_FORMAT",
	} {
		v.BindEnv(key)
	}

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}

// IsSuperAdmin reports whether the Discord account is listed in SUPER_ADMIN_DISCORD_IDS.
func (c *Config) IsSuperAdmin(discordID string) bool {
	if discordID == "" {
		return false
	}
	for _, id := range c.SuperAdminDiscordIDs {
		if id == discordID {
			return true
		}
	}
	return false
}
