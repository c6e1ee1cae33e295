package config

// Defaults returns the baseline configuration. Secret-bearing fields hold
// ${VAR} placeholders so the generated config file documents which
// environment variables feed them; unresolved placeholders are blanked at
// load time.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			Grammar:               "simple",
			DefaultProvider:       "groq",
			RequestTimeoutSeconds: 30,
		},
		Providers: map[string]ProviderConfig{
			"groq": {
				Enabled:     true,
				APIKey:      "${GROQ_API_KEY}",
				Model:       "llama-3.1-8b-instant",
				MaxTokens:   500,
				Temperature: 0.7,
			},
			"gemini": {
				Enabled: false,
				APIKey:  "${GEMINI_API_KEY}",
				Model:   "gemini-1.5-flash",
			},
			"claude": {
				Enabled:   false,
				APIKey:    "${ANTHROPIC_API_KEY}",
				Model:     "claude-3-5-haiku-20241022",
				MaxTokens: 500,
			},
		},
		Channels: ChannelsConfig{
			Line: LineConfig{
				Port:          8080,
				Path:          "/webhook",
				ChannelSecret: "${LINE_CHANNEL_SECRET}",
				ChannelToken:  "${LINE_CHANNEL_ACCESS_TOKEN}",
			},
			Telegram: TelegramConfig{
				Enabled:     false,
				Token:       "${TELEGRAM_BOT_TOKEN}",
				WebhookPath: "/webhook/telegram",
			},
		},
		Sink: SinkConfig{
			URL:            "${GAS_URL}",
			Action:         "record",
			TimeoutSeconds: 10,
		},
		Journal: JournalConfig{
			Enabled: false,
			DBPath:  "~/.kakeibot/journal.db",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
