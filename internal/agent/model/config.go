package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	CompactThreshold int    `envconfig:"CONVERSATION_COMPACT_THRESHOLD" default:"6"`
	RetainTurns      int    `envconfig:"CONVERSATION_RETAIN_TURNS" default:"2"`
	Persona          string `envconfig:"CONVERSATION_PERSONA"`
}

type LLMConfig struct {
	Provider string        `envconfig:"LLM_PROVIDER" default:"openai"`
	APIKey   string        `envconfig:"OPENAI_API_KEY" required:"true"`
	BaseURL  string        `envconfig:"OPENAI_API_BASE" default:"https://openrouter.ai/api/v1"`
	Timeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"openai/gpt-4o"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"0"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.3"`
}

type SummaryModelConfig struct {
	// Model falls back to the response model when empty.
	Model       string  `envconfig:"SUMMARY_MODEL"`
	Temperature float32 `envconfig:"SUMMARY_TEMPERATURE" default:"0.3"`
	TurnCap     int     `envconfig:"SUMMARY_TURN_CAP" default:"500"`
}

type DocumentConfig struct {
	MaxChars  int    `envconfig:"DOCUMENT_MAX_CHARS" default:"3000"`
	UploadDir string `envconfig:"DOCUMENT_UPLOAD_DIR"`
}

type ReplyConfig struct {
	ChunkSize int `envconfig:"REPLY_CHUNK_SIZE" default:"4096"`
}

type AuditLogConfig struct {
	Sink     string        `envconfig:"AUDIT_LOG_SINK" default:"file"`
	Dir      string        `envconfig:"AUDIT_LOG_DIR" default:"logs"`
	FieldCap int           `envconfig:"AUDIT_LOG_FIELD_CAP" default:"1000"`
	TTL      time.Duration `envconfig:"AUDIT_LOG_TTL" default:"0s"`
}

type TelegramConfig struct {
	Token       string `envconfig:"TELEGRAM_TOKEN" required:"true"`
	APIBase     string `envconfig:"TELEGRAM_API_BASE" default:"https://api.telegram.org"`
	PollTimeout int    `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"30"`
	MaxWorkers  int    `envconfig:"TELEGRAM_MAX_WORKERS" default:"16"`
}
