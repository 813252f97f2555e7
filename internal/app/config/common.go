package config

// Config 配置主体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Location  LocationConfig  `mapstructure:"location"`
	Logstash  LogstashConfig  `mapstructure:"logstash"`
}

// ServerConfig REST 后端配置
type ServerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // 单次请求超时（秒），默认 15
}

// TransportConfig 长连接配置
type TransportConfig struct {
	URL              string `mapstructure:"url"`
	HandshakeTimeout int    `mapstructure:"handshake_timeout"`  // 鉴权握手超时（秒），默认 10
	WriteTimeout     int    `mapstructure:"write_timeout"`      // 单帧写超时（秒），默认 10
	BackoffInitialMS int    `mapstructure:"backoff_initial_ms"` // 重连退避起点（毫秒），默认 1000
	BackoffMaxMS     int    `mapstructure:"backoff_max_ms"`     // 重连退避上限（毫秒），默认 30000
}

// ChatConfig 会话同步配置
type ChatConfig struct {
	SendTimeout int `mapstructure:"send_timeout"` // pending 转 failed 的兜底超时（秒），默认 30
	TypingQuiet int `mapstructure:"typing_quiet"` // 正在输入标记的静默清除（秒），默认 5
}

// StorageConfig 本地存储配置
type StorageConfig struct {
	Path string `mapstructure:"path"` // SQLite 文件路径
}

// LocationConfig 位置上报配置
type LocationConfig struct {
	Schedule string `mapstructure:"schedule"` // cron 表达式，默认 @every 2m
}

// LogstashConfig 远程日志配置
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
}
