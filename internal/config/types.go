package config

import "time"

type Config struct {
	Gateway   GatewayConfig    `yaml:"gateway" json:"gateway"`
	Proxy     ProxyConfig      `yaml:"proxy" json:"proxy"`
	Schedules []ScheduleConfig `yaml:"schedules" json:"schedules"`
}

type GatewayConfig struct {
	Port    int        `yaml:"port" json:"port"`
	Auth    AuthConfig `yaml:"auth" json:"auth"`
	Channel string     `yaml:"channel" json:"channel"` // 承载群消息的 bridge 通道名，如 qq
}

type AuthConfig struct {
	Token string `yaml:"token" json:"token"`
}

// ProxyConfig configures the cross-bot relay.
type ProxyConfig struct {
	RatePerMinute int           `yaml:"ratePerMinute" json:"ratePerMinute"`
	Timeout       int           `yaml:"timeout" json:"timeout"` // 秒
	Actions       []string      `yaml:"actions" json:"actions"` // bot_id;groups;command;return_mode;desc
	Message       MessageConfig `yaml:"message" json:"message"`
	DedupTTL      int           `yaml:"dedupTTL" json:"dedupTTL"` // 秒
}

type MessageConfig struct {
	TimeoutMessage     string `yaml:"timeoutMessage" json:"timeoutMessage"`
	UnreachableMessage string `yaml:"unreachableMessage" json:"unreachableMessage"`
}

// TimeoutDuration returns the per-request timeout as a duration.
func (p ProxyConfig) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

func (p ProxyConfig) DedupWindow() time.Duration {
	return time.Duration(p.DedupTTL) * time.Second
}

// ScheduleConfig is a cron-triggered capability invocation.
type ScheduleConfig struct {
	Name        string `yaml:"name" json:"name"`
	Schedule    string `yaml:"schedule" json:"schedule"` // cron expression, seconds field optional
	Desc        string `yaml:"desc" json:"desc"`
	SourceGroup int64  `yaml:"sourceGroup" json:"sourceGroup"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
}

const (
	DefaultPort               = 19810
	DefaultChannel            = "qq"
	DefaultRatePerMinute      = 5
	DefaultTimeout            = 30
	DefaultTimeoutMessage     = "请求超时"
	DefaultUnreachableMessage = "不可达"
	DefaultDedupTTL           = 300
)

func DefaultConfig() *Config {
	cfg := &Config{}
	applyLoadDefaults(cfg)
	return cfg
}
