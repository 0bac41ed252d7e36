package config

import "path/filepath"

// 自控目录固定在 home（~/.botproxy 或 BOTPROXY_HOME）下，不提供配置覆盖。

// Home 返回根目录（ResolveHome()）。
func Home() string {
	return ResolveHome()
}

// LogsDir 返回日志目录，固定为 home/logs。
func LogsDir() string {
	return filepath.Join(Home(), "logs")
}
