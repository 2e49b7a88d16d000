package rate

import "strings"

func (l *Limiter) loginUserKey(identifier string) string {
	return l.config.Prefix + "rl:login:" + strings.ToLower(strings.TrimSpace(identifier))
}

func (l *Limiter) loginIPKey(ip string) string {
	return l.config.Prefix + "rl:login-ip:" + ip
}

func (l *Limiter) refreshKey(userID string) string {
	return l.config.Prefix + "rl:refresh:" + userID
}
