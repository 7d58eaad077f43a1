package auth

import "time"

// Principal 是通过认证的调用方身份，由认证步骤构造一次后显式传递。
type Principal struct {
	ID        uint
	Username  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Valid 报告该身份在 now 时刻是否可用。
func (p *Principal) Valid(now time.Time) bool {
	if p == nil || p.ID == 0 {
		return false
	}
	return now.Before(p.ExpiresAt)
}
