package model

import "gorm.io/gorm"

// Account 一个自动交易账号：交易所身份凭证 + 社区站登录凭证
type Account struct {
	gorm.Model
	FriendlyName string `gorm:"uniqueIndex;size:64;not null" json:"friendly_name"`
	UID          int    `gorm:"not null" json:"uid"`

	// Identity 交易所的会话 cookie。服务端可能在响应中轮换它，
	// 轮换后的新值必须落库，否则下次启动登录失效。
	Identity string `gorm:"size:1000;not null" json:"-"`

	// 社区站 (收藏同步) 凭证
	ChiiAuth  string `gorm:"size:128;not null" json:"-"`
	UserAgent string `gorm:"size:128;not null" json:"user_agent"`
	FormHash  string `gorm:"size:16" json:"-"`
}
