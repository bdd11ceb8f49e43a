package refresh

import (
	"context"
	"fmt"
	"time"

	"grailtrade.com/internal/domain"
)

// Token 是一片远端缓存状态的名字，各自有独立的新鲜度记录
type Token = string

// Refresher 负责拉取远端数据并填充本地缓存。
// 一个 Refresher 可以服务多个 Token：一次网络请求填充多个字段。
type Refresher func(ctx context.Context) error

type refresherEntry struct {
	fn     Refresher
	tokens []Token
}

// Matrix 按 Token 做节流的缓存刷新矩阵。
// 读取方声明需要哪些 Token 新鲜，矩阵决定要不要真的发请求：
// 同组 Token 共享一次刷新，避免同一响应被重复拉取。
//
// 非并发安全，调用方保证单线程使用。
type Matrix struct {
	tokens          map[Token]struct{}
	lastRefresh     map[Token]time.Time
	intervals       map[Token]time.Duration
	defaultInterval time.Duration
	entries         []*refresherEntry

	now func() time.Time
}

// NewMatrix 创建矩阵并声明全部合法 Token
func NewMatrix(defaultInterval time.Duration, tokens ...Token) *Matrix {
	m := &Matrix{
		tokens:          make(map[Token]struct{}, len(tokens)),
		lastRefresh:     make(map[Token]time.Time),
		intervals:       make(map[Token]time.Duration),
		defaultInterval: defaultInterval,
		now:             time.Now,
	}
	for _, t := range tokens {
		m.tokens[t] = struct{}{}
	}
	return m
}

// MoreTokens 追加合法 Token
func (m *Matrix) MoreTokens(tokens ...Token) {
	for _, t := range tokens {
		m.tokens[t] = struct{}{}
	}
}

// SetInterval 覆盖单个 Token 的刷新间隔
func (m *Matrix) SetInterval(token Token, interval time.Duration) {
	m.intervals[token] = interval
}

// Register 把一个刷新函数与它填充的所有 Token 绑定。
// Token 必须已声明，否则返回 ErrUnregisteredToken。
func (m *Matrix) Register(fn Refresher, tokens ...Token) error {
	for _, t := range tokens {
		if _, ok := m.tokens[t]; !ok {
			return fmt.Errorf("token %q: %w", t, domain.ErrUnregisteredToken)
		}
	}
	m.entries = append(m.entries, &refresherEntry{fn: fn, tokens: tokens})
	return nil
}

// Refresh 确保每个请求到的 Token 足够新鲜。
// 过期的 Token 触发其刷新函数，之后该函数服务的所有 Token
// 一并盖上新鲜戳 —— 不只是被请求的那个。
func (m *Matrix) Refresh(ctx context.Context, tokens ...Token) error {
	for _, token := range tokens {
		if _, ok := m.tokens[token]; !ok {
			return fmt.Errorf("token %q: %w", token, domain.ErrUnregisteredToken)
		}
		last, refreshed := m.lastRefresh[token]
		if refreshed && m.now().Sub(last) <= m.interval(token) {
			continue
		}
		entry := m.entryFor(token)
		if entry == nil {
			return fmt.Errorf("token %q: %w", token, domain.ErrNoRefresherAvailable)
		}
		if err := entry.fn(ctx); err != nil {
			return err
		}
		stamp := m.now()
		for _, t := range entry.tokens {
			m.lastRefresh[t] = stamp
		}
	}
	return nil
}

// Invalidate 强制清除新鲜度，下次 Refresh 必然重新拉取
func (m *Matrix) Invalidate(tokens ...Token) {
	for _, t := range tokens {
		delete(m.lastRefresh, t)
	}
}

// InvalidateAll 清除全部新鲜度
func (m *Matrix) InvalidateAll() {
	m.lastRefresh = make(map[Token]time.Time)
}

func (m *Matrix) interval(token Token) time.Duration {
	if d, ok := m.intervals[token]; ok {
		return d
	}
	return m.defaultInterval
}

// 同一 Token 注册了多个刷新函数时，任选其一即具代表性，取第一个
func (m *Matrix) entryFor(token Token) *refresherEntry {
	for _, e := range m.entries {
		for _, t := range e.tokens {
			if t == token {
				return e
			}
		}
	}
	return nil
}
