package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/config"
	"grailtrade.com/internal/domain"
)

// 交易所的会话 cookie 名。服务端会不定期在响应里轮换它。
const identityCookie = ".AspNetCore.Identity.Application"

// Client 封装对交易所 API 的全部出站请求。
// 所有调用同步阻塞，固定超时；身份轮换通过回调上抛给持久层。
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string

	identity          string
	onIdentityRefresh []func(identity string)

	log *logrus.Entry
}

// NewClient creates a client bound to one account identity.
func NewClient(cfg config.ExchangeConfig, identity string) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "grailtrade/1.0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		userAgent:  ua,
		identity:   identity,
		log:        logrus.WithField("component", "exchange"),
	}
}

// OnIdentityRefresh 注册身份轮换回调 (用于把新身份落库)
func (c *Client) OnIdentityRefresh(fn func(identity string)) {
	c.onIdentityRefresh = append(c.onIdentityRefresh, fn)
}

// Identity returns the current session identity.
func (c *Client) Identity() string {
	return c.identity
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// doJSON 发送请求并解包 State/Value 信封：
//   - 5xx            → ServiceUnavailableError
//   - 报文不成结构    → ResponseMismatchError (保留原始报文)
//   - State != 0     → ServerRejectedError
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	} else if method == http.MethodPost {
		reqBody = strings.NewReader("null")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: identityCookie, Value: c.identity})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 && resp.StatusCode < 600 {
		return &domain.ServiceUnavailableError{Target: path, Status: resp.StatusCode}
	}

	c.rotateIdentity(resp)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope struct {
		State   *int   `json:"State"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.State == nil {
		return &domain.ResponseMismatchError{Target: path, Raw: raw, Err: err}
	}
	if *envelope.State != 0 {
		return &domain.ServerRejectedError{State: *envelope.State, Message: envelope.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.ResponseMismatchError{Target: path, Raw: raw, Err: err}
	}
	if v, ok := out.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return &domain.ResponseMismatchError{Target: path, Raw: raw, Err: err}
		}
	}
	return nil
}

func (c *Client) rotateIdentity(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name == identityCookie && ck.Value != "" && ck.Value != c.identity {
			c.identity = ck.Value
			c.log.Info("session identity rotated by server")
			for _, fn := range c.onIdentityRefresh {
				fn(ck.Value)
			}
			return
		}
	}
}
