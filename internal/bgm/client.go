package bgm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/model"
)

// Client 社区站会话。只覆盖收藏同步需要的三个操作，
// 站点没有这部分的 JSON API，列表页只能从 HTML 里抠。
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	chiiAuth   string
	userAgent  string
	formHash   string
	log        *logrus.Entry
}

func NewClient(baseURL string, timeout time.Duration, account *model.Account) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			// 收藏操作靠 302 判断成败，不能跟随跳转
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		username:  account.FriendlyName,
		chiiAuth:  account.ChiiAuth,
		userAgent: account.UserAgent,
		formHash:  account.FormHash,
		log:       logrus.WithField("component", "bgm"),
	}
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: "chii_auth", Value: c.chiiAuth})
	req.AddCookie(&http.Cookie{Name: "chii_theme", Value: "light"})
	req.Header.Set("User-Agent", c.userAgent)
	return c.httpClient.Do(req)
}

var (
	characterLinkRe = regexp.MustCompile(`href="/character/(\d+)"`)
	pageLinkRe      = regexp.MustCompile(`class="p"[^>]*href="[^"]*page=(\d+)`)
)

// FavoriteCharacterIDs 拉取全部收藏角色 (翻完所有分页)
func (c *Client) FavoriteCharacterIDs(ctx context.Context) ([]int, error) {
	ids, pages, err := c.favoritesPage(ctx, 1)
	if err != nil {
		return nil, err
	}
	for page := 2; page <= pages; page++ {
		more, _, err := c.favoritesPage(ctx, page)
		if err != nil {
			return nil, err
		}
		ids = append(ids, more...)
	}
	return ids, nil
}

func (c *Client) favoritesPage(ctx context.Context, page int) ([]int, int, error) {
	path := fmt.Sprintf("/user/%s/mono/character", c.username)
	if page > 1 {
		path += fmt.Sprintf("?page=%d", page)
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("favorites page %d: status %d", page, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return cropMono(string(body))
}

// cropMono 从列表页里抠角色 ID 和总页数。
// 只看 columnA 区块，页面侧栏也有角色链接不能算进去。
func cropMono(html string) ([]int, int, error) {
	if i := strings.Index(html, `id="columnA"`); i >= 0 {
		html = html[i:]
	}
	if i := strings.Index(html, `id="columnB"`); i >= 0 {
		html = html[:i]
	}

	var ids []int
	seen := make(map[int]bool)
	for _, m := range characterLinkRe.FindAllStringSubmatch(html, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	pages := 1
	for _, m := range pageLinkRe.FindAllStringSubmatch(html, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > pages {
			pages = n
		}
	}
	return ids, pages, nil
}

// Collect 收藏一个角色。成功的标志是 302 跳回角色页。
func (c *Client) Collect(ctx context.Context, characterID int) error {
	return c.collectAction(ctx, characterID, "collect")
}

// EraseCollect 取消收藏
func (c *Client) EraseCollect(ctx context.Context, characterID int) error {
	return c.collectAction(ctx, characterID, "erase_collect")
}

func (c *Client) collectAction(ctx context.Context, characterID int, action string) error {
	path := fmt.Sprintf("/character/%d/%s?gh=%s", characterID, action, c.formHash)
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	location := resp.Header.Get("Location")
	if resp.StatusCode != http.StatusFound || !strings.HasPrefix(location, "/character/") {
		return fmt.Errorf("%s character %d: status %d location %q", action, characterID, resp.StatusCode, location)
	}
	return nil
}
