package bgm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grailtrade.com/internal/model"
)

func testAccount() *model.Account {
	return &model.Account{
		FriendlyName: "tester",
		ChiiAuth:     "secret-auth",
		UserAgent:    "grailtrade/1.0",
		FormHash:     "abcd1234",
	}
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, 5*time.Second, testAccount())
}

const monoPageOne = `<html><body>
<div id="columnA">
  <div class="page_inner">
    <a class="p" href="/user/tester/mono/character?page=2">2</a>
  </div>
  <li class="clearit"><a class="l" href="/character/101">A</a></li>
  <li class="clearit"><a class="l" href="/character/202">B</a></li>
</div>
<div id="columnB">
  <a class="l" href="/character/999">sidebar noise</a>
</div>
</body></html>`

const monoPageTwo = `<html><body>
<div id="columnA">
  <li class="clearit"><a class="l" href="/character/303">C</a></li>
</div>
</body></html>`

func TestFavoriteCharacterIDsPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/tester/mono/character", r.URL.Path)
		cookie, err := r.Cookie("chii_auth")
		require.NoError(t, err)
		assert.Equal(t, "secret-auth", cookie.Value)

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, monoPageTwo)
			return
		}
		fmt.Fprint(w, monoPageOne)
	}))
	defer srv.Close()

	ids, err := newTestClient(srv).FavoriteCharacterIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{101, 202, 303}, ids)
}

func TestCollectFollowsRedirectContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/character/101/collect":
			assert.Equal(t, "abcd1234", r.URL.Query().Get("gh"))
			w.Header().Set("Location", "/character/101")
			w.WriteHeader(http.StatusFound)
		case "/character/102/collect":
			// 没带有效 formhash 时站点跳去首页
			w.Header().Set("Location", "/")
			w.WriteHeader(http.StatusFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	assert.NoError(t, c.Collect(context.Background(), 101))
	assert.Error(t, c.Collect(context.Background(), 102))
}

type fakeAskLister struct {
	ids []int
}

func (f *fakeAskLister) AskingCharacterIDs(ctx context.Context) ([]int, error) {
	return f.ids, nil
}

func TestSyncCollectsAndErases(t *testing.T) {
	var collected, erased []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/user/tester/mono/character":
			// 收藏了 202 和 303
			fmt.Fprint(w, `<div id="columnA">
				<li class="clearit"><a class="l" href="/character/202">B</a></li>
				<li class="clearit"><a class="l" href="/character/303">C</a></li>
			</div>`)
		case r.URL.Path == "/character/101/collect":
			collected = append(collected, r.URL.Path)
			w.Header().Set("Location", "/character/101")
			w.WriteHeader(http.StatusFound)
		case r.URL.Path == "/character/303/erase_collect":
			erased = append(erased, r.URL.Path)
			w.Header().Set("Location", "/character/303")
			w.WriteHeader(http.StatusFound)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	// 在卖 101 和 202
	syncer := NewSyncer(&fakeAskLister{ids: []int{101, 202}}, newTestClient(srv))
	require.NoError(t, syncer.Sync(context.Background()))

	assert.Equal(t, []string{"/character/101/collect"}, collected)
	assert.Equal(t, []string{"/character/303/erase_collect"}, erased)
}
