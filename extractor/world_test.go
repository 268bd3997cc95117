package extractor

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"doujin-resolver/internal/testutil"
	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/sirupsen/logrus"
)

const (
	seedURL      = "https://dlsite.example/product/RJ000001"
	dlsiteURL    = "https://www.dlsite.com/maniax/work/=/product_id/RJ000001.html"
	fanzaURL     = "https://www.dmm.co.jp/dc/doujin/-/detail/=/cid=d_000001/"
	toranoanaURL = "https://ec.toranoana.jp/tora_r/ec/item/040030000001/"
)

const dlsitePage = `<html><body>
<h1 itemprop="name" id="work_name">夏の思い出</h1>
<span itemprop="brand" class="maker_name"><a href="#">サークルA</a></span>
<table>
<tr><th>販売日</th><td>2025年03月05日</td></tr>
<tr><th>作者</th><td><a href="#">作家B</a></td></tr>
</table>
<span class="icon_EVT"><a href="#">コミックマーケット105</a></span>
</body></html>`

const fanzaPage = `<html><head>
<title>サークルA（夏の思い出） - FANZA同人</title>
<script type="application/ld+json">{"name":"夏の思い出","datePublished":"2025-03-05","author":{"name":"作家B"}}</script>
</head><body><a class="circleName__txt" href="#">サークルA</a></body></html>`

const toranoanaPage = `<html><head>
<title>夏の思い出 [サークルA(作家B)] 同人誌 | とらのあな</title>
</head><body><table>
<tr><td>発行日</td><td>2025/03/05</td></tr>
</table></body></html>`

const boothGate = `<html><body><p>年齢確認</p><a class="js-approve-adult">はい</a></body></html>`

func testConfig() *types.Config {
	config := types.DefaultConfig()
	config.RequestDelay = 0
	return config
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newWorld serves every storefront: DLsite, FANZA and Toranoana know the work,
// Melonbooks is down and Booth never lets the client past its age gate.
func newWorld() *testutil.HostRouter {
	router := testutil.NewHostRouter()

	router.HandleFunc("dlsite.example", func(w http.ResponseWriter, r *http.Request) {
		testutil.HTML(w, dlsitePage)
	})
	router.HandleFunc("www.dlsite.com", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/fsr/") {
			testutil.HTML(w, `<a href="`+dlsiteURL+`">夏の思い出</a>`)
			return
		}
		testutil.HTML(w, dlsitePage)
	})
	router.HandleFunc("www.dmm.co.jp", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/list/") {
			testutil.HTML(w, `<a href="/dc/doujin/-/detail/=/cid=d_000001/">夏の思い出</a>`)
			return
		}
		testutil.HTML(w, fanzaPage)
	})
	router.HandleFunc("ec.toranoana.jp", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/catalog/") {
			testutil.HTML(w, `<a href="/tora_r/ec/item/040030000001/">夏の思い出</a>`)
			return
		}
		testutil.HTML(w, toranoanaPage)
	})
	router.HandleFunc("www.melonbooks.co.jp", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	router.HandleFunc("booth.pm", func(w http.ResponseWriter, r *http.Request) {
		testutil.HTML(w, boothGate)
	})
	return router
}

func newTestExtractor(t *testing.T, config *types.Config, router *testutil.HostRouter) *Extractor {
	t.Helper()
	e := NewExtractor(config, testLogger(), utils.WithTransport(router))
	t.Cleanup(e.Close)
	return e
}
