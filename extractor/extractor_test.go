package extractor

import (
	"context"
	"net/http"
	"testing"

	"doujin-resolver/internal/testutil"
	"doujin-resolver/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractor(t *testing.T) {
	config := testConfig()
	logger := testLogger()

	extractor := NewExtractor(config, logger)
	defer extractor.Close()

	assert.NotNil(t, extractor)
	assert.Equal(t, config, extractor.config)
	assert.Equal(t, logger, extractor.logger)
	assert.NotNil(t, extractor.client)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://booth.pm/ja/items/1"))
	assert.True(t, IsURL("http://example.com"))
	assert.False(t, IsURL("夏の思い出"))
	assert.False(t, IsURL("booth.pm/ja/items/1"))
}

func TestResolve_URLSeed(t *testing.T) {
	config := testConfig()
	router := newWorld()
	extractor := newTestExtractor(t, config, router)

	row, err := extractor.Resolve(context.Background(), seedURL)

	require.NoError(t, err)
	assert.True(t, row.Resolved)
	assert.Equal(t, "夏の思い出", row.Title)
	assert.Equal(t, "サークルA", row.Circle)
	assert.Equal(t, "作家B", row.Author)
	assert.Equal(t, "2025/03/05", row.Date)
	assert.Equal(t, "C105", row.Event)
	assert.Equal(t, map[types.SiteID]string{
		types.SiteDLsite:    seedURL,
		types.SiteFanza:     fanzaURL,
		types.SiteToranoana: toranoanaURL,
	}, row.Locations)

	assert.Equal(t,
		"サークルA\t作家B\t夏の思い出\t2025/03/05\tC105\t"+
			seedURL+"\t"+fanzaURL+"\tN/A\t"+toranoanaURL+"\tN/A\t"+seedURL,
		FormatRow(row, config))

	// the seed storefront is never searched
	assert.Zero(t, router.Hits("www.dlsite.com"))
}

func TestResolve_GatedStorefrontIsNonFatal(t *testing.T) {
	router := newWorld()
	extractor := newTestExtractor(t, testConfig(), router)

	row, err := extractor.Resolve(context.Background(), seedURL)

	require.NoError(t, err)
	assert.Empty(t, row.Locations[types.SiteBooth])
	// every query variant is tried once, each with a single bypass retry
	assert.Equal(t, 2*len(QueryVariants(&types.ProductRecord{Title: "夏の思い出", Circle: "サークルA", Author: "作家B"})), router.Hits("booth.pm"))

	// gate and transport failures are reported per storefront, matches are not
	require.Contains(t, row.Failures, types.SiteBooth)
	assert.Contains(t, row.Failures[types.SiteBooth], types.ErrGateUnresolved.Error())
	require.Contains(t, row.Failures, types.SiteMelonbooks)
	assert.Contains(t, row.Failures[types.SiteMelonbooks], "503")
	assert.NotContains(t, row.Failures, types.SiteFanza)
	assert.NotContains(t, row.Failures, types.SiteToranoana)
}

func TestResultSet_Failures(t *testing.T) {
	results := newResultSet()
	assert.Nil(t, results.failures())

	results.add(types.SiteResult{Site: types.SiteDLsite, Err: types.ErrNotFound})
	results.add(types.SiteResult{Site: types.SiteFanza, Err: context.Canceled})
	results.add(types.SiteResult{Site: types.SiteBooth, Err: types.ErrGateUnresolved})
	results.fail(types.SiteMelonbooks, &types.TransportError{URL: "https://www.melonbooks.co.jp/", StatusCode: 503})

	assert.Equal(t, map[types.SiteID]string{
		types.SiteBooth:      "age gate unresolved",
		types.SiteMelonbooks: "transport: https://www.melonbooks.co.jp/: unexpected status code: 503",
	}, results.failures())
	assert.Zero(t, results.count())
}

func TestResolve_SeedFieldsFillGaps(t *testing.T) {
	router := newWorld()
	router.HandleFunc("www.dmm.co.jp", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.HandleFunc("ec.toranoana.jp", func(w http.ResponseWriter, r *http.Request) {
		testutil.HTML(w, `<html><body></body></html>`)
	})
	extractor := newTestExtractor(t, testConfig(), router)

	row, err := extractor.Resolve(context.Background(), seedURL)

	require.NoError(t, err)
	assert.Equal(t, "夏の思い出", row.Title)
	assert.Equal(t, "C105", row.Event)
	assert.Equal(t, map[types.SiteID]string{types.SiteDLsite: seedURL}, row.Locations)
}

func TestResolve_UnsupportedSeed(t *testing.T) {
	extractor := newTestExtractor(t, testConfig(), newWorld())

	row, err := extractor.Resolve(context.Background(), "https://example.com/item/1")

	assert.Nil(t, row)
	assert.ErrorIs(t, err, types.ErrUnsupportedSeed)
}

func TestResolve_SeedExtractionFails(t *testing.T) {
	router := newWorld()
	router.HandleFunc("dlsite.example", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	extractor := newTestExtractor(t, testConfig(), router)

	row, err := extractor.Resolve(context.Background(), seedURL)

	assert.Nil(t, row)
	var te *types.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
}

func TestResolve_FreeText(t *testing.T) {
	router := newWorld()
	router.HandleFunc("www.melonbooks.co.jp", func(w http.ResponseWriter, r *http.Request) {
		testutil.HTML(w, `<html><body><p>0件</p></body></html>`)
	})
	config := testConfig()
	extractor := newTestExtractor(t, config, router)

	row, err := extractor.Resolve(context.Background(), "夏の思い出")

	require.NoError(t, err)
	assert.True(t, row.Resolved)
	assert.Equal(t, "夏の思い出", row.Title)
	assert.Equal(t, "サークルA", row.Circle)
	assert.Equal(t, "2025/03/05", row.Date)
	assert.Equal(t, map[types.SiteID]string{
		types.SiteDLsite:    dlsiteURL,
		types.SiteFanza:     fanzaURL,
		types.SiteToranoana: toranoanaURL,
	}, row.Locations)
	assert.Empty(t, row.CleanedURL)

	// one search and one extraction per storefront; discovered pages are reused
	assert.Equal(t, 2, router.Hits("www.dlsite.com"))
	assert.Equal(t, 2, router.Hits("ec.toranoana.jp"))
	assert.Equal(t, 2, router.Hits("www.dmm.co.jp"))

	assert.Equal(t,
		"サークルA\t作家B\t夏の思い出\t2025/03/05\tC105\t"+
			dlsiteURL+"\t"+fanzaURL+"\tN/A\t"+toranoanaURL+"\tN/A",
		FormatRow(row, config))
}

func TestResolve_FreeTextPrimaryFallsThrough(t *testing.T) {
	router := newWorld()
	router.HandleFunc("www.dlsite.com", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/maniax/work/=/product_id/RJ000001.html" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		testutil.HTML(w, `<a href="`+dlsiteURL+`">夏の思い出</a>`)
	})
	extractor := newTestExtractor(t, testConfig(), router)

	row, err := extractor.Resolve(context.Background(), "夏の思い出")

	require.NoError(t, err)
	assert.Equal(t, "夏の思い出", row.Title)
	assert.Equal(t, "作家B", row.Author)
	assert.Equal(t, dlsiteURL, row.Locations[types.SiteDLsite])
}

func TestResolve_LastResortOnly(t *testing.T) {
	router := newWorld()
	empty := func(w http.ResponseWriter, r *http.Request) {
		testutil.HTML(w, `<html><body></body></html>`)
	}
	router.HandleFunc("www.dlsite.com", empty)
	router.HandleFunc("ec.toranoana.jp", empty)
	extractor := newTestExtractor(t, testConfig(), router)

	row, err := extractor.Resolve(context.Background(), "夏の思い出")

	require.NoError(t, err)
	assert.Equal(t, map[types.SiteID]string{types.SiteFanza: fanzaURL}, row.Locations)
	assert.Equal(t, "夏の思い出", row.Title)
	assert.Equal(t, "作家B", row.Author)
}

func TestResolve_TotalFailure(t *testing.T) {
	router := newWorld()
	empty := func(w http.ResponseWriter, r *http.Request) {
		testutil.HTML(w, `<html><body></body></html>`)
	}
	router.HandleFunc("www.dlsite.com", empty)
	router.HandleFunc("ec.toranoana.jp", empty)
	router.HandleFunc("www.dmm.co.jp", empty)
	config := testConfig()
	extractor := newTestExtractor(t, config, router)

	row, err := extractor.Resolve(context.Background(), "存在しない本")

	assert.ErrorIs(t, err, types.ErrNotFound)
	require.NotNil(t, row)
	assert.False(t, row.Resolved)
	assert.Equal(t, "\t\t存在しない本\t\t\tN/A\t\tN/A\tN/A\tN/A", FormatRow(row, config))
	assert.Equal(t, 1, router.Hits("www.dmm.co.jp"))
}

func TestResolve_EmptyInput(t *testing.T) {
	extractor := newTestExtractor(t, testConfig(), newWorld())

	_, err := extractor.Resolve(context.Background(), "   ")

	assert.Error(t, err)
}

func TestResolve_CancelledContext(t *testing.T) {
	extractor := newTestExtractor(t, testConfig(), newWorld())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extractor.Resolve(ctx, "夏の思い出")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueryVariants(t *testing.T) {
	assert.Equal(t,
		[]string{"夏の思い出", "夏の思い出 サークルA", "夏の思い出 作家B", "サークルA", "作家B"},
		QueryVariants(&types.ProductRecord{Title: "夏の思い出", Circle: "サークルA", Author: "作家B"}))

	assert.Equal(t,
		[]string{"夏の思い出", "夏の思い出 サークルA", "サークルA"},
		QueryVariants(&types.ProductRecord{Title: "夏の思い出", Circle: "サークルA", Author: "サークルA"}))

	assert.Equal(t, []string{"作家B"}, QueryVariants(&types.ProductRecord{Author: "作家B"}))
	assert.Empty(t, QueryVariants(&types.ProductRecord{}))
	assert.Nil(t, QueryVariants(nil))
}
