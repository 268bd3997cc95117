package adapters

import (
	"context"
	"net/http"
	"testing"

	"doujin-resolver/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoothAdapter_ParseProduct(t *testing.T) {
	adapter := NewBoothAdapter(nil, testConfig(), testLogger())

	record := adapter.ParseProduct(boothProductPage, mustDoc(t, boothProductPage))

	assert.Equal(t, "夏の思い出", record.Title)
	assert.Equal(t, "サークルA", record.Circle)
	assert.Equal(t, "作家B", record.Author)
	assert.Equal(t, "2025年3月5", record.ReleaseDate)
	assert.Equal(t, "C105", record.EventName)
}

func TestBoothAdapter_ParseProduct_EventCode(t *testing.T) {
	page := `<html><head><meta property="og:title" content="夏の思い出 - BOOTH"></head><body>
<script>window.tags = [{"name":"event","value":"c104"}]</script>
</body></html>`
	adapter := NewBoothAdapter(nil, testConfig(), testLogger())

	record := adapter.ParseProduct(page, mustDoc(t, page))

	assert.Equal(t, "夏の思い出", record.Title)
	assert.Empty(t, record.Circle)
	assert.Equal(t, "C104", record.EventName)
}

func TestSplitBoothOGTitle(t *testing.T) {
	title, shop := splitBoothOGTitle("作品 - ショップ - BOOTH")
	assert.Equal(t, "作品", title)
	assert.Equal(t, "ショップ", shop)

	title, shop = splitBoothOGTitle("作品 - BOOTH")
	assert.Equal(t, "作品", title)
	assert.Empty(t, shop)

	title, shop = splitBoothOGTitle("作品 - ショップ")
	assert.Equal(t, "作品", title)
	assert.Equal(t, "ショップ", shop)
}

func TestBoothAdapter_SearchThroughGate(t *testing.T) {
	router := testutil.NewHostRouter()
	router.HandleFunc("booth.pm", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("adult"); err != nil {
			testutil.HTML(w, boothGatePage)
			return
		}
		testutil.HTML(w, `<html><body>
<a href="/ja/items/999" data-tracking="click_item">冬の物語</a>
<a href="/ja/items/12345" data-tracking="click_item" data-product-name="夏の思い出">cover</a>
</body></html>`)
	})
	adapter := NewBoothAdapter(testSession(t, router), testConfig(), testLogger())

	link, err := adapter.Search(context.Background(), "夏の思い出")

	require.NoError(t, err)
	assert.Equal(t, "https://booth.pm/ja/items/12345", link)
}
