package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func shiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestDecodeHTML_UTF8(t *testing.T) {
	body := []byte("<html><title>同人誌タイトル</title></html>")

	assert.Equal(t, string(body), DecodeHTML(body, "text/html; charset=utf-8"))
}

func TestDecodeHTML_MislabeledShiftJIS(t *testing.T) {
	page := "<html><head><title>サークル名の新刊 - FANZA同人</title></head><body>配信開始日：2025年12月28日 発売中の作品です</body></html>"
	body := shiftJIS(t, page)

	assert.Equal(t, page, DecodeHTML(body, "text/html; charset=utf-8"))
}

func TestDecodeHTML_DeclaredShiftJIS(t *testing.T) {
	page := "<html><body>メロンブックス</body></html>"
	body := shiftJIS(t, page)

	assert.Equal(t, page, DecodeHTML(body, "text/html; charset=Shift_JIS"))
}

func TestDecodeHTML_MetaCharset(t *testing.T) {
	page := `<html><head><meta charset="shift_jis"></head><body>とらのあな</body></html>`
	body := shiftJIS(t, page)

	assert.Equal(t, page, DecodeHTML(body, "text/html"))
}

func TestDecodeFragment(t *testing.T) {
	assert.Equal(t, "作品名", DecodeFragment([]byte("作品名")))
	assert.Equal(t, "作品名", DecodeFragment(shiftJIS(t, "作品名")))
}

func TestLooksGarbled(t *testing.T) {
	assert.False(t, LooksGarbled("plain ascii"))
	assert.False(t, LooksGarbled(""))
	assert.True(t, LooksGarbled("a\uFFFDb\uFFFDc\uFFFDd"))
	assert.True(t, LooksGarbled("日本語"))
	assert.False(t, LooksGarbled("title: 日本 with mostly ascii text around it"))
}

func TestToASCIIDigits(t *testing.T) {
	assert.Equal(t, "2025年3月", ToASCIIDigits("２０２５年３月"))
	assert.Equal(t, "abc／1x", ToASCIIDigits("abc／１x"))
	assert.Equal(t, "no digits", ToASCIIDigits("no digits"))
}
