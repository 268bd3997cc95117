package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlicebooksAdapter_ParseProduct(t *testing.T) {
	page := `<html><body>
<h1>夏の思い出 / サークルA</h1>
<table>
<tr><th>作家</th><td>作家B</td></tr>
<tr><th>発行日</th><td>2025年3月5日</td></tr>
</table>
</body></html>`
	adapter := NewAlicebooksAdapter(nil, testConfig(), testLogger())

	record := adapter.ParseProduct(mustDoc(t, page))

	assert.Equal(t, "夏の思い出", record.Title)
	assert.Equal(t, "サークルA", record.Circle)
	assert.Equal(t, "作家B", record.Author)
	assert.Equal(t, "2025年3月5日", record.ReleaseDate)
	assert.Empty(t, record.EventName)
}

func TestAlicebooksAdapter_ParseProduct_DefinitionList(t *testing.T) {
	page := `<html><head><meta property="og:title" content="冬の物語"></head><body>
<a href="/circle/show?circle_id=9">サークルZ</a>
<dl><dt>著者</dt><dd>作家Y</dd><dt>発売日</dt><dd>2024/12/30</dd></dl>
</body></html>`
	adapter := NewAlicebooksAdapter(nil, testConfig(), testLogger())

	record := adapter.ParseProduct(mustDoc(t, page))

	assert.Equal(t, "冬の物語", record.Title)
	assert.Equal(t, "サークルZ", record.Circle)
	assert.Equal(t, "作家Y", record.Author)
	assert.Equal(t, "2024/12/30", record.ReleaseDate)
}
