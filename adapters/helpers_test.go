package adapters

import (
	"io"
	"strings"
	"testing"

	"doujin-resolver/internal/testutil"
	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

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

func testSession(t *testing.T, router *testutil.HostRouter) *utils.Session {
	t.Helper()
	client := utils.NewHTTPClient(testConfig(), testLogger(), utils.WithTransport(router))
	t.Cleanup(client.Close)
	return client.NewSession()
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
