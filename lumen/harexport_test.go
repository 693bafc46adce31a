package lumen

import (
	"testing"
	"time"

	"github.com/pb33f/lantern/lumen/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportHAR(t *testing.T) {
	navStart := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	doc := finishedRequest("1.1", "https://example.com/", model.ResourceDocument, 0, 400)
	doc.Protocol = "h2"
	doc.MimeType = "text/html"
	doc.ResourceSize = 48000
	doc.NetworkRequestTime = 0
	doc.ResponseHeadersEndTime = 250

	img := finishedRequest("1.2", "https://example.com/hero.jpg", model.ResourceImage, 450, 900)
	img.NetworkRequestTime = 450
	img.ResponseHeadersEndTime = 600
	img.ConnectionID = 17

	har := ExportHAR([]*model.NetworkRequest{doc, img}, navStart, "https://example.com/")

	require.Len(t, har.Log.Pages, 1)
	assert.Equal(t, "page_1", har.Log.Pages[0].ID)
	assert.Equal(t, "https://example.com/", har.Log.Pages[0].Title)
	assert.Equal(t, navStart.Format(time.RFC3339), har.Log.Pages[0].Start)

	require.Len(t, har.Log.Entries, 2)

	first := har.Log.Entries[0]
	assert.Equal(t, "GET", first.Request.Method)
	assert.Equal(t, "HTTP/2.0", first.Request.HTTPVersion)
	assert.Equal(t, 200, first.Response.StatusCode)
	assert.Equal(t, 48000, first.Response.Body.Size)
	assert.InDelta(t, 400, first.Time, 0.001)
	assert.InDelta(t, 250, first.Timings.Wait, 0.001)
	assert.InDelta(t, 150, first.Timings.Receive, 0.001)

	second := har.Log.Entries[1]
	assert.Equal(t, "HTTP/1.1", second.Request.HTTPVersion)
	assert.Equal(t, "17", second.Connection)
	assert.Equal(t, navStart.Add(450*time.Millisecond).Format(time.RFC3339), second.Start)
}

func TestExportHAR_RedirectChainBecomesEntries(t *testing.T) {
	hop := finishedRequest("1.1", "https://example.com/old", model.ResourceDocument, 0, 100)
	hop.StatusCode = 301
	doc := finishedRequest("1.1:redirect", "https://example.com/", model.ResourceDocument, 100, 500)
	hop.RedirectDestination = doc
	doc.RedirectSource = hop

	har := ExportHAR([]*model.NetworkRequest{hop, doc}, time.Now(), "https://example.com/")
	require.Len(t, har.Log.Entries, 2)
	assert.Equal(t, 301, har.Log.Entries[0].Response.StatusCode)
	assert.Equal(t, "https://example.com/old", har.Log.Entries[0].Request.URL)
	assert.Equal(t, "https://example.com/", har.Log.Entries[1].Request.URL)
}

func TestHTTPVersion(t *testing.T) {
	assert.Equal(t, "HTTP/2.0", httpVersion("h2"))
	assert.Equal(t, "HTTP/3.0", httpVersion("h3"))
	assert.Equal(t, "HTTP/1.1", httpVersion(""))
	assert.Equal(t, "http/1.1", httpVersion("http/1.1"))
}
