package lumen

import (
	"fmt"
	"time"

	"github.com/pb33f/harhar"
	"github.com/pb33f/lantern/lumen/model"
)

// ExportHAR converts parsed network records into an HTTP Archive so the
// reconstruction can feed standard HAR tooling. Redirect hops become
// separate entries, matching how browsers export chains. navStart anchors
// the absolute timestamps; records with no renderer start time are dated
// at navStart.
func ExportHAR(requests []*model.NetworkRequest, navStart time.Time, pageURL string) *harhar.HAR {
	har := &harhar.HAR{
		Log: harhar.Log{
			Version: "1.2",
			Creator: harhar.Creator{
				Name:    "lantern",
				Version: "1.0.0",
			},
			Pages: []harhar.Page{
				{
					Start: navStart.Format(time.RFC3339),
					ID:    "page_1",
					Title: pageURL,
				},
			},
		},
	}

	for _, r := range requests {
		entry := harhar.Entry{
			PageRef: "page_1",
			Start:   entryStart(r, navStart),
			Time:    entryTime(r),
			Request: harhar.Request{
				Method:      r.RequestMethod,
				URL:         r.URL,
				HTTPVersion: httpVersion(r.Protocol),
			},
			Response: harhar.Response{
				StatusCode:  r.StatusCode,
				HTTPVersion: httpVersion(r.Protocol),
				Body: harhar.BodyResponseType{
					Size:     int(r.ResourceSize),
					MIMEType: r.MimeType,
				},
				BodySize: int(r.TransferSize),
			},
			Timings: harhar.Timings{
				Send:    0,
				Wait:    waitTime(r),
				Receive: receiveTime(r),
			},
		}
		if r.ConnectionID != 0 {
			entry.Connection = fmt.Sprintf("%.0f", r.ConnectionID)
		}
		har.Log.Entries = append(har.Log.Entries, entry)
	}
	return har
}

func entryStart(r *model.NetworkRequest, navStart time.Time) string {
	t := navStart
	if r.RendererStartTime > 0 {
		t = navStart.Add(time.Duration(r.RendererStartTime * float64(time.Millisecond)))
	}
	return t.Format(time.RFC3339)
}

func entryTime(r *model.NetworkRequest) float64 {
	if r.NetworkEndTime < 0 || r.RendererStartTime < 0 {
		return 0
	}
	return r.NetworkEndTime - r.RendererStartTime
}

func waitTime(r *model.NetworkRequest) float64 {
	if r.ResponseHeadersEndTime < 0 || r.NetworkRequestTime < 0 {
		return 0
	}
	w := r.ResponseHeadersEndTime - r.NetworkRequestTime
	if w < 0 {
		return 0
	}
	return w
}

func receiveTime(r *model.NetworkRequest) float64 {
	if r.NetworkEndTime < 0 || r.ResponseHeadersEndTime < 0 {
		return 0
	}
	rt := r.NetworkEndTime - r.ResponseHeadersEndTime
	if rt < 0 {
		return 0
	}
	return rt
}

func httpVersion(protocol string) string {
	switch protocol {
	case "h2":
		return "HTTP/2.0"
	case "h3":
		return "HTTP/3.0"
	case "":
		return "HTTP/1.1"
	}
	return protocol
}
