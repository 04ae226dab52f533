package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is one fetched listing page or feed.
type Response struct {
	Request     *Request
	StatusCode  int
	ContentType string
	Body        []byte

	// FinalURL is where redirects ended. Relative headline links resolve
	// against it.
	FinalURL string

	// Rendered marks pages taken from a headless browser after scripts ran.
	Rendered bool

	Elapsed time.Duration

	doc *goquery.Document
}

// NewResponse wraps a plain HTTP reply whose body has already been read.
func NewResponse(req *Request, httpResp *http.Response, body []byte, elapsed time.Duration) *Response {
	return &Response{
		Request:     req,
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        body,
		FinalURL:    httpResp.Request.URL.String(),
		Elapsed:     elapsed,
	}
}

// NewBrowserResponse wraps the serialized DOM of a rendered page. The
// browser does not report the document status, so it is taken as 200.
func NewBrowserResponse(req *Request, html []byte, finalURL string, elapsed time.Duration) *Response {
	return &Response{
		Request:     req,
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Body:        html,
		FinalURL:    finalURL,
		Rendered:    true,
		Elapsed:     elapsed,
	}
}

// Document parses Body once and caches the result.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc == nil {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			return nil, err
		}
		r.doc = doc
	}
	return r.doc, nil
}

func (r *Response) BaseURL() string {
	switch {
	case r.FinalURL != "":
		return r.FinalURL
	case r.Request != nil:
		return r.Request.URLString()
	}
	return ""
}

func (r *Response) IsSuccess() bool { return r.StatusCode/100 == 2 }
