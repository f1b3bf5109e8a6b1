package scrapekit

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// FetchDocument GETs the url with a clone of the parent collector and
// parses the body. The HTTP status is returned alongside the error so
// callers can react to specific codes (the auction site answers GET
// search requests with 405 and expects a form POST instead).
func FetchDocument(ctx context.Context, parent *colly.Collector, url string) (*goquery.Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	collector := parent.Clone()

	var (
		doc    *goquery.Document
		status int
		fail   error
	)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		d, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			fail = fmt.Errorf("parsing response body from %s: %w", url, err)
			return
		}
		doc = d
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fail = fmt.Errorf("request to %s failed: %w", url, err)
	})

	if err := collector.Visit(url); err != nil {
		return nil, status, fmt.Errorf("visiting %s: %w", url, err)
	}
	collector.Wait()

	if fail != nil {
		return nil, status, fail
	}
	if doc == nil {
		return nil, status, fmt.Errorf("no response received from %s", url)
	}

	return doc, status, nil
}

// PostDocument submits a form POST with a clone of the parent collector
// and parses the body.
func PostDocument(ctx context.Context, parent *colly.Collector, url string, form map[string]string) (*goquery.Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	collector := parent.Clone()

	var (
		doc    *goquery.Document
		status int
		fail   error
	)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		d, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			fail = fmt.Errorf("parsing response body from %s: %w", url, err)
			return
		}
		doc = d
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fail = fmt.Errorf("post to %s failed: %w", url, err)
	})

	if err := collector.Post(url, form); err != nil {
		return nil, status, fmt.Errorf("posting to %s: %w", url, err)
	}
	collector.Wait()

	if fail != nil {
		return nil, status, fail
	}
	if doc == nil {
		return nil, status, fmt.Errorf("no response received from %s", url)
	}

	return doc, status, nil
}

// SleepBetweenPages waits out the crawl delay, returning early with the
// context error when the run is cancelled mid-wait.
func SleepBetweenPages(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
