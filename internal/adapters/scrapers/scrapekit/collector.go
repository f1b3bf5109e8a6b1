// Package scrapekit holds the plumbing shared by every listing-site
// adapter: collector construction, document fetching and the HTML
// extraction helpers the sources have in common.
package scrapekit

import (
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// NewCollector builds the parent collector for a source adapter.
// Limits and headers set here are inherited by every clone, so each
// operation can clone freely without re-applying politeness rules.
func NewCollector(domainGlob string, delay time.Duration, allowedDomains ...string) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(allowedDomains...),
		colly.AllowURLRevisit(),
	)

	err := c.Limit(&colly.LimitRule{
		DomainGlob:  domainGlob,
		Parallelism: 1,
		Delay:       delay,
	})
	if err != nil {
		return nil, fmt.Errorf("scrapekit: failed to set limit rule: %w", err)
	}

	extensions.RandomUserAgent(c)
	extensions.Referer(c)

	return c, nil
}
