// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/lodestar-app/server/models"
)

const (
	navigationTimeout = 30 * time.Second
	maxResults        = 10
)

// RetailerConfig drives the generic searcher: a URL template plus the
// selectors that find listings on the results page. Site behavior lives
// here as data, not as per-site parser code.
type RetailerConfig struct {
	SearchURL  string // {query} is replaced with the escaped query
	ListingSel string
	TitleSel   string
	PriceSel   string
	LinkSel    string
}

// DefaultRetailers returns the built-in retailer table
func DefaultRetailers() map[string]RetailerConfig {
	return map[string]RetailerConfig{
		"ebay": {
			SearchURL:  "https://www.ebay.com/sch/i.html?_nkw={query}",
			ListingSel: ".s-item",
			TitleSel:   ".s-item__title",
			PriceSel:   ".s-item__price",
			LinkSel:    ".s-item__link",
		},
		"craigslist": {
			SearchURL:  "https://www.craigslist.org/search/sss?query={query}",
			ListingSel: ".cl-static-search-result",
			TitleSel:   ".title",
			PriceSel:   ".price",
			LinkSel:    "a",
		},
	}
}

// RodSearcher runs listing searches in a headless browser.
type RodSearcher struct {
	retailers map[string]RetailerConfig
	headless  bool
}

func NewRodSearcher(retailers map[string]RetailerConfig) *RodSearcher {
	if retailers == nil {
		retailers = DefaultRetailers()
	}
	return &RodSearcher{retailers: retailers, headless: true}
}

// Retailers lists the configured retailer names
func (r *RodSearcher) Retailers() []string {
	names := make([]string, 0, len(r.retailers))
	for name := range r.retailers {
		names = append(names, name)
	}
	return names
}

// Search navigates to the retailer's results page for the job's query and
// pulls out up to maxResults listings.
func (r *RodSearcher) Search(ctx context.Context, job *models.ScrapeJob) ([]Item, error) {
	cfg, ok := r.retailers[job.Retailer]
	if !ok {
		return nil, fmt.Errorf("unknown retailer %q", job.Retailer)
	}

	searchURL := strings.ReplaceAll(cfg.SearchURL, "{query}", url.QueryEscape(job.Query))

	controlURL, err := launcher.New().Headless(r.headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: searchURL})
	if err != nil {
		return nil, fmt.Errorf("failed to open results page: %w", err)
	}
	page = page.Timeout(navigationTimeout)
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("results page did not load: %w", err)
	}

	elements, err := page.Elements(cfg.ListingSel)
	if err != nil {
		return nil, fmt.Errorf("failed to find listings: %w", err)
	}

	var items []Item
	for _, el := range elements {
		if len(items) >= maxResults {
			break
		}

		titleEl, err := el.Element(cfg.TitleSel)
		if err != nil {
			continue // ads and placeholder cells have no title
		}
		title, err := titleEl.Text()
		if err != nil || strings.TrimSpace(title) == "" {
			continue
		}

		item := Item{Title: strings.TrimSpace(title)}

		if priceEl, err := el.Element(cfg.PriceSel); err == nil {
			if price, err := priceEl.Text(); err == nil {
				item.Price = strings.TrimSpace(price)
			}
		}
		if linkEl, err := el.Element(cfg.LinkSel); err == nil {
			if href, err := linkEl.Attribute("href"); err == nil && href != nil {
				item.URL = *href
			}
		}

		items = append(items, item)
	}

	return items, nil
}
