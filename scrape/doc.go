// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package scrape is the listing-search pipeline for purchase goals.

Jobs live in the scrape_job table and flow pending -> running -> done or
error. Two kinds of executor feed the same queue:

  - Pool: in-process workers that claim jobs, run a Searcher (RodSearcher
    drives a headless browser via go-rod), and store listings. A shared
    rate limiter keeps searches polite.
  - External workers: a separate scraper host posts results to the
    /scrape/callback endpoint, which lands in Queue.SaveResults the same
    way.

RodSearcher is deliberately generic: each retailer is a RetailerConfig
(URL template plus CSS selectors), so supporting a site means adding a
config row, not writing a parser.
*/
package scrape
