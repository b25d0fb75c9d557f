// Package crawler implements a bounded-depth, domain-restricted crawl engine:
// a blocking frontier with in-flight tracking, an atomic visited set, a
// shared result set and a pool of workers that fetch pages, extract matches
// and expand links until the frontier drains or the context is cancelled.
package crawler
