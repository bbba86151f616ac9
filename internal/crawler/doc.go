// Package crawler defines the collaborator interfaces and fetch types shared by the
// listing, enrichment, and publishing stages of the film crawler.
package crawler
