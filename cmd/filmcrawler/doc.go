// Package main hosts the filmcrawler entrypoint.
//
// A run is a single pass with three stages:
//   - Listing: the listing page is fetched with the Colly-based fetcher and the first wikitable is parsed into
//     partial records (title, year, gross, detail link). Any layout surprise aborts the run before a sink is touched.
//   - Enrichment: every record's detail page is fetched once per field (country, director). Each field gets up to
//     retry.max_attempts immediate attempts; a field that never succeeds is stored as NONE and logged. Configured
//     overrides are applied afterwards.
//   - Persistence: the films table in Postgres is dropped and recreated in one transaction, read back to confirm the
//     row count, then films.json is written to the output directory and, when output.gcs_bucket is set, mirrored to
//     GCS under output.gcs_prefix. A run summary is published to Pub/Sub when a topic is configured.
//
// Quick checklist:
//   - Configure env vars: FILMS_DB_DSN, FILMS_OUTPUT_DIR, FILMS_OUTPUT_GCS_BUCKET, FILMS_PUBSUB_PROJECT_ID,
//     FILMS_PUBSUB_TOPIC_NAME, FILMS_METRICS_TEXTFILE, or pass --config.
//   - Run locally: go run ./cmd/filmcrawler run --config config.yaml
package main
