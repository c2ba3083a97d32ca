// Package watch turns a noisy stream of filesystem notifications into
// debounced sync actions. A Session watches a directory tree recursively,
// filters events by file extension, coalesces bursts of changes, and runs
// a single blocking sync callback once each burst has settled. Syncs are
// serialized on a dedicated worker so event ingestion never blocks on a
// running deploy.
package watch
