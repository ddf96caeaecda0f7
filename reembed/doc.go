// Package reembed recomputes the unit embeddings of committed episodes, for
// example after switching embedding models.
//
// Units are embedded in batches, with retries and exponential backoff on
// transient failures, and their vectors are normalized before being written
// back. Unit records are upserts, so the rest of the episode graph is left
// untouched.
package reembed
