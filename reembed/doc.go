// Package reembed provides batch maintenance jobs over stored notes.
//
// The Reembedder regenerates every note's embedding with a new or
// updated embedding model, normalizing vectors for cosine similarity
// search. The Relinker re-runs entity extraction and fills in missing
// mention links. Both support batch processing, progress tracking and
// retry logic with exponential backoff.
package reembed
