// Package answer renders retrieval results as response text.
//
// Structured results are formatted deterministically. Semantic results are
// handed to an ai.Generator as context; if generation fails the snippets are
// formatted instead, so a response is always produced.
package answer
