// Package embedding turns text into dense vectors through an
// OpenAI-compatible /v1/embeddings endpoint.
package embedding
