// Package rag implements the retrieval side of the chat pipeline: an exact
// flat L2 vector index with a durable binary form, the top-k retriever that
// maps index hits back to (source, passage) pairs, and the fixed-size text
// chunker used by the offline ingestion path.
package rag
