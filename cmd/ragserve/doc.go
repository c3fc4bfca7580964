// Command ragserve runs the multi-tenant retrieval-augmented chat service
// and its offline knowledge ingestion tool.
package main
