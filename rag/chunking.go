package rag

// DefaultChunkSize bounds passage length at ingestion time. Source documents
// longer than this are split into fixed-size chunks; chunk order is
// irrelevant to retrieval.
const DefaultChunkSize = 500

// ChunkText splits text into rune-safe chunks of at most chunkSize
// characters. Text at or under the limit is returned as a single chunk. A
// non-positive chunkSize falls back to DefaultChunkSize. Empty input yields
// no chunks.
func ChunkText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+chunkSize-1)/chunkSize)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
