package chunker

import (
	"strconv"

	"helpdesk/internal/domain"
)

func newChunks(document domain.Document, texts []string) []domain.Chunk {
	if len(texts) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, 0, len(texts))
	for idx, text := range texts {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Source:     document.Path,
			Text:       text,
			Index:      idx,
		})
	}
	return chunks
}
