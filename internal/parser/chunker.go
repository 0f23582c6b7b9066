package parser

import (
	"strings"
	"unicode"
)

// ChunkResult represents a chunk of content.
type ChunkResult struct {
	Content     string
	Position    int
	HeadingPath string // Section context
}

// ChunkConfig defines chunking parameters.
type ChunkConfig struct {
	// Threshold: only chunk if content exceeds this length
	Threshold int
	// TargetSize: ideal chunk size
	TargetSize int
	// MinSize: minimum chunk size (smaller chunks merge with neighbors)
	MinSize int
	// MaxSize: maximum chunk size (larger chunks split at sentences)
	MaxSize int
	// Overlap: character overlap between chunks
	Overlap int
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Threshold:  1500,
		TargetSize: 750,
		MinSize:    200,
		MaxSize:    1000,
		Overlap:    100,
	}
}

// ShouldChunk returns true if content should be chunked.
func ShouldChunk(content string, config ChunkConfig) bool {
	return len(content) > config.Threshold
}

// ChunkMarkdown splits Markdown content into semantic chunks.
// Prioritizes section boundaries, then paragraph boundaries. Empty or
// whitespace-only content yields no chunks; an empty chunk would fail
// embedding downstream.
func ChunkMarkdown(doc *MarkdownDoc, config ChunkConfig) []ChunkResult {
	if strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	// If content is short enough, return as single chunk
	if !ShouldChunk(doc.Content, config) {
		return []ChunkResult{{
			Content:     doc.Content,
			Position:    0,
			HeadingPath: "",
		}}
	}

	if len(doc.Sections) > 0 {
		return chunkBySections(doc.Sections, config)
	}

	// Fallback: chunk by paragraphs
	return chunkByParagraphs(doc.Content, config)
}

// chunkBySections creates chunks from document sections. Sections with no
// content (bare headings) are skipped entirely.
func chunkBySections(sections []Section, config ChunkConfig) []ChunkResult {
	var chunks []ChunkResult
	position := 0

	for _, section := range sections {
		content := strings.TrimSpace(section.Content)
		if content == "" {
			continue
		}

		// If section is small, add as single chunk
		if len(content) <= config.MaxSize {
			if len(content) >= config.MinSize || len(chunks) == 0 {
				chunks = append(chunks, ChunkResult{
					Content:     content,
					Position:    position,
					HeadingPath: section.Path,
				})
				position++
			} else {
				// Merge tiny section with previous
				lastChunk := &chunks[len(chunks)-1]
				lastChunk.Content += "\n\n" + content
			}
			continue
		}

		// Large section: split into paragraphs
		paragraphChunks := chunkByParagraphs(content, config)
		for _, pc := range paragraphChunks {
			chunks = append(chunks, ChunkResult{
				Content:     pc.Content,
				Position:    position,
				HeadingPath: section.Path,
			})
			position++
		}
	}

	return applyOverlap(chunks, config.Overlap)
}

// chunkByParagraphs splits content by paragraph boundaries.
func chunkByParagraphs(content string, config ChunkConfig) []ChunkResult {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []ChunkResult
	var currentChunk strings.Builder
	position := 0

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// If adding this paragraph would exceed max, flush current chunk
		if currentChunk.Len()+len(para) > config.MaxSize && currentChunk.Len() > 0 {
			chunks = append(chunks, ChunkResult{
				Content:  strings.TrimSpace(currentChunk.String()),
				Position: position,
			})
			position++
			currentChunk.Reset()
		}

		// If single paragraph exceeds max, split by sentences
		if len(para) > config.MaxSize {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, ChunkResult{
					Content:  strings.TrimSpace(currentChunk.String()),
					Position: position,
				})
				position++
				currentChunk.Reset()
			}

			sentenceChunks := chunkBySentences(para, config)
			for _, sc := range sentenceChunks {
				chunks = append(chunks, ChunkResult{
					Content:  sc,
					Position: position,
				})
				position++
			}
			continue
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString("\n\n")
		}
		currentChunk.WriteString(para)
	}

	// Flush remaining
	if currentChunk.Len() > 0 {
		chunks = append(chunks, ChunkResult{
			Content:  strings.TrimSpace(currentChunk.String()),
			Position: position,
		})
	}

	return chunks
}

// chunkBySentences splits text by sentence boundaries.
func chunkBySentences(text string, config ChunkConfig) []string {
	sentences := splitSentences(text)

	var chunks []string
	var currentChunk strings.Builder

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		// If adding would exceed target, start new chunk
		if currentChunk.Len()+len(sentence) > config.TargetSize && currentChunk.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			currentChunk.Reset()
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString(" ")
		}
		currentChunk.WriteString(sentence)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	return chunks
}

// splitSentences splits text into sentences.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead for space or end
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				// Not an abbreviation (simple heuristic)
				if i > 1 && unicode.IsUpper(runes[i-1]) {
					continue // Likely abbreviation like "Dr."
				}
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}

// applyOverlap prepends the tail of each chunk to its successor. The cut
// point prefers a sentence boundary within the overlap window and falls back
// to a word boundary.
func applyOverlap(chunks []ChunkResult, overlap int) []ChunkResult {
	if overlap <= 0 || len(chunks) <= 1 {
		return chunks
	}

	result := make([]ChunkResult, len(chunks))
	copy(result, chunks)

	for i := 1; i < len(result); i++ {
		prevContent := result[i-1].Content
		if len(prevContent) <= overlap {
			continue
		}

		overlapText := prevContent[len(prevContent)-overlap:]

		if idx := lastSentenceStart(overlapText); idx >= 0 {
			overlapText = overlapText[idx:]
		} else if spaceIdx := strings.Index(overlapText, " "); spaceIdx >= 0 {
			// Drop the leading partial word
			overlapText = overlapText[spaceIdx+1:]
		}

		overlapText = strings.TrimSpace(overlapText)
		if overlapText != "" {
			result[i].Content = overlapText + " " + result[i].Content
		}
	}

	return result
}

// lastSentenceStart returns the index of the first character after the last
// complete sentence terminator in text, or -1 if there is none.
func lastSentenceStart(text string) int {
	best := -1
	for _, terminator := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(text, terminator); idx >= 0 && idx+2 > best {
			best = idx + 2
		}
	}
	if best < 0 || best >= len(text) {
		return -1
	}
	return best
}
