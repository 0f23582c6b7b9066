package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMarkdownShortContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLen  int
		wantZero bool
	}{
		{"completely empty", "", 0, true},
		{"whitespace only", "   \n\n\t  ", 0, true},
		// Headings-only short content is passed through as one chunk
		{"headings only below threshold", "# Fever\n\n## In adults", 1, false},
		{"heading with content", "# Fever\n\nParacetamol reduces fever in most adults.", 1, false},
		{"mixed empty and content sections",
			"# Dosage\n\n## Infants\n\n## Adults\n\nStandard dose is 500mg every six hours.", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseMarkdown(tt.content)
			require.NoError(t, err)

			chunks := ChunkMarkdown(doc, DefaultChunkConfig())

			if tt.wantZero {
				assert.Empty(t, chunks)
				return
			}

			assert.Len(t, chunks, tt.wantLen)
			for i, chunk := range chunks {
				assert.NotEmpty(t, strings.TrimSpace(chunk.Content), "chunk %d is empty", i)
			}
		})
	}
}

func TestChunkBySectionsSkipsEmptySections(t *testing.T) {
	sections := []Section{
		{Path: "Empty", Content: ""},
		{Path: "Whitespace", Content: "   \n\t  "},
		{Path: "Hydration", Content: "Oral rehydration is the first line for mild dehydration."},
		{Path: "AnotherEmpty", Content: ""},
	}

	config := DefaultChunkConfig()
	config.MinSize = 10

	chunks := chunkBySections(sections, config)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hydration", chunks[0].HeadingPath)
}

func TestChunkBySectionsAllEmpty(t *testing.T) {
	sections := []Section{
		{Path: "Empty1", Content: ""},
		{Path: "Empty2", Content: "   "},
		{Path: "Empty3", Content: "\n\n"},
	}

	assert.Empty(t, chunkBySections(sections, DefaultChunkConfig()))
}

// A long document over the chunking threshold whose sections are mostly
// headings with no body must not produce empty chunks (an empty chunk
// cannot be embedded).
func TestChunkMarkdownLongContentWithEmptySections(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# Symptom index\n\n")
	for i := 1; i <= 50; i++ {
		sb.WriteString("## Symptom " + strings.Repeat("X", 20) + "\n\n")
	}
	sb.WriteString("## Fever\n\n")
	sb.WriteString("Fever above 39C lasting more than three days warrants an in-person visit.\n\n")

	content := sb.String()
	require.Greater(t, len(content), 1500, "test content must exceed the chunking threshold")

	doc, err := ParseMarkdown(content)
	require.NoError(t, err)

	chunks := ChunkMarkdown(doc, DefaultChunkConfig())
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(chunk.Content), "chunk %d is empty", i)
	}
}

func TestApplyOverlapSemanticBoundaries(t *testing.T) {
	tests := []struct {
		name          string
		chunks        []ChunkResult
		overlap       int
		wantContains  []string
		wantNotPrefix []string
	}{
		{
			name: "prefers sentence boundary over word boundary",
			chunks: []ChunkResult{
				{Content: "Take with food to avoid nausea. Do not exceed four doses daily.", Position: 0},
				{Content: "Contraindications follow.", Position: 1},
			},
			overlap:       40,
			wantContains:  []string{"Do not exceed four doses daily."},
			wantNotPrefix: []string{"daily."},
		},
		{
			name: "handles exclamation marks",
			chunks: []ChunkResult{
				{Content: "Seek help immediately! Chest pain is an emergency.", Position: 0},
				{Content: "Next section.", Position: 1},
			},
			overlap:      35,
			wantContains: []string{"Chest pain is an emergency."},
		},
		{
			name: "handles question marks",
			chunks: []ChunkResult{
				{Content: "Is the rash spreading? Monitor it for two days.", Position: 0},
				{Content: "More content.", Position: 1},
			},
			overlap:      30,
			wantContains: []string{"Monitor it for two days."},
		},
		{
			name: "falls back to word boundary when no sentence boundary",
			chunks: []ChunkResult{
				{Content: "no sentence endings here just words and more words", Position: 0},
				{Content: "Second chunk.", Position: 1},
			},
			overlap:       20,
			wantNotPrefix: []string{"rds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := applyOverlap(tt.chunks, tt.overlap)
			require.GreaterOrEqual(t, len(result), 2)

			second := result[1].Content
			for _, want := range tt.wantContains {
				assert.Contains(t, second, want)
			}
			for _, notWant := range tt.wantNotPrefix {
				assert.False(t, strings.HasPrefix(second, notWant),
					"second chunk should not start with %q, got %q", notWant, second)
			}
		})
	}
}

func TestApplyOverlapEdgeCases(t *testing.T) {
	assert.Empty(t, applyOverlap(nil, 100))

	single := []ChunkResult{{Content: "Only one chunk.", Position: 0}}
	result := applyOverlap(single, 100)
	require.Len(t, result, 1)
	assert.Equal(t, "Only one chunk.", result[0].Content)

	two := []ChunkResult{
		{Content: "First chunk.", Position: 0},
		{Content: "Second chunk.", Position: 1},
	}
	result = applyOverlap(two, 0)
	assert.Equal(t, "Second chunk.", result[1].Content)
}

func TestChunkMarkdownSplitsLongSection(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# Guideline\n\n## Management\n\n")
	for i := 0; i < 60; i++ {
		sb.WriteString("Review the patient history before adjusting any medication. ")
	}

	doc, err := ParseMarkdown(sb.String())
	require.NoError(t, err)

	config := DefaultChunkConfig()
	chunks := ChunkMarkdown(doc, config)
	require.Greater(t, len(chunks), 1, "long section should split into multiple chunks")

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), config.MaxSize+config.Overlap,
			"chunk %d exceeds size bound", i)
		assert.Equal(t, i, chunk.Position)
	}
}
