package answer

import (
	"fmt"
	"strings"

	"github.com/answerdock/answerdock/internal/chunk"
)

// systemPrompt constrains the model to the supplied context and the
// sentence-citation output contract.
const systemPrompt = `You are a retrieval-augmented assistant.

You MUST use ONLY the information provided in the context.
Do NOT use any external knowledge.

Rules:
- If relevant information exists in the context, you MUST answer.
- You may paraphrase or summarize information from the context.
- Every answer sentence MUST be supported by one or more chunk_ids.
- Do NOT invent chunk_ids.
- If no relevant information exists, reply exactly:
  "I don't know. The information is not available in the provided documents."
- If the question contains an unsupported assumption, reply exactly:
  "The document does not support that statement."

Return ONLY valid JSON in this format:

{
  "answer": [
    {
      "sentence": "...",
      "chunk_ids": ["chunk_id_1"]
    }
  ]
}`

// buildPrompt renders the retrieved chunks and the question into the
// user prompt. Each chunk is labeled with its id so the model can cite
// it.
func buildPrompt(query string, chunks []chunk.Chunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "[%s] (%s", c.ID, c.Source)
		if c.Page != "" {
			fmt.Fprintf(&b, ", page %s", c.Page)
		}
		if c.Section != chunk.DefaultSection {
			fmt.Fprintf(&b, ", section %q", c.Section)
		}
		b.WriteString(")\n")
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("Question:\n")
	b.WriteString(query)
	return b.String()
}
