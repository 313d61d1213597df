package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// DefaultGenerateTimeout bounds one model call.
const DefaultGenerateTimeout = 120 * time.Second

// ErrUnparseableOutput indicates the model did not honor the JSON
// output contract.
var ErrUnparseableOutput = errors.New("model output is not a citation answer")

// sentenceCitation is one model-emitted sentence with its supporting
// chunk ids.
type sentenceCitation struct {
	Sentence string   `json:"sentence"`
	ChunkIDs []string `json:"chunk_ids"`
}

// modelAnswer is the model's full output under the JSON contract.
type modelAnswer struct {
	Answer []sentenceCitation `json:"answer"`
}

// parseModelOutput decodes the model's raw text under the
// JSON-or-refusal policy: a JSON citation answer is decoded, a bare
// refusal line is wrapped as a single uncited sentence, anything else
// is ErrUnparseableOutput. Models often fence JSON in markdown, the
// fence is stripped first.
func parseModelOutput(raw string) (*modelAnswer, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, refusalPrefix) {
		return &modelAnswer{Answer: []sentenceCitation{{Sentence: text}}}, nil
	}

	var out modelAnswer
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableOutput, err)
	}
	if out.Answer == nil {
		return nil, fmt.Errorf("%w: missing answer field", ErrUnparseableOutput)
	}
	return &out, nil
}

// Model is the text generation backend consumed by the Engine.
type Model interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// GenkitModel calls a genkit-registered model by name.
type GenkitModel struct {
	g       *genkit.Genkit
	name    string
	timeout time.Duration
}

// NewGenkitModel wraps the named model. A non-positive timeout falls
// back to DefaultGenerateTimeout.
func NewGenkitModel(g *genkit.Genkit, name string, timeout time.Duration) *GenkitModel {
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	return &GenkitModel{g: g, name: name, timeout: timeout}
}

// Complete runs one generation under the model timeout.
func (m *GenkitModel) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	response, err := genkit.Generate(ctx, m.g,
		ai.WithModelName(m.name),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return response.Text(), nil
}
