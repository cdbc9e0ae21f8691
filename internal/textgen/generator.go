// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pdiddy/brainsim/internal/gpt"
	"github.com/pdiddy/brainsim/internal/module"
	"github.com/pdiddy/brainsim/internal/uks"
)

// ErrNoClient is returned when generation is requested without a
// configured GPT backend.
var ErrNoClient = errors.New("GPT client not available; configure an API key")

// relationshipsPerThing caps how many relationships Query lists per
// matched Thing.
const relationshipsPerThing = 5

// batchSleep paces batch requests; tests shrink it.
var batchSleep = time.Sleep

// Result is one generation outcome.
type Result struct {
	ID            string    `json:"id"`
	Prompt        string    `json:"prompt"`
	GeneratedText string    `json:"generated_text"`
	Timestamp     time.Time `json:"timestamp"`
	Model         string    `json:"model"`
}

// Stats summarizes the knowledge store contents.
type Stats struct {
	Things        int `json:"things"`
	Relationships int `json:"relationships"`
}

// Generator owns the GPT client, the knowledge store, and the module
// handler for a text-generation session.
type Generator struct {
	cfg     *Config
	client  *gpt.Client
	store   *uks.Store
	handler *module.Handler
}

// New wires a Generator. client may be nil, in which case generation
// fails with ErrNoClient but querying still works.
func New(cfg *Config, client *gpt.Client, store *uks.Store) *Generator {
	h := module.NewHandler(store)
	if client != nil {
		if m, err := h.Activate("GPTInfo"); err == nil {
			m.(*module.GPTInfo).SetChat(client)
		}
	}
	return &Generator{cfg: cfg, client: client, store: store, handler: h}
}

// Handler exposes the module handler for embedding callers.
func (g *Generator) Handler() *module.Handler {
	return g.handler
}

// Generate produces text for prompt and records the exchange in the
// knowledge store as prompt and result Things joined by a `generated`
// relationship. maxTokens of 0 falls back to the configured limit.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (Result, error) {
	if g.client == nil {
		return Result{}, ErrNoClient
	}
	if maxTokens <= 0 {
		maxTokens = g.cfg.GetInt("gpt.max_tokens")
	}

	text, err := g.client.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return Result{}, errors.Wrap(err, "generating text")
	}

	promptThing := g.store.AddThing("prompt*", g.store.GetOrAddThing("Prompt", nil))
	promptThing.V = prompt
	resultThing := g.store.AddThing("result*", g.store.GetOrAddThing("GeneratedText", nil))
	resultThing.V = text
	g.store.AddRelationship(promptThing, g.store.GetOrAddThing("generated", nil), resultThing, 1.0, 0)

	return Result{
		ID:            uuid.NewString(),
		Prompt:        prompt,
		GeneratedText: text,
		Timestamp:     time.Now(),
		Model:         g.client.Model(),
	}, nil
}

// Query matches term words against Thing labels (case-insensitive
// substring) and lists each match with up to five of its relationships.
func (g *Generator) Query(term string) []string {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return []string{"No knowledge found for: " + term}
	}

	var lines []string
	things := g.store.Things()
	sort.Slice(things, func(i, j int) bool { return things[i].Label() < things[j].Label() })

	for _, t := range things {
		label := strings.ToLower(t.Label())
		matched := false
		for _, w := range words {
			if strings.Contains(label, w) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		lines = append(lines, "Found: "+t.Label())
		for i, rel := range t.Relationships() {
			if i >= relationshipsPerThing {
				break
			}
			if rel.Target == nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("  -> %s: %s", rel.Type.Label(), rel.Target.Label()))
		}
	}

	if len(lines) == 0 {
		lines = append(lines, "No knowledge found for: "+term)
	}
	return lines
}

// KnowledgeStats counts Things and relationships in the store.
func (g *Generator) KnowledgeStats() Stats {
	var stats Stats
	for _, t := range g.store.Things() {
		stats.Things++
		stats.Relationships += len(t.Relationships())
	}
	return stats
}

// Batch generates text for each prompt in order, pausing between
// requests per the configured delay, and reports progress to w.
func (g *Generator) Batch(ctx context.Context, prompts []string, w io.Writer) ([]Result, error) {
	delay := time.Duration(g.cfg.GetFloat64("batch.delay_between_requests") * float64(time.Second))

	results := make([]Result, 0, len(prompts))
	for i, prompt := range prompts {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		fmt.Fprintf(w, "[%d/%d] generating\n", i+1, len(prompts))
		res, err := g.Generate(ctx, prompt, 0)
		if err != nil {
			return results, errors.Wrapf(err, "prompt %d", i+1)
		}
		results = append(results, res)

		if i < len(prompts)-1 && delay > 0 {
			batchSleep(delay)
		}
	}
	return results, nil
}

// ReadPrompts loads a batch file: one prompt per line, blank lines
// skipped.
func ReadPrompts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts, nil
}

// WriteResults saves results to path as indented JSON.
func WriteResults(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling results")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
