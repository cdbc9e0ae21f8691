// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textgen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/brainsim/internal/gpt"
	"github.com/pdiddy/brainsim/internal/uks"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	cfg.Set("batch.delay_between_requests", 0.0)
	return cfg
}

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	client, err := gpt.New(gpt.Config{Local: func(_ context.Context, prompt string, _ int) (string, error) {
		return "echo: " + prompt, nil
	}})
	require.NoError(t, err)

	store := uks.NewStore()
	t.Cleanup(store.Close)
	return New(testConfig(t), client, store)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", cfg.GetString("gpt.model"))
	assert.Equal(t, 150, cfg.GetInt("gpt.max_tokens"))
	assert.Equal(t, "text", cfg.GetString("output.format"))
	assert.InDelta(t, 1.0, cfg.GetFloat64("batch.delay_between_requests"), 1e-9)
}

func TestConfigSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	cfg.Set("gpt.api_key", "sk-test")
	cfg.Set("gpt.model", "gpt-4o")
	require.NoError(t, cfg.Save())

	// A fresh load sees the persisted values layered over defaults.
	cfg2, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg2.GetString("gpt.api_key"))
	assert.Equal(t, "gpt-4o", cfg2.GetString("gpt.model"))
	assert.Equal(t, 150, cfg2.GetInt("gpt.max_tokens"))
}

func TestConfigJSON(t *testing.T) {
	cfg := testConfig(t)
	text, err := cfg.JSON()
	require.NoError(t, err)
	assert.Contains(t, text, "gpt-3.5-turbo")
}

func TestGenerateRecordsKnowledge(t *testing.T) {
	g := testGenerator(t)

	res, err := g.Generate(context.Background(), "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", res.GeneratedText)
	assert.Equal(t, "hello", res.Prompt)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, gpt.DefaultModel, res.Model)

	// Prompt and result Things are linked by a generated relationship.
	prompt := g.store.Labeled("prompt0")
	require.NotNil(t, prompt)
	assert.Equal(t, "hello", prompt.V)
	require.Len(t, prompt.Relationships(), 1)
	assert.Equal(t, "generated", prompt.Relationships()[0].Type.Label())
}

func TestGenerateWithoutClient(t *testing.T) {
	store := uks.NewStore()
	t.Cleanup(store.Close)
	g := New(testConfig(t), nil, store)

	_, err := g.Generate(context.Background(), "hello", 0)
	assert.ErrorIs(t, err, ErrNoClient)
}

func TestQueryListsRelationships(t *testing.T) {
	g := testGenerator(t)
	g.store.AddStatement("dog", "chases", "cat")
	g.store.AddStatement("dog", "has", "tail")

	lines := g.Query("dog")
	assert.Contains(t, lines, "Found: dog")
	assert.Contains(t, lines, "  -> chases: cat")
	assert.Contains(t, lines, "  -> has: tail")

	lines = g.Query("zebra")
	assert.Equal(t, []string{"No knowledge found for: zebra"}, lines)
}

func TestKnowledgeStats(t *testing.T) {
	g := testGenerator(t)
	before := g.KnowledgeStats()

	g.store.AddStatement("dog", "chases", "cat")

	after := g.KnowledgeStats()
	assert.Greater(t, after.Things, before.Things)
	assert.Greater(t, after.Relationships, before.Relationships)
}

func TestBatchProcessesPrompts(t *testing.T) {
	g := testGenerator(t)

	var buf strings.Builder
	results, err := g.Batch(context.Background(), []string{"one", "two"}, &buf)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "echo: one", results[0].GeneratedText)
	assert.Equal(t, "echo: two", results[1].GeneratedText)
	assert.Contains(t, buf.String(), "[1/2]")
	assert.Contains(t, buf.String(), "[2/2]")
}

func TestReadPromptsSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n\n  \nsecond\n"), 0o644))

	prompts, err := ReadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, prompts)

	_, err = ReadPrompts(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestWriteResults(t *testing.T) {
	g := testGenerator(t)
	results, err := g.Batch(context.Background(), []string{"one"}, &strings.Builder{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteResults(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo: one")
	assert.Contains(t, string(data), "generated_text")
}

func TestREPLSession(t *testing.T) {
	g := testGenerator(t)
	g.store.AddStatement("dog", "chases", "cat")

	in := strings.NewReader("/generate hi\n/query dog\n/knowledge\n/help\nbare prompt\n/quit\n")
	var out strings.Builder
	repl := NewREPL(g, in, &out)

	require.NoError(t, repl.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "echo: hi")
	assert.Contains(t, output, "Found: dog")
	assert.Contains(t, output, "things")
	assert.Contains(t, output, "/save-config")
	assert.Contains(t, output, "echo: bare prompt")
	assert.Contains(t, output, "Goodbye!")
}

func TestREPLEOFTerminates(t *testing.T) {
	g := testGenerator(t)
	repl := NewREPL(g, strings.NewReader(""), &strings.Builder{})
	require.NoError(t, repl.Run(context.Background()))
}

func TestREPLConfigCommands(t *testing.T) {
	g := testGenerator(t)

	in := strings.NewReader("/config\n/save-config\n/quit\n")
	var out strings.Builder
	require.NoError(t, NewREPL(g, in, &out).Run(context.Background()))

	assert.Contains(t, out.String(), "gpt-3.5-turbo")
	assert.Contains(t, out.String(), "Configuration saved to:")
	_, err := os.Stat(g.cfg.Path())
	assert.NoError(t, err)
}
