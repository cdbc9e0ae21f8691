// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/brainsim/internal/archive"
	"github.com/pdiddy/brainsim/internal/gpt"
	"github.com/pdiddy/brainsim/internal/textgen"
	"github.com/pdiddy/brainsim/internal/uks"
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "GPT-backed text generation over the knowledge store",
	Long: `Text generates text with a GPT backend, records every exchange in the
knowledge store, and can query that store. Settings persist in a JSON
config file between invocations.

Examples:
  brainsim text --generate "Write a story about AI"
  brainsim text --query "artificial intelligence"
  brainsim text --interactive
  brainsim text --batch prompts.txt --output results.json
  brainsim text --set-api-key YOUR_KEY --config`,
	RunE: runText,
}

func init() {
	textCmd.Flags().BoolP("interactive", "i", false, "start an interactive session")
	textCmd.Flags().StringP("generate", "g", "", "generate text from a single prompt")
	textCmd.Flags().StringP("batch", "b", "", "batch process prompts from file (one per line)")
	textCmd.Flags().StringP("query", "q", "", "query the knowledge base")
	// Shadows the root --config file flag for this subcommand.
	textCmd.Flags().BoolP("config", "c", false, "show current configuration")
	textCmd.Flags().String("config-file", textgen.DefaultConfigFile, "configuration file path")
	textCmd.Flags().String("set-api-key", "", "set and persist the OpenAI API key")
	textCmd.Flags().String("set-model", "", "set and persist the GPT model")
	textCmd.Flags().StringP("output", "o", "", "output file for results")
	textCmd.Flags().String("format", "text", "output format (text or json)")
	textCmd.Flags().Int("max-tokens", 0, "maximum tokens to generate")
	rootCmd.AddCommand(textCmd)
}

func runText(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	format, _ := flags.GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q, want text or json", format)
	}

	cfgPath, _ := flags.GetString("config-file")
	cfg, err := textgen.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	if key, _ := flags.GetString("set-api-key"); key != "" {
		cfg.Set("gpt.api_key", key)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("API key updated and saved to %s\n", cfg.Path())
	}
	if model, _ := flags.GetString("set-model"); model != "" {
		cfg.Set("gpt.model", model)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Model updated to %s\n", model)
	}
	if maxTokens, _ := flags.GetInt("max-tokens"); maxTokens > 0 {
		cfg.Set("gpt.max_tokens", maxTokens)
	}

	if show, _ := flags.GetBool("config"); show {
		text, err := cfg.JSON()
		if err != nil {
			return err
		}
		fmt.Println("Current configuration:")
		fmt.Println(text)
		return nil
	}

	client, err := gpt.New(gpt.Config{
		APIKey: openAIKey(cfg.GetString("gpt.api_key")),
		Model:  cfg.GetString("gpt.model"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; generation disabled\n", err)
		client = nil
	}

	store := uks.NewStore()
	defer store.Close()
	gen := textgen.New(cfg, client, store)

	ctx := context.Background()
	output, _ := flags.GetString("output")

	switch {
	case must(flags.GetBool("interactive")):
		return textgen.NewREPL(gen, os.Stdin, os.Stdout).Run(ctx)

	case must(flags.GetString("generate")) != "":
		prompt, _ := flags.GetString("generate")
		return textGenerate(ctx, gen, prompt, format, output)

	case must(flags.GetString("query")) != "":
		term, _ := flags.GetString("query")
		return textQuery(ctx, gen, term, format)

	case must(flags.GetString("batch")) != "":
		path, _ := flags.GetString("batch")
		return textBatch(ctx, gen, path, output)

	default:
		if err := cmd.Help(); err != nil {
			return err
		}
		fmt.Println("\nTry: --interactive to start an interactive session")
		fmt.Println("Or:  --generate \"Your prompt here\" for quick generation")
		return nil
	}
}

// must drops the error from a pflag getter; the flags are defined above
// so lookups cannot fail.
func must[T any](v T, _ error) T {
	return v
}

func textGenerate(ctx context.Context, gen *textgen.Generator, prompt, format, output string) error {
	fmt.Printf("Generating text for: %s\n", prompt)
	res, err := gen.Generate(ctx, prompt, 0)
	if err != nil {
		return err
	}

	var rendered string
	if format == "json" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		rendered = string(data)
		fmt.Println(rendered)
	} else {
		rendered = res.GeneratedText
		fmt.Printf("Generated Text:\n%s\n", rendered)
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Printf("Output saved to: %s\n", output)
	}
	return nil
}

func textQuery(ctx context.Context, gen *textgen.Generator, term, format string) error {
	fmt.Printf("Querying knowledge base for: %s\n", term)
	results := gen.Query(term)

	// Fall back to the archived corpus when the live store has nothing.
	if len(results) == 1 && strings.HasPrefix(results[0], "No knowledge found") {
		if archived := archivedMatches(ctx, term); len(archived) > 0 {
			results = archived
		}
	}

	if format == "json" {
		envelope := map[string]any{
			"query":     term,
			"results":   results,
			"timestamp": time.Now().Format(time.RFC3339),
		}
		data, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println("Knowledge Results:")
	for _, r := range results {
		fmt.Printf("  %s\n", r)
	}
	return nil
}

// archivedMatches searches the snapshot database, if one exists.
func archivedMatches(ctx context.Context, term string) []string {
	dir := viper.GetString("archive.dir")
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	arch, err := archive.New(archive.Config{Dir: dir})
	if err != nil {
		return nil
	}
	defer arch.Close()

	results, err := arch.Search(ctx, archive.QueryOptions{Query: term})
	if err != nil {
		return nil
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("Archived: %s %s %s", r.Source, r.RelType, r.Target))
	}
	return lines
}

func textBatch(ctx context.Context, gen *textgen.Generator, path, output string) error {
	prompts, err := textgen.ReadPrompts(path)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return fmt.Errorf("no prompts found in %s", path)
	}
	fmt.Printf("Found %d prompts in batch file\n", len(prompts))

	results, err := gen.Batch(ctx, prompts, os.Stdout)
	if err != nil {
		return err
	}

	if output == "" {
		output = fmt.Sprintf("batch_results_%s.json", time.Now().Format("20060102_150405"))
	}
	if err := textgen.WriteResults(output, results); err != nil {
		return err
	}
	fmt.Printf("Results saved to: %s\n", output)

	fmt.Printf("\nBatch generation complete:\n")
	fmt.Printf("   Prompts processed: %d\n", len(results))
	return nil
}
