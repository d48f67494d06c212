package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type queryFlags struct {
	limit     int
	category  string
	threshold float64
	json      bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "maximum results (default RAG_TOP_K)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "restrict to one document category")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "minimum cosine similarity (default RAG_SIMILARITY_THRESHOLD)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
}

func (f *queryFlags) query(cmd *cobra.Command, tenant, text string) domain.SearchQuery {
	q := domain.SearchQuery{Text: text, TenantID: tenant, Category: f.category, Limit: f.limit}
	if cmd.Flags().Changed("threshold") {
		threshold := f.threshold
		q.Threshold = &threshold
	}
	return q
}

func newSearchCmd(e *env) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over the tenant's and the shared documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := e.requireTenant()
			if err != nil {
				return err
			}
			svc, err := e.services(cmd)
			if err != nil {
				return err
			}
			results, err := svc.Search.Search(cmd.Context(), flags.query(cmd, tenant, strings.Join(args, " ")))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if flags.json {
				return printJSON(cmd, results)
			}
			printResults(cmd, results)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newContextCmd(e *env) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Print the prompt context built for a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := e.requireTenant()
			if err != nil {
				return err
			}
			svc, err := e.services(cmd)
			if err != nil {
				return err
			}
			rc, err := svc.Search.BuildContext(cmd.Context(), flags.query(cmd, tenant, strings.Join(args, " ")))
			if err != nil {
				return fmt.Errorf("build context failed: %w", err)
			}
			if flags.json {
				return printJSON(cmd, rc)
			}
			if rc.Text == "" {
				cmd.Println("No relevant context found.")
				return nil
			}
			cmd.Println(rc.Text)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printResults(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	for i, r := range results {
		origin := r.TenantID
		if r.Global {
			origin = color.MagentaString("shared")
		}
		cmd.Printf("  [%d] %s %s  chunk %d  %s\n", i+1, color.CyanString(r.Filename), color.HiBlackString("(%s)", r.Category), r.ChunkIndex, origin)
		cmd.Printf("      score %s\n", color.GreenString("%.3f", r.Score))
		cmd.Printf("      %s\n\n", snippet(r.Text, 240))
	}
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
