package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

func newDocumentsCmd(e *env) *cobra.Command {
	var (
		category string
		status   string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List the tenant's documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, err := e.requireTenant()
			if err != nil {
				return err
			}
			svc, err := e.services(cmd)
			if err != nil {
				return err
			}
			docs, err := svc.Documents.List(cmd.Context(), domain.DocumentFilter{
				TenantID: tenant,
				Category: category,
				Status:   domain.DocumentStatus(status),
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, docs)
			}
			if len(docs) == 0 {
				cmd.Println("No documents.")
				return nil
			}
			for _, d := range docs {
				cmd.Printf("%s  %-9s  %-40s  %s  %d chunks\n", d.ID, statusLabel(d.Status), d.Filename, d.Category, d.Metadata.ChunkCount)
				if d.Error != "" {
					cmd.Printf("    %s\n", color.RedString(d.Error))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "filter by category")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (processing, completed, error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newReprocessCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <document-id>",
		Short: "Extract, chunk and embed a document again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := e.requireTenant()
			if err != nil {
				return err
			}
			svc, err := e.services(cmd)
			if err != nil {
				return err
			}
			doc, err := svc.Documents.Reprocess(cmd.Context(), tenant, args[0])
			if err != nil {
				return fmt.Errorf("reprocess %s: %w", args[0], err)
			}
			if current, err := svc.Documents.GetByID(cmd.Context(), tenant, doc.ID); err == nil {
				doc = current
			}
			cmd.Printf("%s %s is %s\n", color.GreenString("✓"), doc.ID, statusLabel(doc.Status))
			if doc.Error != "" {
				cmd.Printf("    %s\n", color.RedString(doc.Error))
			}
			return nil
		},
	}
}

func statusLabel(s domain.DocumentStatus) string {
	switch s {
	case domain.StatusCompleted:
		return color.GreenString(string(s))
	case domain.StatusError:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}
