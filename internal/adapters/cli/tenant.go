package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

func newTenantCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Show or change a tenant's provider settings",
	}
	cmd.AddCommand(newTenantShowCmd(e), newTenantSetCmd(e))
	return cmd
}

func newTenantShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the tenant's provider settings",
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
			s, err := svc.Settings.GetSettings(cmd.Context(), tenant)
			if domain.IsKind(err, domain.ErrTenantSettingsNotFound) {
				cmd.Printf("%s has no settings; global and environment defaults apply\n", tenant)
				return nil
			}
			if err != nil {
				return err
			}
			printSettings(cmd, s)
			return nil
		},
	}
}

func newTenantSetCmd(e *env) *cobra.Command {
	var (
		in      domain.TenantSettings
		chat    string
		embed   string
		apiKeys []string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the tenant's providers, models and API keys",
		Long: `Only the flags given are changed. --api-key takes provider=key and may be
repeated; an empty key (openai=) removes the stored key.`,
		Example: `  ragctl tenant set -t clinic-a --chat-provider anthropic --api-key anthropic=sk-ant-...
  ragctl tenant set -t global --embedding-provider openai --embedding-model text-embedding-3-small`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, err := e.requireTenant()
			if err != nil {
				return err
			}
			in.TenantID = tenant
			in.ChatProvider = domain.Provider(chat)
			in.EmbeddingProvider = domain.Provider(embed)
			keys, err := parseAPIKeys(apiKeys)
			if err != nil {
				return err
			}
			in.APIKeys = keys

			svc, err := e.services(cmd)
			if err != nil {
				return err
			}
			if err := svc.Settings.UpdateSettings(cmd.Context(), &in); err != nil {
				return err
			}
			s, err := svc.Settings.GetSettings(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			cmd.Printf("%s settings saved for %s\n", color.GreenString("✓"), tenant)
			printSettings(cmd, s)
			return nil
		},
	}
	cmd.Flags().StringVar(&chat, "chat-provider", "", "openai, anthropic, google or ollama")
	cmd.Flags().StringVar(&in.ChatModel, "chat-model", "", "chat model name")
	cmd.Flags().StringVar(&embed, "embedding-provider", "", "openai, google or ollama")
	cmd.Flags().StringVar(&in.EmbeddingModel, "embedding-model", "", "embedding model name")
	cmd.Flags().StringArrayVar(&apiKeys, "api-key", nil, "provider=key, repeatable")
	return cmd
}

func parseAPIKeys(raw []string) (map[domain.Provider]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	keys := make(map[domain.Provider]string, len(raw))
	for _, kv := range raw {
		name, key, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--api-key %q: want provider=key", name)
		}
		p, ok := domain.ParseProvider(name)
		if !ok {
			return nil, fmt.Errorf("--api-key: unknown provider %q", name)
		}
		keys[p] = key
	}
	return keys, nil
}

func printSettings(cmd *cobra.Command, s *domain.TenantSettings) {
	show := func(v string) string {
		if v == "" {
			return color.HiBlackString("(inherited)")
		}
		return v
	}
	cmd.Printf("  chat:       %s %s\n", show(string(s.ChatProvider)), s.ChatModel)
	cmd.Printf("  embeddings: %s %s\n", show(string(s.EmbeddingProvider)), s.EmbeddingModel)
	var configured []string
	for p := range s.APIKeys {
		if s.APIKey(p) != "" {
			configured = append(configured, string(p))
		}
	}
	sort.Strings(configured)
	cmd.Printf("  api keys:   %s\n", show(strings.Join(configured, ", ")))
}
