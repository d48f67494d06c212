// Package cli implements ragctl, the operator command line for ingesting
// documents, querying them and managing tenant provider settings.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/bootstrap"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/config"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/observability/logging"
)

// Services are the use cases the commands drive.
type Services struct {
	Ingest    ports.DocumentIngestor
	Documents ports.DocumentManager
	Search    ports.SemanticSearcher
	Settings  ports.TenantSettingsService
	// Store describes the opened store for operator output.
	Store string
}

type ConnectOptions struct {
	// Inline processes uploads in this process instead of publishing them.
	Inline bool
}

// Connector opens the services; the returned func releases them.
type Connector func(ctx context.Context, opts ConnectOptions) (*Services, func(), error)

type env struct {
	connect Connector
	svc     *Services
	release func()

	tenant string
	inline bool
}

func (e *env) services(cmd *cobra.Command) (*Services, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	svc, release, err := e.connect(cmd.Context(), ConnectOptions{Inline: e.inline})
	if err != nil {
		return nil, err
	}
	e.svc, e.release = svc, release
	return svc, nil
}

func (e *env) close() {
	if e.release != nil {
		e.release()
		e.release = nil
	}
}

func (e *env) requireTenant() (string, error) {
	if e.tenant == "" {
		return "", errors.New("tenant is required: pass --tenant or set RAG_TENANT")
	}
	return e.tenant, nil
}

func NewRootCommand(connect Connector) *cobra.Command {
	e := &env{connect: connect}
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Manage and query the clinic knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&e.tenant, "tenant", "t", os.Getenv("RAG_TENANT"), "tenant (clinic) id")
	root.PersistentFlags().BoolVar(&e.inline, "inline", true, "process uploads in this process instead of the queue")

	root.AddCommand(
		newMigrateCmd(e),
		newIngestCmd(e),
		newWatchCmd(e),
		newSearchCmd(e),
		newContextCmd(e),
		newDocumentsCmd(e),
		newReprocessCmd(e),
		newTenantCmd(e),
		newMCPCmd(e),
	)
	releaseAfterRun(root, e)
	return root
}

// releaseAfterRun closes opened services when any command returns, including
// on error, which PersistentPostRun does not cover.
func releaseAfterRun(c *cobra.Command, e *env) {
	if run := c.RunE; run != nil {
		c.RunE = func(cmd *cobra.Command, args []string) error {
			defer e.close()
			return run(cmd, args)
		}
	}
	for _, sub := range c.Commands() {
		releaseAfterRun(sub, e)
	}
}

// Execute runs the command line and prints failures in red.
func Execute(ctx context.Context, root *cobra.Command) int {
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), color.RedString("error: %v", err))
		return 1
	}
	return 0
}

// BootstrapConnector wires the full application from the environment.
func BootstrapConnector(ctx context.Context, opts ConnectOptions) (*Services, func(), error) {
	cfg := config.Load()
	if opts.Inline {
		cfg.IngestMode = bootstrap.IngestModeInline
	}
	logger := logging.New(os.Stderr, "ragctl", cfg.LogLevel, "text")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	store := cfg.StoreDriver
	if store == bootstrap.StoreDriverSQLite {
		store += " (" + cfg.SQLitePath + ")"
	}
	return &Services{
		Ingest:    app.IngestUC,
		Documents: app.DocumentUC,
		Search:    app.SearchUC,
		Settings:  app.SettingsUC,
		Store:     store,
	}, app.Close, nil
}
