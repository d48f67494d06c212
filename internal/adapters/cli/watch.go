package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

const defaultSettleDelay = 2 * time.Second

func newWatchCmd(e *env) *cobra.Command {
	var (
		opts   ingestOptions
		settle time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Ingest files as they appear in a directory",
		Long: `Watches a directory and uploads each new or rewritten file once it has
been quiet for the settle delay. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := e.requireTenant()
			if err != nil {
				return err
			}
			svc, err := e.services(cmd)
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()
			if err := watcher.Add(args[0]); err != nil {
				return fmt.Errorf("watch %s: %w", args[0], err)
			}
			cmd.Printf("Watching %s for tenant %s\n", args[0], tenant)

			pending := newDebouncer(settle)
			ticker := time.NewTicker(max(settle/4, 50*time.Millisecond))
			defer ticker.Stop()

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					pending.observe(ev, time.Now())
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					cmd.PrintErrln(color.YellowString("watch error: %v", err))
				case now := <-ticker.C:
					for _, path := range pending.ready(now) {
						doc, err := ingestFile(ctx, svc, tenant, path, opts)
						switch {
						case err != nil:
							cmd.Printf("%s %s: %v\n", color.RedString("✗"), path, err)
						case doc.Status == domain.StatusError:
							cmd.Printf("%s %s: %s\n", color.RedString("✗"), path, doc.Error)
						default:
							cmd.Printf("%s %s → %s (%s)\n", color.GreenString("✓"), path, doc.ID, doc.Status)
						}
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "document category (default general)")
	cmd.Flags().StringVar(&opts.uploadedBy, "uploaded-by", os.Getenv("USER"), "uploader recorded on the document")
	cmd.Flags().DurationVar(&settle, "settle", defaultSettleDelay, "quiet period before a changed file is ingested")
	return cmd
}

// debouncer holds changed paths until no event touched them for delay.
type debouncer struct {
	delay time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, last: make(map[string]time.Time)}
}

func (d *debouncer) observe(ev fsnotify.Event, at time.Time) {
	if isHidden(filepath.Base(ev.Name)) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(d.last, ev.Name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		d.last[ev.Name] = at
	}
}

// ready returns settled regular files, sorted, and forgets them.
func (d *debouncer) ready(now time.Time) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for path, at := range d.last {
		if now.Sub(at) < d.delay {
			continue
		}
		delete(d.last, path)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}
