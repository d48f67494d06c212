package cli

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type ingestOptions struct {
	category   string
	uploadedBy string
}

func newIngestCmd(e *env) *cobra.Command {
	var opts ingestOptions
	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Upload files or directories into the knowledge base",
		Long: `Uploads every regular file under the given paths. Hidden files and
directories are skipped. With --inline (the default) each file is extracted,
chunked and embedded before the next one starts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := e.requireTenant()
			if err != nil {
				return err
			}
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				cmd.Println("No files to ingest.")
				return nil
			}
			svc, err := e.services(cmd)
			if err != nil {
				return err
			}

			bar := newProgressBar(cmd, len(files), "ingesting")
			var failed []string
			for _, path := range files {
				doc, err := ingestFile(cmd.Context(), svc, tenant, path, opts)
				_ = bar.Add(1)
				switch {
				case err != nil:
					failed = append(failed, fmt.Sprintf("%s: %v", path, err))
				case doc.Status == domain.StatusError:
					failed = append(failed, fmt.Sprintf("%s: %s", path, doc.Error))
				}
			}
			_ = bar.Finish()
			cmd.Println()

			ok := len(files) - len(failed)
			cmd.Printf("%s %d of %d files ingested for %s\n", color.GreenString("✓"), ok, len(files), tenant)
			for _, f := range failed {
				cmd.Printf("  %s %s\n", color.RedString("✗"), f)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d files failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "document category (default general)")
	cmd.Flags().StringVar(&opts.uploadedBy, "uploaded-by", os.Getenv("USER"), "uploader recorded on the document")
	return cmd
}

func newProgressBar(cmd *cobra.Command, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// ingestFile uploads one file and returns the document as stored after the
// upload, which reflects processing when it ran inline.
func ingestFile(ctx context.Context, svc *Services, tenant, path string, opts ingestOptions) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := svc.Ingest.Upload(ctx, domain.UploadRequest{
		TenantID:   tenant,
		Category:   opts.category,
		UploadedBy: opts.uploadedBy,
		Filename:   filepath.Base(path),
		MimeType:   mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Body:       f,
	})
	if err != nil {
		return nil, err
	}
	if current, err := svc.Documents.GetByID(ctx, tenant, doc.ID); err == nil {
		return current, nil
	}
	return doc, nil
}

func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}
