package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"wordloop-backend/internal/catalog"
	"wordloop-backend/internal/config"
	"wordloop-backend/internal/database"
	"wordloop-backend/internal/logging"
	"wordloop-backend/internal/models"
	"wordloop-backend/internal/repository"
)

type wordImporter interface {
	BulkInsert(ctx context.Context, words []models.Word) (int64, error)
	DeleteAll(ctx context.Context) error
}

type templateImporter interface {
	BulkInsert(ctx context.Context, templates []models.ArticleTemplate) (int64, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "wordctl",
		Short:         "Manage the WordLoop word catalog and article templates",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.New(logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(newMigrateCmd(), newImportWordsCmd(), newImportTemplatesCmd())
	return root
}

func connect(ctx context.Context) (*pgxpool.Pool, *config.Config, error) {
	cfg := config.Load()
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pool, cfg, nil
}

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			if err := database.RunMigrations(ctx, pool, dir); err != nil {
				return err
			}
			slog.Info("✓ migrations applied", "dir", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (default MIGRATIONS_DIR)")
	return cmd
}

type importWordsOptions struct {
	format   string
	sheet    string
	startRow int
	replace  bool
}

func newImportWordsCmd() *cobra.Command {
	var opts importWordsOptions

	cmd := &cobra.Command{
		Use:   "import-words FILE",
		Short: "Parse a vocabulary export and bulk insert it into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := parseWords(args[0], opts)
			if err != nil {
				return err
			}
			if len(words) == 0 {
				return fmt.Errorf("no words found in %s", args[0])
			}

			ctx := cmd.Context()
			pool, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := importWords(ctx, repository.NewTxManager(pool), repository.NewWordRepo(pool), words, opts.replace)
			if err != nil {
				return err
			}
			slog.Info("✓ words imported", "file", args[0], "rows", n, "replaced", opts.replace)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "", "sql, xlsx or pdf (default from the file extension)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "xlsx sheet name (default first sheet)")
	cmd.Flags().IntVar(&opts.startRow, "start-row", 2, "first xlsx data row, 1-based")
	cmd.Flags().BoolVar(&opts.replace, "replace", false, "delete the existing catalog and every mastery record first")
	return cmd
}

func detectFormat(path, explicit string) (string, error) {
	format := strings.ToLower(explicit)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case "sql", "xlsx", "pdf":
		return format, nil
	}
	return "", fmt.Errorf("unsupported format %q (want sql, xlsx or pdf)", format)
}

// parseWords reads the file and drops repeated headwords, which the
// catalog's unique headword index would reject.
func parseWords(path string, opts importWordsOptions) ([]models.Word, error) {
	words, err := readWords(path, opts)
	if err != nil {
		return nil, err
	}
	words, dropped := catalog.Dedupe(words)
	if dropped > 0 {
		slog.Warn("dropped duplicate headwords", "count", dropped)
	}
	return words, nil
}

func readWords(path string, opts importWordsOptions) ([]models.Word, error) {
	format, err := detectFormat(path, opts.format)
	if err != nil {
		return nil, err
	}

	if format == "pdf" {
		return catalog.ParsePDF(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if format == "xlsx" {
		return catalog.ParseXLSX(f, catalog.XLSXOptions{Sheet: opts.sheet, StartRow: opts.startRow})
	}

	words, skipped, err := catalog.ParseSQLDump(f)
	if skipped > 0 {
		slog.Warn("skipped unparseable rows", "count", skipped)
	}
	return words, err
}

func importWords(ctx context.Context, tx txRunner, repo wordImporter, words []models.Word, replace bool) (int64, error) {
	var n int64
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		if replace {
			if err := repo.DeleteAll(ctx); err != nil {
				return fmt.Errorf("clear catalog: %w", err)
			}
		}
		var err error
		n, err = repo.BulkInsert(ctx, words)
		if err != nil {
			return fmt.Errorf("insert words: %w", err)
		}
		return nil
	})
	return n, err
}

func newImportTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-templates FILE.json",
		Short: "Load generic articles served to readers who have not unlocked personal ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			templates, err := catalog.ParseTemplates(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := importTemplates(ctx, repository.NewTemplateRepo(pool), templates)
			if err != nil {
				return err
			}
			slog.Info("✓ templates imported", "file", args[0], "rows", n)
			return nil
		},
	}
}

func importTemplates(ctx context.Context, repo templateImporter, templates []models.ArticleTemplate) (int64, error) {
	if len(templates) == 0 {
		return 0, fmt.Errorf("template file is empty")
	}
	return repo.BulkInsert(ctx, templates)
}
