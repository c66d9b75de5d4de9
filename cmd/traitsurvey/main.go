package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/traitsurvey/internal/catalog"
	"github.com/pavelanni/traitsurvey/internal/handler"
	appI18n "github.com/pavelanni/traitsurvey/internal/i18n"
	"github.com/pavelanni/traitsurvey/internal/llm"
	"github.com/pavelanni/traitsurvey/internal/llm/prompts"
	"github.com/pavelanni/traitsurvey/internal/model"
	"github.com/pavelanni/traitsurvey/internal/report"
	"github.com/pavelanni/traitsurvey/internal/scoring"
	"github.com/pavelanni/traitsurvey/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "traitsurvey",
		Short:        "Kindergarten Big Five observation questionnaire",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, scoreCmd(), reportCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `traitsurvey --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP survey server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", ":memory:", "SQLite database path (:memory: keeps everything in RAM)")
	f.StringP("catalog", "c", "", "Questionnaire catalog YAML file (empty = built-in)")
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /kg)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("admin-password", "", "Initial admin password (or set TRAITSURVEY_ADMIN_PASSWORD)")
	f.String("llm-url", "", "OpenAI-compatible API base URL for summaries (empty = disabled)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("summary-variant", string(prompts.VariantStandard), "Summary prompt variant (brief, standard, detailed)")
	addLogFlags(cmd)
	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an answers file and print the results",
		RunE:  runScore,
	}
	f := cmd.Flags()
	f.String("answers", "", "Answers file, JSON or YAML list of {item_id, score} (required)")
	f.StringP("catalog", "c", "", "Questionnaire catalog YAML file (empty = built-in)")
	f.StringP("format", "f", "json", "Output format (json, yaml)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a PDF report from an answers file",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("answers", "", "Answers file, JSON or YAML list of {item_id, score} (required)")
	f.StringP("catalog", "c", "", "Questionnaire catalog YAML file (empty = built-in)")
	f.String("respondent", "", "Child's name or initials printed on the report")
	f.String("title", "Assessment results", "Report title")
	f.StringP("output", "o", "assessment-results.pdf", "Output PDF path (- for stdout)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export completed surveys with scores as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "traitsurvey.db", "SQLite database path")
	f.StringP("catalog", "c", "", "Questionnaire catalog YAML file (empty = built-in)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TRAITSURVEY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("traitsurvey")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/traitsurvey")
	v.AddConfigPath("/etc/traitsurvey")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cat, err := catalog.LoadFile(v.GetString("catalog"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	changed, err := db.CheckCatalog(cat.Hash())
	if err != nil {
		return fmt.Errorf("check catalog: %w", err)
	}
	if changed {
		slog.Warn("catalog changed since answers were recorded; old reports are scored against the new catalog")
	}
	if n, err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("failed to clean up login sessions", "error", err)
	} else if n > 0 {
		slog.Info("removed expired login sessions", "count", n)
	}

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	langs := appI18n.Languages()
	if !slices.Contains(langs, lang) {
		slog.Warn("no locale for default language, untranslated pages show message IDs",
			"lang", lang, "available", langs)
	}
	slog.Info("locales loaded", "default", lang, "available", langs)

	variant := strings.ToLower(strings.TrimSpace(v.GetString("summary-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid summary-variant, using standard", "variant", variant)
		variant = string(prompts.VariantStandard)
	}

	var summarizer handler.Summarizer
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		client, err := llm.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"), variant)
		if err != nil {
			return fmt.Errorf("create LLM client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = client.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		summarizer = client
	}

	basePath := normalizeBasePath(v.GetString("base-path"))
	cfg := model.SurveyConfig{
		BasePath:       basePath,
		SecureCookies:  v.GetBool("secure-cookies"),
		SummaryVariant: variant,
	}

	h, err := handler.New(db, cat, summarizer, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware())

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"items", cat.Len(),
		"lang", lang,
		"base_path", basePath,
		"summaries", summarizer != nil,
		"summary_variant", cfg.SummaryVariant,
	)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		cleanupLoginSessions(gctx, db, time.Hour)
		return nil
	})
	return g.Wait()
}

// cleanupLoginSessions removes expired login tokens every interval until
// ctx is done.
func cleanupLoginSessions(ctx context.Context, db *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanupExpiredSessions()
			if err != nil {
				slog.Warn("failed to clean up login sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("removed expired login sessions", "count", n)
			}
		}
	}
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func runScore(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cat, err := catalog.LoadFile(v.GetString("catalog"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	answers, err := readAnswers(v.GetString("answers"), cat)
	if err != nil {
		return err
	}
	scores := scoring.Compute(cat, answers)

	out := cmd.OutOrStdout()
	switch strings.ToLower(v.GetString("format")) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(scores); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scores)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", v.GetString("format"))
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cat, err := catalog.LoadFile(v.GetString("catalog"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	answers, err := readAnswers(v.GetString("answers"), cat)
	if err != nil {
		return err
	}

	return writeOutput(cmd, v.GetString("output"), func(w io.Writer) error {
		return report.WritePDF(w, report.Report{
			Title:       v.GetString("title"),
			Respondent:  v.GetString("respondent"),
			GeneratedAt: time.Now(),
			Scores:      scoring.Compute(cat, answers),
		})
	})
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cat, err := catalog.LoadFile(v.GetString("catalog"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if stored, err := db.CatalogHash(); err == nil && stored != "" && stored != cat.Hash() {
		slog.Warn("database was recorded against a different catalog", "stored", stored, "current", cat.Hash())
	}

	export, err := db.ExportSessions(cat)
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeOutput(cmd, v.GetString("output"), func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return err
		}
		// Ensure trailing newline.
		_, err := fmt.Fprintln(w)
		return err
	})
}

// writeOutput runs write against stdout for "-" or a created file.
func writeOutput(cmd *cobra.Command, outPath string, write func(io.Writer) error) error {
	if outPath == "" || outPath == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", outPath, err)
	}
	slog.Info("wrote output", "path", outPath)
	return nil
}

// readAnswers loads an answers file. JSON and YAML are told apart by the
// file extension. Answers to known items must carry a value the item
// offers. Answers for items the catalog does not know are kept; the scorer
// skips them. A repeated item keeps its first position and its last value.
func readAnswers(path string, cat *catalog.Catalog) ([]model.Answer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	var raw []model.Answer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse answers %s: %w", path, err)
	}

	answers := make([]model.Answer, 0, len(raw))
	seen := make(map[string]int, len(raw))
	for i, a := range raw {
		if _, ok := cat.Item(a.ItemID); ok {
			a, err = cat.NewAnswer(a.ItemID, a.Score)
			if err != nil {
				return nil, fmt.Errorf("answer %d in %s: %w", i+1, path, err)
			}
		} else {
			slog.Warn("answer for unknown item ignored", "item_id", a.ItemID)
		}
		if pos, dup := seen[a.ItemID]; dup {
			slog.Warn("repeated answer replaces earlier one", "item_id", a.ItemID)
			answers[pos] = a
			continue
		}
		seen[a.ItemID] = len(answers)
		answers = append(answers, a)
	}
	slog.Debug("read answers", "path", path, "count", len(answers), "items", cat.Len())
	return answers, nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		slog.Warn("no users and no admin password; history pages stay locked",
			"hint", "set --admin-password or TRAITSURVEY_ADMIN_PASSWORD")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
