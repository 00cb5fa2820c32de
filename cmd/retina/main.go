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
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/retina/internal/assets"
	"github.com/pavelanni/retina/internal/catalog"
	"github.com/pavelanni/retina/internal/handler"
	appI18n "github.com/pavelanni/retina/internal/i18n"
	"github.com/pavelanni/retina/internal/model"
	"github.com/pavelanni/retina/internal/session"
	"github.com/pavelanni/retina/internal/store"
	"github.com/pavelanni/retina/internal/tutor"
	"github.com/pavelanni/retina/internal/tutor/prompts"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "retina",
		Short: "Retina curriculum and clinical case trainer",
	}

	serve := serveCmd()
	root.AddCommand(serve, validateCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "retina.db", "SQLite database path")
	f.StringP("catalog", "c", "", "Catalog file (.yaml, .yml or .json); empty uses the built-in curriculum")
	f.String("asset-dir", "images", "Directory searched for topic images")
	f.StringP("lang", "l", "en", "Default UI language (en, es)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /retina)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("session-store", session.StoreMemory, "Session store (memory, sqlite)")
	f.Duration("session-lifetime", 12*time.Hour, "Session lifetime")
	f.String("llm-url", "", "OpenAI-compatible API base URL; empty disables the tutor")
	f.String("llm-key", "ollama", "API key for the tutor")
	f.String("llm-model", "llama3.2", "Tutor model name")
	f.String("tutor-variant", string(prompts.VariantStandard), "Tutor prompt variant (brief, standard, detailed)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a catalog",
		RunE:  runValidate,
	}
	f := cmd.Flags()
	f.StringP("catalog", "c", "", "Catalog file; empty validates the built-in curriculum")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export per-question answer statistics as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "retina.db", "SQLite database path")
	f.StringP("catalog", "c", "", "Catalog used to label questions; empty uses the built-in curriculum")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
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

	v.SetEnvPrefix("RETINA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("retina")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/retina")
	v.AddConfigPath("/etc/retina")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

	cat, err := catalog.Load(v.GetString("catalog"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	changed, err := db.RecordCatalog(cat.Hash(), cat.Source())
	if err != nil {
		return fmt.Errorf("record catalog: %w", err)
	}
	if changed {
		slog.Warn("catalog changed since the last run; answer statistics may mix versions", "source", cat.Source())
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// The tutor is optional: a failed health check disables it.
	var tut handler.Tutor
	if url := v.GetString("llm-url"); url != "" {
		client, err := tutor.New(url, v.GetString("llm-key"), v.GetString("llm-model"), v.GetString("tutor-variant"))
		if err != nil {
			return fmt.Errorf("create tutor client: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		err = client.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("tutor endpoint unavailable, tutor disabled", "url", url, "error", err)
		} else {
			slog.Info("tutor endpoint OK", "url", url, "model", v.GetString("llm-model"))
			tut = client
		}
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.AppConfig{
		BasePath:        basePath,
		SecureCookies:   v.GetBool("secure-cookies"),
		AssetDir:        v.GetString("asset-dir"),
		SessionStore:    strings.ToLower(v.GetString("session-store")),
		SessionLifetime: v.GetDuration("session-lifetime"),
	}

	var sessionStore scs.Store
	switch cfg.SessionStore {
	case session.StoreMemory:
	case session.StoreSQLite:
		ss := db.SessionStore(5 * time.Minute)
		defer ss.StopCleanup()
		sessionStore = ss
	default:
		return fmt.Errorf("unknown session store %q (want %s or %s)", cfg.SessionStore, session.StoreMemory, session.StoreSQLite)
	}
	sessions := session.New(sessionStore, session.Options{
		Lifetime:   cfg.SessionLifetime,
		CookiePath: cfg.CookiePath(),
		Secure:     cfg.SecureCookies,
	})

	h, err := handler.New(cat, sessions, db, assets.New(cfg.AssetDir), tut, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

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

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", srv.Addr,
			"lang", lang,
			"catalog", cat.Source(),
			"modules", len(cat.ModuleIDs()),
			"cases", len(cat.CaseIDs()),
			"session_store", cfg.SessionStore,
			"tutor", tut != nil,
			"base_path", basePath,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cat, err := catalog.Load(v.GetString("catalog"))
	if err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d modules, %d cases, %d questions\nsha256 %s\n",
		cat.Source(), len(cat.ModuleIDs()), len(cat.CaseIDs()), cat.QuestionCount(), cat.Hash())
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cat, err := catalog.Load(v.GetString("catalog"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportStats(cat)
	if err != nil {
		return fmt.Errorf("export stats: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
