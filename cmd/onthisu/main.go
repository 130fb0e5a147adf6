package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ngochuy/onthisu/internal/handler"
	"github.com/ngochuy/onthisu/internal/sheet"
	"github.com/ngochuy/onthisu/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "onthisu",
		Short: "History exam practice: spreadsheet-backed quizzes with timed sessions",
	}

	serve := serveCmd()
	root.AddCommand(serve, examCmd(), historyCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `onthisu --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":3000", "HTTP listen address")
	f.String("db", "onthisu.db", "SQLite database path")
	f.String("sheet-id", "", "Google spreadsheet ID holding the question sheets")
	f.String("credentials-file", "", "Path to service account JSON (or set GOOGLE_SERVICE_ACCOUNT_JSON)")
	f.String("allowed-origin", "http://localhost:5173", "Allowed CORS origin for the browser client")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func examCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Take a timed exam in the terminal",
		RunE:  runExam,
	}
	f := cmd.Flags()
	f.StringP("server", "s", "http://localhost:3000", "Quiz server base URL")
	f.StringP("lang", "l", "vi", "UI language (vi, en)")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a student's past results",
		RunE:  runHistory,
	}
	f := cmd.Flags()
	f.StringP("server", "s", "http://localhost:3000", "Quiz server base URL")
	f.StringP("user", "u", "", "Student name (required)")
	f.StringP("lang", "l", "vi", "UI language (vi, en)")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all stored results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "onthisu.db", "SQLite database path")
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

	v.SetEnvPrefix("ONTHISU")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// The spreadsheet config keeps the Google-conventional variable names.
	_ = v.BindEnv("sheet-id", "ONTHISU_SHEET_ID", "GOOGLE_SHEET_ID")
	_ = v.BindEnv("credentials-json", "GOOGLE_SERVICE_ACCOUNT_JSON")

	v.SetConfigName("onthisu")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/onthisu")
	v.AddConfigPath("/etc/onthisu")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	// A local .env may carry the Google credentials.
	_ = godotenv.Load()

	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	creds, err := loadCredentials(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	source, err := sheet.NewService(ctx, v.GetString("sheet-id"), creds)
	if err != nil {
		return fmt.Errorf("create sheets client: %w", err)
	}

	h := handler.New(db, source)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{v.GetString("allowed-origin")},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"sheet_id", v.GetString("sheet-id"),
		"allowed_origin", v.GetString("allowed-origin"),
	)
	return http.ListenAndServe(addr, r)
}

// loadCredentials reads service account JSON either from the file named by
// --credentials-file or directly from GOOGLE_SERVICE_ACCOUNT_JSON.
func loadCredentials(v *viper.Viper) ([]byte, error) {
	if path := v.GetString("credentials-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	}
	if raw := v.GetString("credentials-json"); raw != "" {
		return []byte(raw), nil
	}
	return nil, fmt.Errorf("missing Google credentials: set --credentials-file or GOOGLE_SERVICE_ACCOUNT_JSON")
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.AllResults()
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
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
