// Package secidcli is the command-line surface: the HTTP server plus one-shot
// commands over the pipeline and the session store.
package secidcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"
	"golang.org/x/time/rate"

	"github.com/username/secid/backend/src/config"
	"github.com/username/secid/backend/src/database"
	"github.com/username/secid/backend/src/handlers"
	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/models"
	"github.com/username/secid/backend/src/processors"
	"github.com/username/secid/backend/src/reports"
	"github.com/username/secid/backend/src/security"
	"github.com/username/secid/backend/src/services"
	"github.com/username/secid/backend/src/store"
)

// App name and usage. Edit them here to prevent breaking tests.
const (
	Name    = "secid"
	Usage   = "Financial identifier validation and session store"
	Version = "1.0.0"
)

// environment holds everything a command needs. Commands build it lazily so
// that help output never touches the database.
type environment struct {
	cfg      *config.AppConfig
	db       *database.SQLite
	batch    services.BatchService
	sessions services.SessionService
	auth     *security.AuthService
}

func setUpEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.InitLogger(cfg.LogLevel)

	db, err := database.InitDB(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:      cfg,
		db:       db,
		batch:    services.NewBatchService(processors.NewRecordClassifier(), processors.NewBatchAggregator()),
		sessions: services.NewSessionService(store.New(db), services.NewReportCache(cfg.SessionCacheTTL)),
		auth:     security.NewAuthService(cfg.JWTSecret, cfg.AdminPasswordHash, cfg.AccessTokenExpiry),
	}, nil
}

func (e *environment) Close() error {
	return e.db.Close()
}

// withEnvironment wraps a command action with environment setup and teardown.
func withEnvironment(action func(ctx context.Context, env *environment, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := context.Background()
		env, err := setUpEnvironment(ctx)
		if err != nil {
			return err
		}
		defer env.Close()
		return action(ctx, env, c)
	}
}

func GetApp() *cli.App {
	return setUpApp()
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = Version
	var (
		port, filePath, sessionName, errorLogPath, outPath string
		search, filter, sortBy, sqlText, password          string
		sessionID                                          int64
		limit                                              int
		asJSON                                             bool
	)
	idFlag := cli.Int64Flag{
		Name:        "id",
		Usage:       "ID of the session",
		Destination: &sessionID,
	}

	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "Start the HTTP API",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "port",
					Usage:       "Port to listen on (overrides PORT)",
					Destination: &port,
				},
			},
			Action: func(c *cli.Context) error {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				env, err := setUpEnvironment(ctx)
				if err != nil {
					return err
				}
				defer env.Close()
				if port == "" {
					port = env.cfg.Port
				}
				fmt.Fprintf(app.Writer, "Starting %s on :%s...\n", Name, port)
				return serve(ctx, env, ":"+port)
			},
		},
		{
			Name:     "validate",
			Category: "Processing",
			Usage:    "Validate the identifiers in a CSV, TSV or XLSX file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "file",
					Usage:       "Input file",
					Destination: &filePath,
				},
				cli.StringFlag{
					Name:        "save",
					Usage:       "Save the result as a session with this name",
					Destination: &sessionName,
				},
				cli.StringFlag{
					Name:        "error-log",
					Usage:       "Write the error log to this path (.csv or .xlsx)",
					Destination: &errorLogPath,
				},
				cli.BoolFlag{
					Name:        "json",
					Usage:       "Print the full result as JSON",
					Destination: &asJSON,
				},
			},
			Action: withEnvironment(func(ctx context.Context, env *environment, c *cli.Context) error {
				if filePath == "" {
					fmt.Fprintf(app.Writer, "file is required\n")
					return errors.New("file is required")
				}
				result, err := processFile(env.batch, filePath)
				if err != nil {
					return err
				}

				if asJSON {
					if err := printJSON(app.Writer, result); err != nil {
						return err
					}
				} else {
					printSummary(app.Writer, result)
				}

				if errorLogPath != "" {
					if err := writeErrorLogFile(errorLogPath, result); err != nil {
						return err
					}
					fmt.Fprintf(app.Writer, "Error log written to %s\n", errorLogPath)
				}

				if sessionName != "" {
					id, err := env.sessions.Save(ctx, sessionName, filepath.Base(filePath), result)
					if err = reportDurability(app.Writer, err); err != nil {
						return err
					}
					fmt.Fprintf(app.Writer, "Saved session %d\n", id)
				}
				return nil
			}),
		},
		{
			Name:     "sessions",
			Category: "Sessions",
			Usage:    "List saved sessions, newest first",
			Action: withEnvironment(func(ctx context.Context, env *environment, c *cli.Context) error {
				sessions, err := env.sessions.ListSessions(ctx)
				if err != nil {
					return err
				}
				printSessions(app.Writer, sessions)
				return nil
			}),
		},
		{
			Name:     "load",
			Category: "Sessions",
			Usage:    "Print the records of a saved session as JSON",
			Flags: []cli.Flag{
				idFlag,
				cli.StringFlag{
					Name:        "search",
					Usage:       "Case-insensitive match on name, ISIN or CUSIP",
					Destination: &search,
				},
				cli.StringFlag{
					Name:        "filter",
					Usage:       "all, errors or valid",
					Destination: &filter,
				},
				cli.StringFlag{
					Name:        "sort",
					Usage:       "row or errors",
					Destination: &sortBy,
				},
			},
			Action: withEnvironment(func(ctx context.Context, env *environment, c *cli.Context) error {
				f, err := models.NewRecordFilter(search, filter, sortBy)
				if err != nil {
					return err
				}
				result, err := env.sessions.Load(ctx, sessionID)
				if err != nil {
					return err
				}
				return printJSON(app.Writer, result.FilterRecords(f))
			}),
		},
		{
			Name:     "delete",
			Category: "Sessions",
			Usage:    "Delete a saved session",
			Flags:    []cli.Flag{idFlag},
			Action: withEnvironment(func(ctx context.Context, env *environment, c *cli.Context) error {
				if err := reportDurability(app.Writer, env.sessions.Delete(ctx, sessionID)); err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "Deleted session %d\n", sessionID)
				return nil
			}),
		},
		{
			Name:     "query",
			Category: "Database",
			Usage:    "Run one SQL statement against the session store",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "sql",
					Usage:       "Statement to run; remaining arguments are used when omitted",
					Destination: &sqlText,
				},
			},
			Action: withEnvironment(func(ctx context.Context, env *environment, c *cli.Context) error {
				statement := sqlText
				if statement == "" {
					statement = strings.Join(c.Args(), " ")
				}
				result, err := env.sessions.RunQuery(ctx, statement)
				if err = reportDurability(app.Writer, err); err != nil {
					return err
				}
				printQueryResult(app.Writer, result)
				return nil
			}),
		},
		{
			Name:     "export",
			Category: "Database",
			Usage:    "Write a snapshot of the database file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "out",
					Usage:       "Destination path (defaults to financial_id_database_<date>.db)",
					Destination: &outPath,
				},
			},
			Action: withEnvironment(func(ctx context.Context, env *environment, c *cli.Context) error {
				data, err := env.sessions.Export(ctx)
				if err != nil {
					return err
				}
				dest := outPath
				if dest == "" {
					dest = reports.DatabaseExportFilename(time.Now())
				}
				if err := os.WriteFile(filepath.Clean(dest), data, 0o600); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				fmt.Fprintf(app.Writer, "Database exported to %s\n", dest)
				return nil
			}),
		},
		{
			Name:     "stats",
			Category: "Database",
			Usage:    "Print row counts for sessions, records and errors",
			Action: withEnvironment(func(ctx context.Context, env *environment, c *cli.Context) error {
				stats, err := env.sessions.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "Sessions: %d\nRecords: %d\nErrors: %d\n", stats.TotalSessions, stats.TotalRecords, stats.TotalErrors)
				return nil
			}),
		},
		{
			Name:     "audit",
			Category: "Database",
			Usage:    "Print the newest audit log entries",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:        "limit",
					Usage:       "Maximum number of entries",
					Value:       100,
					Destination: &limit,
				},
			},
			Action: withEnvironment(func(ctx context.Context, env *environment, c *cli.Context) error {
				entries, err := env.sessions.AuditLog(ctx, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(app.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tACTION\tSESSION\tTIMESTAMP\tDETAILS")
				for _, e := range entries {
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", e.ID, e.Action, e.SessionID, e.Timestamp.Format(time.RFC3339), e.Details)
				}
				return w.Flush()
			}),
		},
		{
			Name:     "hash-password",
			Category: "Authentication tools",
			Usage:    "Print a bcrypt hash suitable for ADMIN_PASSWORD_HASH",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "password",
					Usage:       "Admin passphrase",
					Destination: &password,
				},
			},
			Action: func(c *cli.Context) error {
				if password == "" {
					return errors.New("password is required")
				}
				hash, err := security.NewAuthService("", "", 0).HashPassword(password)
				if err != nil {
					return err
				}
				fmt.Fprintln(app.Writer, hash)
				return nil
			},
		},
	}
	return app
}

func serve(ctx context.Context, env *environment, addr string) error {
	router := handlers.NewRouter(handlers.RouterConfig{
		BatchService:   env.batch,
		SessionService: env.sessions,
		AuthService:    env.auth,
		Limiter:        rate.NewLimiter(rate.Limit(env.cfg.RateLimitPerSecond), env.cfg.RateLimitBurst),
		AllowedOrigins: env.cfg.AllowedOrigins,
		MaxUploadSize:  env.cfg.MaxUploadSizeBytes,
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("Server starting", "address", addr, "authEnabled", env.auth.Enabled())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("Failed to start server", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		logger.L.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.L.Info("Server stopped gracefully.")
		return nil
	}
}

func processFile(batch services.BatchService, path string) (*models.BatchResult, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("unable to open file %s: %w", path, err)
	}
	defer f.Close()
	return batch.Process(f, path)
}

func writeErrorLogFile(path string, result *models.BatchResult) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = reports.WriteErrorLogXLSX(f, reports.ErrorLogRows(result))
	} else {
		err = reports.WriteErrorLogCSV(f, reports.ErrorLogRows(result))
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// reportDurability prints a durability failure as a warning and swallows it.
func reportDurability(w io.Writer, err error) error {
	if err != nil && errors.Is(err, models.ErrDurability) {
		fmt.Fprintf(w, "warning: %v\n", err)
		return nil
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, result *models.BatchResult) {
	fmt.Fprintf(w, "Total: %d  Valid: %d  Errors: %d  Warnings: %d\n",
		result.Total, result.ValidCount, result.ErrorCount, result.WarningCount)
	if result.Stats != nil {
		fmt.Fprintf(w, "Run %s: %s in %s (%.0f records/s)\n",
			result.Stats.RunID, result.Stats.InputSize, result.Stats.Elapsed.Round(time.Millisecond), result.Stats.RecordsPerSecond)
	}
	for _, r := range result.ErrorRecords {
		for _, fe := range r.Errors {
			fmt.Fprintf(w, "row %d %s: %s %s (%s)\n", r.RowNumber, r.EntityName, fe.Field, fe.Message, fe.Severity)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "row %d %s: %s\n", warning.RowNumber, warning.EntityName, warning.Message)
	}
}

func printSessions(w io.Writer, sessions []models.Session) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFILE\tSAVED\tTOTAL\tVALID\tERRORS\tWARNINGS")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			s.ID, s.Name, s.SourceFilename, s.CreatedAt.Format(time.RFC3339), s.Total, s.ValidCount, s.ErrorCount, s.WarningCount)
	}
	tw.Flush()
}

func printQueryResult(w io.Writer, result *models.QueryResult) {
	for i, table := range result.Tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(table.Columns, "\t"))
		for _, row := range table.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				if v == nil {
					cells[i] = "NULL"
				} else {
					cells[i] = fmt.Sprint(v)
				}
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		tw.Flush()
	}
	if len(result.Tables) == 0 || result.RowsAffected > 0 {
		fmt.Fprintf(w, "%d rows affected\n", result.RowsAffected)
	}
}
