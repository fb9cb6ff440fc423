package main

import (
	"bufio"
	"context"
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

	"github.com/gin-gonic/gin"
	"github.com/poiesic/tenderqa"
	"github.com/poiesic/tenderqa/config"
	"github.com/poiesic/tenderqa/httpapi"
	"github.com/poiesic/tenderqa/search"
	"github.com/urfave/cli/v2"
)

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	var monitor search.RouteMonitor
	if c.Bool("explain") {
		monitor = search.NewTraceMonitor(os.Stderr)
	}
	answer, err := engine.Query(c.Context, question, monitor)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, answer.Text)
	return nil
}

func chatCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintln(c.App.Writer, "Ask about tenders. Commands: /refresh, /history, /clear, /quit")
	return runChat(c.Context, engine, os.Stdin, c.App.Writer)
}

// runChat reads questions from in until EOF or /quit and writes answers to
// out. The conversation is kept in one session.
func runChat(ctx context.Context, engine *tenderqa.Engine, in io.Reader, out io.Writer) error {
	sess := engine.NewSession()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/refresh":
			st, err := engine.Refresh(ctx)
			if err != nil {
				fmt.Fprintf(out, "Refresh failed: %v\n", err)
			}
			printStatus(out, st)
			continue
		case "/history":
			for _, turn := range sess.Turns() {
				fmt.Fprintf(out, "[%s] %s: %s\n", turn.At.Format(time.Kitchen), turn.Role, turn.Text)
			}
			continue
		case "/clear":
			sess.Clear()
			fmt.Fprintln(out, "History cleared.")
			continue
		}

		answer, err := engine.AskInSession(ctx, sess, line, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, answer.Text)
	}
}

func indexCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg, tenderqa.WithProgress(os.Stderr))
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Source: %s\n", cfg.Source.Location)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	st, err := engine.Refresh(c.Context)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	printStatus(c.App.Writer, st)
	return nil
}

func printStatus(w io.Writer, st tenderqa.Status) {
	if !st.Ready {
		fmt.Fprintln(w, "No index has been built.")
		if st.LastError != "" {
			fmt.Fprintf(w, "Last error: %s\n", st.LastError)
		}
		return
	}
	fmt.Fprintf(w, "Generation: %d\n", st.Generation)
	fmt.Fprintf(w, "Records: %d\n", st.Records)
	fmt.Fprintf(w, "Dimension: %d\n", st.Dimension)
	fmt.Fprintf(w, "Built at: %s\n", st.BuiltAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Fingerprint: %s\n", st.Fingerprint)
	fmt.Fprintf(w, "Embedding cache: %d hit(s), %d miss(es)\n", st.CacheHits, st.CacheMisses)
	if st.LastError != "" {
		fmt.Fprintf(w, "Last error: %s\n", st.LastError)
	}
}

func configCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return config.Encode(c.App.Writer, cfg)
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if !slog.Default().Enabled(c.Context, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Build the first generation before accepting requests. A failure is
	// not fatal; the next question retries.
	if _, err := engine.Refresh(ctx); err != nil {
		slog.Warn("initial index build failed", "err", err)
	}

	go expireSessions(ctx, engine, time.Duration(cfg.Server.SessionIdle))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewRouter(httpapi.NewAPI(engine)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

// expireSessions drops idle sessions until ctx is done.
func expireSessions(ctx context.Context, engine *tenderqa.Engine, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := engine.Sessions().Expire(now, idle); n > 0 {
				slog.Debug("expired idle sessions", "count", n)
			}
		}
	}
}
