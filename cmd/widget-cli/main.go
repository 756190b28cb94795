// ABOUTME: Interactive terminal harness driving the widget runtime against a real backend.
// ABOUTME: Sessions persist in sqlite; ratings and comments work via slash commands.

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/bridge"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/config"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/feedback"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/render"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/store"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transcript"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/widget"
)

func main() {
	profilePath := flag.String("profile", defaultProfilePath(), "Path to TOML profile")
	origin := flag.String("origin", "", "Backend origin (overrides profile)")
	chatbotID := flag.String("chatbot", "", "Chatbot ID (overrides profile)")
	fresh := flag.Bool("fresh", false, "Ignore the stored session and start a new one")
	flag.Parse()

	profile, err := loadProfile(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := buildConfig(profile, *origin, *chatbotID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, *fresh); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, fresh bool) error {
	kv, err := openKV(ctx, cfg, fresh)
	if err != nil {
		return err
	}

	c, err := widget.New(ctx, widget.Options{
		Config: cfg,
		KV:     kv,
		Status: bridge.Open(bridge.StatusChannelName),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("starting widget: %w", err)
	}
	c.Open()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	cyan.Printf("widget-cli connected to %s\n", cfg.Backend.Origin)
	gray.Printf("session %s", c.SessionToken())
	if cfg.Widget.ChatbotID != "" {
		gray.Printf("  chatbot %s", cfg.Widget.ChatbotID)
	}
	fmt.Println()
	if c.Paused() {
		printPaused(c)
	} else if g := c.Overrides().Greeting; g != "" {
		printAgent(g)
	}
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	// An interrupt is an abrupt teardown; a /quit is a graceful one
	graceful := false
	defer func() {
		if graceful {
			c.Destroy(context.Background())
		} else {
			c.Teardown()
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)
		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				graceful = true
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			graceful = true
			return nil
		}

		if strings.HasPrefix(input, "/") {
			handleCommand(ctx, c, input)
			fmt.Println()
			continue
		}

		sendAndPrint(ctx, c, input)
		fmt.Println()
	}
}

func openKV(ctx context.Context, cfg *config.Config, fresh bool) (store.KV, error) {
	var kv store.KV
	if cfg.Storage.Path != "" {
		sqliteKV, err := store.NewSQLiteKV(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("opening session store: %w", err)
		}
		kv = sqliteKV
	} else {
		kv = store.NewMemory()
	}

	if fresh {
		key := "session_id"
		if cfg.Widget.ChatbotID != "" {
			key = "session_id:" + cfg.Widget.ChatbotID
		}
		if err := kv.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("clearing stored session: %w", err)
		}
	}
	return kv, nil
}

func sendAndPrint(ctx context.Context, c *widget.Controller, text string) {
	before := len(c.Transcript())

	if err := c.Send(ctx, text); err != nil {
		switch err {
		case widget.ErrPaused:
			printPaused(c)
		default:
			color.Red("[error] %v", err)
		}
		return
	}

	turns := c.Transcript()
	for _, turn := range turns[before:] {
		if turn.Role != transcript.RoleAgent {
			continue
		}
		printAgent(turn.Text)
		for _, src := range turn.Sources {
			color.New(color.FgHiBlack).Printf("  source (%.2f): %s\n", src.Similarity, snippet(src.Content))
		}
		if turn.HasFeedbackKey() {
			color.New(color.FgHiBlack).Printf("  rate with /+ %s or /- %s\n", turn.TurnID, turn.TurnID)
		}
	}
}

func handleCommand(ctx context.Context, c *widget.Controller, input string) {
	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/help":
		printHelp()
	case "/open":
		c.Open()
		fmt.Println("Widget open")
	case "/close":
		c.Close()
		fmt.Println("Widget closed")
	case "/status":
		printStatus(c)
	case "/transcript":
		printTranscript(c)
	case "/+":
		if args == "" {
			fmt.Println("Usage: /+ <turn_id>")
			return
		}
		if err := c.RatePositive(ctx, args); err != nil {
			color.Red("[error] %v", err)
			return
		}
		color.Green("Rated %s positive", args)
	case "/-":
		if args == "" {
			fmt.Println("Usage: /- <turn_id>")
			return
		}
		if err := c.RateNegative(args); err != nil {
			color.Red("[error] %v", err)
			return
		}
		color.Yellow("Rated %s negative; add detail with /comment %s <text>", args, args)
	case "/comment":
		turnID, text, _ := strings.Cut(args, " ")
		if turnID == "" {
			fmt.Println("Usage: /comment <turn_id> [text]")
			return
		}
		if err := c.SubmitComment(ctx, turnID, text); err != nil {
			color.Red("[error] %v", err)
			return
		}
		color.Green("Feedback submitted for %s", turnID)
	case "/export":
		if args == "" {
			fmt.Println("Usage: /export <file.html>")
			return
		}
		if err := exportTranscript(c, args); err != nil {
			color.Red("[error] %v", err)
			return
		}
		fmt.Printf("Transcript written to %s\n", args)
	default:
		fmt.Printf("Unknown command %s. /help for commands.\n", cmd)
	}
}

func printAgent(text string) {
	color.New(color.FgGreen).Print("agent: ")
	fmt.Println(text)
}

func printPaused(c *widget.Controller) {
	msg := c.PausedMessage()
	if msg == "" {
		msg = "This chatbot is currently paused."
	}
	color.Yellow("[paused] %s", msg)
}

func printStatus(c *widget.Controller) {
	ov := c.Overrides()
	fmt.Printf("session:    %s\n", c.SessionToken())
	fmt.Printf("visibility: %s\n", c.Visibility())
	fmt.Printf("paused:     %v\n", c.Paused())
	if ov.Title != "" {
		fmt.Printf("title:      %s\n", ov.Title)
	}
	if ov.Subtitle != "" {
		fmt.Printf("subtitle:   %s\n", ov.Subtitle)
	}
}

func printTranscript(c *widget.Controller) {
	turns := c.Transcript()
	if len(turns) == 0 {
		fmt.Println("(empty)")
		return
	}
	for _, turn := range turns {
		label := string(turn.Role)
		line := fmt.Sprintf("%s: %s", label, turn.Text)
		if turn.Role == transcript.RoleUser {
			fmt.Println(line)
		} else {
			color.Green(line)
		}
		if turn.HasFeedbackKey() {
			state := c.FeedbackState(turn.TurnID)
			if state == feedback.Unrated {
				color.New(color.FgHiBlack).Printf("  [%s] unrated\n", turn.TurnID)
			} else {
				color.New(color.FgHiBlack).Printf("  [%s] %s\n", turn.TurnID, state)
			}
		}
	}
}

// exportTranscript writes the conversation as a standalone HTML page,
// running agent turns through the same markdown pipeline the widget view
// uses.
func exportTranscript(c *widget.Controller, path string) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Transcript</title></head><body>\n")
	for _, turn := range c.Transcript() {
		if turn.Role == transcript.RoleUser {
			fmt.Fprintf(&b, "<p class=\"user\"><strong>user:</strong> %s</p>\n", render.EscapeText(turn.Text))
		} else {
			fmt.Fprintf(&b, "<div class=\"agent\">%s</div>\n", render.AgentMarkdown(turn.Text))
		}
	}
	b.WriteString("</body></html>\n")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /help                      Show this help")
	fmt.Println("  /status                    Show session, visibility, and pause state")
	fmt.Println("  /transcript                Print the conversation so far")
	fmt.Println("  /+ <turn_id>               Rate an agent turn positive")
	fmt.Println("  /- <turn_id>               Rate an agent turn negative")
	fmt.Println("  /comment <turn_id> [text]  Submit a pending negative rating")
	fmt.Println("  /open, /close              Toggle widget visibility")
	fmt.Println("  /export <file.html>        Write the transcript as HTML")
	fmt.Println("  /quit                      End the conversation and exit")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
