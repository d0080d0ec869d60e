// Command portal-chat is a terminal client for the portal chat endpoint.
// It keeps the conversation in memory and prints assistant replies as they stream.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/SAP-F-2025/school-portal-service/internal/chat"
)

type config struct {
	PortalURL string     `env:"PORTAL_URL" envDefault:"http://localhost:8080"`
	Token     string     `env:"PORTAL_TOKEN,required,notEmpty"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"warn"`
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	client := chat.NewClient(strings.TrimRight(cfg.PortalURL, "/")+"/api/v1/chat", cfg.Token, chat.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, client, os.Stdin); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, client *chat.Client, in *os.File) error {
	conv := chat.NewConversation()
	scanner := bufio.NewScanner(in)

	fmt.Println("Ask the school assistant anything. Ctrl-D to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		history := conv.BeginTurn(text)
		res := client.Stream(ctx, history, func(ev chat.Event) {
			conv.Apply(ev)
			if ev.Kind == chat.EventDelta || ev.Kind == chat.EventError {
				fmt.Print(ev.Text)
			}
		})
		fmt.Println()

		if res.Truncated {
			fmt.Fprintln(os.Stderr, "(reply was cut off)")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
