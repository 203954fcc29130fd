package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/domain"
	"dashboardWs/internal/modules/dashboard/infrastructure"
)

var watchCmd = &cobra.Command{
	Use:   "watch URL",
	Short: "Follow a dashboard channel and print its views",
	Long: `Connects to a dashboard channel and prints the resolved views after every applied frame.
URL is either a ws:// channel or the http:// channel descriptor endpoint of a server
(/api/dashboards/<id>/channel). The connection is retried until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		token, _ := cmd.Flags().GetString("token")
		header := http.Header{}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
		desc, err := resolveChannel(ctx, args[0], header)
		if err != nil {
			return err
		}
		eval, err := infrastructure.NewCELConditionEvaluator()
		if err != nil {
			return err
		}
		resolver := usecase.NewViewResolver(eval)

		receiver := infrastructure.NewReceiver(desc, header)
		out := cmd.OutOrStdout()
		receiver.Session().OnApplied(func(kind domain.RxKind) {
			frame := map[string]any{"applied": kind, "views": resolver.ResolveSession(receiver.Session())}
			if err := json.NewEncoder(out).Encode(frame); err != nil {
				slog.Warn("watch output failed", slog.Any("error", err))
			}
		})

		backoff := time.Second
		for {
			started := time.Now()
			err := receiver.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			if time.Since(started) > 30*time.Second {
				backoff = time.Second
			}
			slog.Warn("channel closed, reconnecting", slog.String("url", desc.URL), slog.Duration("in", backoff), slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("token", "", "Bearer token sent on the websocket upgrade")
}

// resolveChannel turns URL into a channel descriptor, fetching it when URL is an
// http(s) descriptor endpoint.
func resolveChannel(ctx context.Context, raw string, header http.Header) (domain.Ws, error) {
	switch {
	case strings.HasPrefix(raw, "ws://"), strings.HasPrefix(raw, "wss://"):
		return domain.Ws{Name: raw, URL: raw, SendOnConnect: []byte(`{"action":"resync"}`)}, nil
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
	default:
		return domain.Ws{}, fmt.Errorf("unsupported channel url %q", raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return domain.Ws{}, err
	}
	req.Header = header.Clone()
	resp, err := httpClient.Do(req)
	if err != nil {
		return domain.Ws{}, fmt.Errorf("fetch channel descriptor: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Ws{}, fmt.Errorf("fetch channel descriptor: %s", resp.Status)
	}
	var desc domain.Ws
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return domain.Ws{}, fmt.Errorf("decode channel descriptor: %w", err)
	}
	if desc.URL == "" {
		return domain.Ws{}, errors.New("channel descriptor without url")
	}
	return desc, nil
}
