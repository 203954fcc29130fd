package main

import (
	"context"
	"errors"
	"fmt"
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

var clickCmd = &cobra.Command{
	Use:   "click URL PATH",
	Short: "Click a button of a live dashboard",
	Long: `Connects to a dashboard channel, waits for its layout and data, then sends the message
of the button or bool_button at PATH. PATH is a layout location as printed by
validate, e.g. /0/children/1. The resolved message is printed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return act(cmd, args[0], func(ctx context.Context, uc *usecase.DispatchUseCase) (domain.DashboardTx, error) {
			return uc.ClickAt(ctx, args[1])
		})
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit URL PATH",
	Short: "Submit a form of a live dashboard",
	Long: `Like click, for the form at PATH. Field values are given as --field name=value; a value
that parses as JSON is sent as that JSON, anything else as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetStringArray("field")
		values, err := parseFields(raw)
		if err != nil {
			return err
		}
		return act(cmd, args[0], func(ctx context.Context, uc *usecase.DispatchUseCase) (domain.DashboardTx, error) {
			return uc.SubmitAt(ctx, args[1], values)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{clickCmd, submitCmd} {
		rootCmd.AddCommand(c)
		c.Flags().String("token", "", "Bearer token sent on the websocket upgrade")
		c.Flags().Duration("timeout", 15*time.Second, "How long to wait for the dashboard to be ready")
	}
	submitCmd.Flags().StringArray("field", nil, "Form value as name=value (repeatable)")
}

// act connects once, waits until the session holds both a layout and a snapshot, runs
// do against it and prints what was sent.
func act(cmd *cobra.Command, rawURL string, do func(context.Context, *usecase.DispatchUseCase) (domain.DashboardTx, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, _ := cmd.Flags().GetString("token")
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	desc, err := resolveChannel(ctx, rawURL, header)
	if err != nil {
		return err
	}

	receiver := infrastructure.NewReceiver(desc, header)
	session := receiver.Session()
	ready := make(chan struct{}, 1)
	session.OnApplied(func(domain.RxKind) {
		if _, ok := session.Layout(); !ok {
			return
		}
		if _, ok := session.Document(); !ok {
			return
		}
		select {
		case ready <- struct{}{}:
		default:
		}
	})

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	done := make(chan error, 1)
	go func() { done <- receiver.Run(runCtx) }()

	select {
	case <-ready:
	case err := <-done:
		if err == nil {
			err = errors.New("channel closed before the dashboard was ready")
		}
		return err
	case <-ctx.Done():
		stopRun()
		<-done
		return fmt.Errorf("waiting for dashboard %s: %w", desc.Name, ctx.Err())
	}

	tx, err := do(ctx, usecase.NewDispatchUseCase(session, receiver))
	stopRun()
	<-done
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), tx.Template)
}

func parseFields(raw []string) (map[string]any, error) {
	values := make(map[string]any, len(raw))
	for _, item := range raw {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("field %q: want name=value", item)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			values[name] = decoded
			continue
		}
		values[name] = value
	}
	return values, nil
}
