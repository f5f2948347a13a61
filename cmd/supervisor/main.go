// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Command supervisor spawns and monitors the worker binary as a child
// process: it restarts the child on exit, terminates it on internet
// connectivity loss, and reports a heartbeat file plus a de-duplicated
// notification digest of the child's stderr output.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/bse-pipeline/internal/config"
	"github.com/tomtom215/bse-pipeline/internal/logging"
	"github.com/tomtom215/bse-pipeline/internal/supervisor"
)

// telegramAPIBase is the Telegram Bot API origin used when Token and
// ChatID are both configured.
const telegramAPIBase = "https://api.telegram.org"

// webhookNotifier posts the digest text to a Telegram chat (if token
// and chat ID are configured), falls back to a generic JSON webhook
// POST (if a URL is configured), or logs the digest at warn level if
// neither is set up.
type webhookNotifier struct {
	url    string
	token  string
	chatID string
	client *http.Client
}

func newWebhookNotifier(cfg config.NotificationConfig) webhookNotifier {
	return webhookNotifier{
		url:    strings.TrimSpace(cfg.WebhookURL),
		token:  strings.TrimSpace(cfg.Token),
		chatID: strings.TrimSpace(cfg.ChatID),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w webhookNotifier) Notify(ctx context.Context, message string) error {
	switch {
	case w.token != "" && w.chatID != "":
		return w.notifyTelegram(ctx, message)
	case w.url != "":
		return w.notifyWebhook(ctx, message)
	default:
		logging.Warn().Str("digest", message).Msg("notification digest (no notifier configured)")
		return nil
	}
}

func (w webhookNotifier) notifyTelegram(ctx context.Context, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, w.token)
	form := url.Values{"chat_id": {w.chatID}, "text": {message}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return w.do(req, "telegram")
}

func (w webhookNotifier) notifyWebhook(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return w.do(req, "webhook")
}

func (w webhookNotifier) do(req *http.Request, sink string) error {
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s notification: %w", sink, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s notification returned status %d", sink, resp.StatusCode)
	}
	return nil
}

func main() {
	workerPath := flag.String("worker", "./worker", "path to the worker binary")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slogger := logging.NewSlogLoggerWithLevel(cfg.Logging.Level)

	tree, err := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Error().Err(err).Msg("build supervisor tree")
		os.Exit(1)
	}

	superCfg := supervisor.DefaultConfig()
	superCfg.Command = *workerPath
	superCfg.Args = []string{}
	superCfg.Env = os.Environ()
	superCfg.HeartbeatPath = cfg.Supervisor.HeartbeatPath
	superCfg.HeartbeatInterval = cfg.Supervisor.HeartbeatInterval
	superCfg.FreezeTimeout = cfg.Supervisor.FreezeTimeout
	superCfg.RestartDelay = cfg.Supervisor.RestartDelay
	superCfg.InternetCheckInterval = cfg.Supervisor.InternetCheckInterval
	superCfg.ErrorMsgInterval = cfg.Supervisor.ErrorMsgInterval

	notifier := newWebhookNotifier(cfg.Notification)
	sup := supervisor.New(superCfg, slogger, tree, notifier)

	treeErrs := tree.ServeBackground(ctx)

	go func() {
		if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("supervisor loop exited with error")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("supervisor received shutdown signal")

	select {
	case err := <-treeErrs:
		if err != nil {
			logging.Warn().Err(err).Msg("supervisor tree stopped")
		}
	}
}
