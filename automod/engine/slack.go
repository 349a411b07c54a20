package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/deadlockdevs/warden/pkg/robusthttp"
)

type SlackNotifier struct {
	SlackWebhookURL string
	// defaults to a retrying client
	Client *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

func (n *SlackNotifier) SendAudit(ctx context.Context, entry *AuditEntry) error {
	return n.sendSlackMsg(ctx, slackBody(entry))
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = robusthttp.NewClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK || string(respBody) != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(entry *AuditEntry) string {
	msg := fmt.Sprintf("⚠️ %s ⚠️\n", entry.Title)
	msg += fmt.Sprintf("`%s` / `%s` in guild `%s`\n", entry.Target.Display(), entry.Target.UserID, entry.Target.GuildID)
	if entry.Rule != "" {
		msg += fmt.Sprintf("Rule: `%s` (%s)\n", entry.Rule, entry.Severity)
	}
	msg += entry.Summary() + "\n"
	if len(entry.Links) > 0 {
		msg += fmt.Sprintf("Links: `%s`\n", strings.Join(entry.Links, ", "))
	}
	if entry.ContentHash != "" {
		msg += fmt.Sprintf("Content hash: `%s`\n", entry.ContentHash)
	}
	return msg
}
