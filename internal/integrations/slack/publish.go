package slackbot

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/slack-go/slack"

	"tallyreport/internal/httpx"
)

// Slack rejects message text above 40k characters; keep a margin for the
// header and code fences.
const maxReportChars = 38000

// API is the part of the Slack client the publisher needs.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

type Publisher struct {
	api     API
	channel string
}

func NewPublisher(token, channel string, options ...slack.Option) *Publisher {
	options = append([]slack.Option{slack.OptionHTTPClient(httpx.ExternalHTTPClient())}, options...)
	return &Publisher{api: slack.New(token, options...), channel: channel}
}

func NewPublisherWithAPI(api API, channel string) *Publisher {
	return &Publisher{api: api, channel: channel}
}

func (p *Publisher) Channel() string { return p.channel }

// Publication is one election's report as it is posted to the channel.
type Publication struct {
	Election string
	Report   string
	Summary  string
	// ResultsPath, when set, is uploaded into the message thread.
	ResultsPath string
}

// Publish posts the report and returns the message timestamp.
func (p *Publisher) Publish(ctx context.Context, pub Publication) (string, error) {
	_, ts, err := p.api.PostMessageContext(ctx, p.channel, slack.MsgOptionText(FormatMessage(pub), false))
	if err != nil {
		return "", fmt.Errorf("posting report for %s: %w", pub.Election, err)
	}
	log.Printf("slack report posted election=%s channel=%s ts=%s", pub.Election, p.channel, ts)

	if pub.ResultsPath == "" {
		return ts, nil
	}
	fi, err := os.Stat(pub.ResultsPath)
	if err != nil {
		return ts, fmt.Errorf("reading results file: %w", err)
	}
	if fi.Size() <= 0 {
		return ts, fmt.Errorf("results file is empty: %s", pub.ResultsPath)
	}
	file, err := p.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		File:            pub.ResultsPath,
		FileSize:        int(fi.Size()),
		Filename:        filepath.Base(pub.ResultsPath),
		Title:           pub.Election + " results",
		Channel:         p.channel,
		ThreadTimestamp: ts,
	})
	if err != nil {
		return ts, fmt.Errorf("uploading results for %s: %w", pub.Election, err)
	}
	log.Printf("slack results uploaded election=%s file=%s", pub.Election, file.ID)
	return ts, nil
}

// FormatMessage renders the message text: a bold title, the optional
// summary, then the report in a code block.
func FormatMessage(pub Publication) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Results: %s*\n", pub.Election)
	if s := strings.TrimSpace(pub.Summary); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	report := strings.Trim(pub.Report, "\n")
	if len(report) > maxReportChars {
		report = truncateUTF8(report, maxReportChars) + "\n... (truncated, see the report file)"
	}
	b.WriteString("```\n")
	b.WriteString(report)
	b.WriteString("\n```")
	return b.String()
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
