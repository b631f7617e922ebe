package packaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Exporter converts a written manifest into a portable document.
type Exporter interface {
	Export(ctx context.Context, sourcePath string) (string, error)
}

// Notification announces a generated manifest.
type Notification struct {
	Recipients []string
	Subject    string
	Body       string
	Attachment string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type NoopExporter struct{}

func (NoopExporter) Export(context.Context, string) (string, error) { return "", nil }

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Notification) error { return nil }

// CommandExporter runs an external converter, for example
// "soffice --headless --convert-to pdf --outdir {dir} {src}". {src} is replaced by
// the manifest path, {dir} by its directory and {out} by the expected output, which is
// the source path with extension Ext.
type CommandExporter struct {
	Command string
	Ext     string
}

// NewExporter returns a CommandExporter for command, or a no-op when command is empty.
func NewExporter(command string) Exporter {
	if strings.TrimSpace(command) == "" {
		return NoopExporter{}
	}
	return &CommandExporter{Command: command, Ext: ".pdf"}
}

func (e *CommandExporter) Export(ctx context.Context, sourcePath string) (string, error) {
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return "", errors.New("export command is empty")
	}
	out := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + e.Ext
	expand := strings.NewReplacer("{src}", sourcePath, "{dir}", filepath.Dir(sourcePath), "{out}", out)
	for i, f := range fields {
		fields[i] = expand.Replace(f)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("export %s: %w: %s", filepath.Base(sourcePath), err, strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("export produced no %s: %w", e.Ext, err)
	}
	return out, nil
}

const userAgent = "CyrScan/1.0"

// NtfyNotifier publishes to an ntfy topic URL. Each recipient becomes an e-mail
// forward of its own message; the attachment, when present, is uploaded as the
// message body.
type NtfyNotifier struct {
	endpoint string
	client   *http.Client
}

// NewNotifier builds an ntfy notifier for topic, or a no-op when topic is empty.
func NewNotifier(topic string, timeout time.Duration) Notifier {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return NoopNotifier{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NtfyNotifier{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

func (n *NtfyNotifier) Notify(ctx context.Context, msg Notification) error {
	if len(msg.Recipients) == 0 {
		return n.send(ctx, msg, "")
	}
	var errs []error
	for _, to := range msg.Recipients {
		if err := n.send(ctx, msg, to); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

func (n *NtfyNotifier) send(ctx context.Context, msg Notification, email string) error {
	var (
		body   io.Reader = strings.NewReader(msg.Body)
		method           = http.MethodPost
	)
	if msg.Attachment != "" {
		f, err := os.Open(msg.Attachment)
		if err != nil {
			return fmt.Errorf("open attachment: %w", err)
		}
		defer f.Close()
		body = f
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, n.endpoint, body)
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if msg.Subject != "" {
		req.Header.Set("Title", mime.BEncoding.Encode("UTF-8", msg.Subject))
	}
	if msg.Attachment != "" {
		req.Header.Set("Filename", filepath.Base(msg.Attachment))
		if msg.Body != "" {
			req.Header.Set("Message", mime.BEncoding.Encode("UTF-8", msg.Body))
		}
	} else {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	if email != "" {
		req.Header.Set("Email", email)
	}
	req.Header.Set("Tags", "package")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
