package sitemap

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rpblab/beyscout/models"
)

// katanaRunner invokes the katana crawler as a subprocess. Its stdout is
// newline-delimited URLs; any non-zero exit, missing binary, or empty
// output counts as failure so the mapper can fall back.
type katanaRunner struct {
	bin     string
	depth   int
	timeout time.Duration
}

func (k *katanaRunner) name() string { return "katana" }

func (k *katanaRunner) run(ctx context.Context, seed string) ([]string, error) {
	timeout := k.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	depth := k.depth
	if depth <= 0 {
		depth = 3
	}

	// -jc enables JavaScript parsing so script-rendered navigation is
	// discovered; -system-chrome drives the installed browser;
	// -no-sandbox is required when running as root; -ct bounds the
	// crawl inside our own deadline.
	args := []string{
		"-u", seed,
		"-jc",
		"-headless",
		"-system-chrome",
		"-no-sandbox",
		"-d", strconv.Itoa(depth),
		"-silent",
		"-ct", strconv.Itoa(int(timeout.Seconds())) + "s",
	}

	cmd := exec.CommandContext(ctx, k.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSubprocess,
			fmt.Sprintf("katana exited: %s", strings.TrimSpace(stderr.String())), err)
	}

	urls := parseLines(stdout.String())
	if len(urls) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeSubprocess, "katana produced no URLs", nil)
	}
	return urls, nil
}

// parseLines splits newline-delimited output, dropping blanks and
// anything that does not look like a URL (katana warnings, banners).
func parseLines(output string) []string {
	lines := strings.Split(output, "\n")
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http") {
			urls = append(urls, line)
		}
	}
	return urls
}
