// Command dispatch-once reads a page context, submits every group once and
// prints the resulting #groups container.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"ms-groups/internal/dispatch"
	"ms-groups/internal/logger"
	"ms-groups/internal/models"
	"ms-groups/internal/page"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dispatch-once", flag.ContinueOnError)
	fs.SetOutput(stderr)
	contextFile := fs.String("context", "-", "page context JSON file, - for stdin")
	modeFlag := fs.String("mode", "shared", "shared or per_record")
	baseURL := fs.String("base-url", os.Getenv("DISPATCH_BASE_URL"), "base URL for relative group_url/nsid targets")
	concurrency := fs.Int("concurrency", 0, "max requests in flight, 0 for no limit")
	timeout := fs.Duration("timeout", 10*time.Second, "per-request timeout")
	verbose := fs.Bool("v", false, "debug logging on stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logger.NewWithWriter(stderr)
	if !*verbose {
		log.SetLevel(logger.WARN)
	}

	pc, err := readContext(*contextFile, stdin)
	if err != nil {
		log.Error("CLI", err.Error())
		return 2
	}

	mode, err := models.ParseDispatchMode(*modeFlag)
	if err != nil {
		log.Error("CLI", err.Error())
		return 2
	}
	opts := []dispatch.Option{
		dispatch.WithMode(mode),
		dispatch.WithConcurrency(*concurrency),
		dispatch.WithLogger(log),
	}
	if *baseURL != "" {
		base, err := url.Parse(*baseURL)
		if err != nil {
			log.Error("CLI", fmt.Sprintf("invalid -base-url: %v", err))
			return 2
		}
		opts = append(opts, dispatch.WithBaseURL(base))
	}

	container := page.NewMemory(page.GroupsSelector)
	d := dispatch.New(&http.Client{Timeout: *timeout}, opts...)

	batch, err := d.Dispatch(context.Background(), dispatch.Request{Context: pc, Container: container})
	if err != nil {
		log.Error("CLI", fmt.Sprintf("dispatch rejected: %v", err))
		return 2
	}
	for res := range batch.Results() {
		if !res.Succeeded() {
			fmt.Fprintf(stderr, "group %s (%s): %s\n", res.GroupKey, res.TargetURL, res.Error)
		}
	}
	summary := batch.Wait()

	fragments, err := container.Fragments(context.Background())
	if err != nil {
		log.Error("CLI", err.Error())
		return 1
	}
	if err := page.Render(stdout, container.Selector(), fragments); err != nil {
		log.Error("CLI", err.Error())
		return 1
	}
	fmt.Fprintln(stdout)

	if summary.Failed > 0 {
		return 1
	}
	return 0
}

func readContext(path string, stdin io.Reader) (models.PageContext, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return models.PageContext{}, fmt.Errorf("failed to open context file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var pc models.PageContext
	if err := json.NewDecoder(r).Decode(&pc); err != nil {
		return models.PageContext{}, fmt.Errorf("failed to decode page context: %w", err)
	}
	return pc, nil
}
