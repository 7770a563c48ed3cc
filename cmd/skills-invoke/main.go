// Command skills-invoke runs one skill against a saved webhook event and
// prints the resulting ledger record.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillskit/skills-server/internal/cards"
	"github.com/skillskit/skills-server/internal/cloud"
	"github.com/skillskit/skills-server/internal/config"
	"github.com/skillskit/skills-server/internal/db"
	"github.com/skillskit/skills-server/internal/handlers"
	"github.com/skillskit/skills-server/internal/invocation"
	"github.com/skillskit/skills-server/internal/ledger"
	"github.com/skillskit/skills-server/internal/logging"
	"github.com/skillskit/skills-server/internal/skills"
	"github.com/skillskit/skills-server/internal/vision"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	fs := flag.NewFlagSet("skills-invoke", flag.ContinueOnError)
	skill := fs.String("skill", "", "skill to run (hello, boilerplate, labels, faces)")
	eventPath := fs.String("event", "-", "path to the webhook event JSON, - for stdin")
	dryRun := fs.Bool("dry-run", false, "log card writes instead of sending them")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *skill == "" {
		fmt.Fprintln(fs.Output(), "-skill is required")
		fs.Usage()
		return 2
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger := logging.NewLogger(cfg.LogLevel())

	body, err := readEvent(*eventPath, stdin)
	if err != nil {
		logger.Error("failed to read event", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, db.MemoryPath, logger)
	if err != nil {
		logger.Error("failed to open ledger", "error", err)
		return 1
	}
	defer database.Close()
	repo := ledger.NewRepository(database.Conn())

	provider, err := vision.NewRekognition(vision.Config{
		Region:   cfg.AWSRegion(),
		Endpoint: cfg.AWSEndpoint(),
	}, logger)
	if err != nil {
		logger.Error("failed to initialize vision provider", "error", err)
		return 1
	}

	factory := cloud.HTTPFactory(cfg.APIBaseURL(), &http.Client{}, logger)
	if *dryRun || cfg.DryRun() {
		factory = cloud.DryRunFactory(factory, logger)
	}

	processor := invocation.New(handlers.Builtin(provider, cfg), factory,
		invocation.WithLedger(repo),
		invocation.WithEventParser(skills.EventParser{APIBaseURL: cfg.APIBaseURL()}),
		invocation.WithPollPolicy(skills.PollPolicy{
			Interval:    cfg.PollInterval(),
			MaxAttempts: cfg.PollMaxAttempts(),
			Timeout:     cfg.PollTimeout(),
		}),
		invocation.WithThumbnailer(cards.NewThumbnailer(nil)),
		invocation.WithTimeout(cfg.InvocationTimeout()),
		invocation.WithLogger(logger),
	)

	processor.Process(ctx, *skill, body)

	records, err := repo.List(context.Background(), ledger.Filter{Limit: 1})
	if err != nil {
		logger.Error("failed to read ledger", "error", err)
		return 1
	}
	if len(records) == 0 {
		logger.Error("event was not processed", "skill", *skill)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.Encode(records[0])

	if records[0].Status != ledger.StatusSucceeded {
		return 1
	}
	return 0
}

func readEvent(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
