// Command leadsync submits leads from a field device and replays the ones
// captured while offline. A platform hook (network-up script, cron, systemd
// path unit) runs `leadsync drain` when connectivity returns. When
// LEADSYNC_TRIGGER_FILE is set, `submit` rewrites that file after queueing
// and `drain -watch` drains whenever it changes.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/xavierca1/ligue-leads/internal/client/leadapi"
	"github.com/xavierca1/ligue-leads/internal/offline"
)

const usage = `usage: leadsync <command> [flags]

commands:
  submit  -file payload.json [-form name]   send a lead, queue it if offline
  drain   [-watch 30s]                      replay queued submissions
  status                                    show queued submissions
  draft   save|show|clear -form name [key=value ...]
`

// app is everything a command needs; built once from the environment.
type app struct {
	db     *sql.DB
	queue  *offline.Queue
	drafts *offline.Drafts
	client *leadapi.Client
	probe  offline.Connectivity
	syncer *offline.Syncer
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer

	// triggerPath links submit to a running drain -watch; empty leaves the
	// drain to the platform hook.
	triggerPath string
}

func newApp(apiURL, dsn, token string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (*app, error) {
	db, err := offline.OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	client := leadapi.New(apiURL, token, 15*time.Second, logger)
	queue := offline.NewQueue(db)
	return &app{
		db:     db,
		queue:  queue,
		drafts: offline.NewDrafts(db),
		client: client,
		probe:  offline.NewHealthProbe(strings.TrimRight(apiURL, "/")+"/healthz", 5*time.Second),
		syncer: offline.NewSyncer(queue, client, logger.With("component", "syncer")),
		logger: logger,
		stdin:  stdin,
		stdout: stdout,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	a, err := newApp(
		envOrDefault("LEADSYNC_API_URL", "http://127.0.0.1:8080"),
		envOrDefault("LEADSYNC_QUEUE_DSN", "leadsync.db"),
		strings.TrimSpace(os.Getenv("LEADSYNC_TOKEN")),
		os.Stdin, os.Stdout, logger,
	)
	if err != nil {
		logger.Error("failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()
	a.triggerPath = strings.TrimSpace(os.Getenv("LEADSYNC_TRIGGER_FILE"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", slog.String("command", os.Args[1]), slog.String("error", err.Error()))
		stop()
		a.Close()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "submit":
		return a.submit(ctx, args)
	case "drain":
		return a.drain(ctx, args)
	case "status":
		return a.status(ctx)
	case "draft":
		return a.draft(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func (a *app) submit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	file := fs.String("file", "-", "JSON payload file, - for stdin")
	form := fs.String("form", "", "draft to clear after a successful send")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var r io.Reader = a.stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var payload map[string]any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	s := &offline.Submitter{
		Sender:       a.client,
		Queue:        a.queue,
		Connectivity: a.probe,
		URL:          a.client.LeadsURL(),
		Logger:       a.logger,
		Drafts:       a.drafts,
		DraftForm:    *form,
	}
	// the syncer's Run loop is not running in this process
	if a.triggerPath != "" {
		s.Sync = offline.TriggerFile{Path: a.triggerPath, Logger: a.logger}
	}
	outcome, out, err := s.Submit(ctx, payload)
	if err != nil {
		return err
	}
	if outcome == offline.OutcomeSent {
		fmt.Fprintf(a.stdout, "sent %s\n", out.LeadID)
		return nil
	}
	fmt.Fprintln(a.stdout, "queued; will be submitted when online")
	return nil
}

// drain replays once. With -watch it keeps probing and drains every time
// the service comes back.
func (a *app) drain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("drain", flag.ContinueOnError)
	watch := fs.Duration("watch", 0, "probe interval; 0 drains once and exits")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *watch <= 0 {
		res, err := a.syncer.Drain(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "sent %d, failed %d, remaining %d\n", res.Sent, res.Failed, res.Remaining)
		return nil
	}

	if a.triggerPath != "" {
		go func() {
			if err := offline.WatchTrigger(ctx, a.triggerPath, a.syncer, a.logger); err != nil {
				a.logger.Error("trigger watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	events := make(chan bool)
	go a.watchConnectivity(ctx, *watch, events)
	return a.syncer.Run(ctx, events)
}

// watchConnectivity emits only state changes, starting with the first probe.
func (a *app) watchConnectivity(ctx context.Context, every time.Duration, events chan<- bool) {
	defer close(events)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	known, last := false, false
	for {
		online := a.probe.Online(ctx)
		if !known || online != last {
			known, last = true, online
			select {
			case events <- online:
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *app) status(ctx context.Context) error {
	pending, err := a.queue.Pending(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d queued\n", len(pending))
	for _, p := range pending {
		fmt.Fprintf(a.stdout, "%d\t%s\t%s\n", p.ID, p.EnqueuedAt.Format(time.RFC3339), p.URL)
	}
	return nil
}

func (a *app) draft(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("draft: missing action (save, show, clear)")
	}
	action := args[0]

	fs := flag.NewFlagSet("draft", flag.ContinueOnError)
	form := fs.String("form", "", "form name")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *form == "" {
		return errors.New("draft: -form is required")
	}

	switch action {
	case "save":
		fields, err := a.drafts.Load(ctx, *form)
		if err != nil {
			return err
		}
		for _, kv := range fs.Args() {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return fmt.Errorf("draft: expected key=value, got %q", kv)
			}
			fields[k] = v
		}
		return a.drafts.Save(ctx, *form, fields)
	case "show":
		fields, err := a.drafts.Load(ctx, *form)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(a.stdout, "%s=%v\n", k, fields[k])
		}
		return nil
	case "clear":
		return a.drafts.Clear(ctx, *form)
	default:
		return fmt.Errorf("draft: unknown action %q", action)
	}
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}
