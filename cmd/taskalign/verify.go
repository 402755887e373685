package main

import (
	"context"
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
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	tamcp "github.com/Strob0t/taskalign/internal/adapter/mcp"
	"github.com/Strob0t/taskalign/internal/domain/alignment"
	"github.com/Strob0t/taskalign/internal/logger"
	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/port/notifier"
	"github.com/Strob0t/taskalign/internal/port/tracker"
)

// errMisaligned makes the CLI exit non-zero when --fail-on-misaligned is set
// and the report has misaligned tasks.
var errMisaligned = errors.New("misaligned tasks found")

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	repo := fs.String("repo", "", "repository as owner/name (required)")
	project := fs.String("project", "", "tracker project key or name hint")
	status := fs.String("status", "", "comma-separated status filter, e.g. \"In Progress,Done\"")
	maxTasks := fs.Int("max", 0, "maximum number of tasks to analyze (0 = server default)")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	server := fs.String("server", "", "remote MCP endpoint, e.g. http://localhost:8090/mcp")
	apiKey := fs.String("api-key", os.Getenv("TASKALIGN_MCP_API_KEY"), "API key for --server")
	timeout := fs.Duration("timeout", 2*time.Minute, "verification timeout")
	failOnMisaligned := fs.Bool("fail-on-misaligned", false, "exit non-zero when misaligned tasks are found")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *repo == "" {
		return fmt.Errorf("--repo is required")
	}

	req := alignment.Request{
		Repository:   *repo,
		ProjectHint:  *project,
		StatusFilter: splitList(*status),
		MaxTasks:     *maxTasks,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var (
		report *alignment.Report
		err    error
	)
	if *server != "" {
		report, err = tamcp.NewClient(*server, *apiKey, version).Verify(ctx, req)
	} else {
		report, err = verifyLocal(ctx, req)
	}
	if err != nil {
		return err
	}

	if *asJSON || !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		err = writeReportJSON(os.Stdout, report)
	} else {
		err = writeReportTable(os.Stdout, report)
	}
	if err != nil {
		return err
	}
	if *failOnMisaligned && len(report.Misaligned) > 0 {
		return errMisaligned
	}
	return nil
}

// verifyLocal runs the verification in-process. Logs go to stderr so stdout
// carries only the report.
func verifyLocal(ctx context.Context, req alignment.Request) (*alignment.Report, error) {
	cfg, vault, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Logging.Async = false
	log, closeLog := logger.NewWithWriter(cfg.Logging, os.Stderr, logger.WithRedactor(vault))
	defer closeLog.Close()
	slog.SetDefault(log)

	return newAlignmentService(cfg, nil).Verify(ctx, req)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeReportJSON(w io.Writer, r *alignment.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func writeReportTable(w io.Writer, r *alignment.Report) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n\n", r.Repository, r.SummaryText); err != nil {
		return err
	}
	if r.TasksAnalyzed == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tSTATUS\tVERDICT\tCOMMITS\tPRS\tBRANCHES\tCODE\tNOTE")
	rows := make([]alignment.TaskResult, 0, r.TasksAnalyzed)
	rows = append(rows, r.Misaligned...)
	rows = append(rows, r.Aligned...)
	for i := range rows {
		res := &rows[i]
		note := res.Recommendation
		if note == "" {
			note = res.Warning
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			res.Task.Key, res.Task.StatusLabel, res.Verdict,
			res.Counts.Commits, res.Counts.PullRequests, res.Counts.Branches, res.Counts.CodeMatches,
			note)
	}
	return tw.Flush()
}

func runProviders(args []string) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tNAME")
	for _, group := range []struct {
		kind  string
		names []string
	}{
		{"tracker", tracker.Available()},
		{"code_host", codehost.Available()},
		{"notifier", notifier.Available()},
	} {
		names := append([]string(nil), group.names...)
		sort.Strings(names)
		for _, n := range names {
			_, _ = fmt.Fprintf(tw, "%s\t%s\n", group.kind, n)
		}
	}
	return tw.Flush()
}

// runRules prints the classification table, from a remote server when
// --server is set.
func runRules(args []string) error {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	server := fs.String("server", "", "remote MCP endpoint")
	apiKey := fs.String("api-key", os.Getenv("TASKALIGN_MCP_API_KEY"), "API key for --server")
	asJSON := fs.Bool("json", false, "print the rules as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rules := alignment.Rules
	if *server != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var err error
		if rules, err = tamcp.NewClient(*server, *apiKey, version).Rules(ctx); err != nil {
			return err
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	}
	return writeRulesTable(os.Stdout, rules)
}

func writeRulesTable(w io.Writer, rules []alignment.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RULE\tCATEGORY\tEVIDENCE\tCOMPLETION\tVERDICT\tWARNING")
	for i := range rules {
		r := &rules[i]
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name, r.Category, r.Evidence, r.Completion, r.Verdict, r.Warning)
	}
	return tw.Flush()
}
