package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/strictmode/linear/errors"
	"github.com/strictmode/linear/handle"
	"github.com/strictmode/linear/registry"
	"github.com/strictmode/linear/report"
)

func main() {
	var (
		traceFile   = flag.String("trace", "", "Path to JSONL trace file")
		policyName  = flag.String("policy", "report", "Leak policy: report, log or abort")
		jsonOut     = flag.Bool("json", false, "Print leak events as JSON and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *traceFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: linmon -trace <file.jsonl> [-policy report|log|abort]")
		fmt.Fprintln(os.Stderr, "       linmon -trace <file.jsonl> -json")
		fmt.Fprintln(os.Stderr, "       linmon -trace <file.jsonl> -i  (interactive mode)")
		os.Exit(1)
	}

	policy, err := parsePolicy(*policyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := replay(*traceFile, policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(result.Leaks); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printSummary(result)
	if len(result.Leaks) > 0 {
		os.Exit(2)
	}
}

func parsePolicy(name string) (report.Policy, error) {
	switch name {
	case "report":
		return report.PolicyReport, nil
	case "log":
		return report.PolicyLog, nil
	case "abort":
		return report.PolicyAbort, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseTrace, fmt.Sprintf("unknown policy %q", name))
	}
}

// traceOp is one line of a JSONL trace.
type traceOp struct {
	Op    string `json:"op"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// eventRow is a replayed lifecycle event, annotated with the trace name.
type eventRow struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Site string `json:"site"`
	ID   uint64 `json:"id"`
}

// leakRow is one leaked handle in the final report.
type leakRow struct {
	Name string `json:"name"`
	Site string `json:"site"`
	ID   uint64 `json:"id"`
}

type replayResult struct {
	TraceFile string
	Events    []eventRow
	Leaks     []leakRow
	OpErrors  []string
	Created   int
	Consumed  int
}

// recorder subscribes to the registry and annotates lifecycle events with
// the trace names they belong to.
type recorder struct {
	names  map[registry.ID]string
	result *replayResult
}

func (r *recorder) OnHandleEvent(e registry.Event) {
	row := eventRow{
		ID:   uint64(e.ID),
		Name: r.names[e.ID],
		Site: e.Site,
	}
	switch e.Type {
	case registry.EventCreated:
		row.Kind = "created"
		r.result.Created++
	case registry.EventConsumed:
		row.Kind = "consumed"
		r.result.Consumed++
	case registry.EventAborted:
		row.Kind = "aborted"
		r.result.Leaks = append(r.result.Leaks, leakRow{ID: row.ID, Name: row.Name, Site: row.Site})
	}
	r.result.Events = append(r.result.Events, row)
}

// replay runs the trace against a fresh registry, then closes it so every
// handle the trace never consumed takes the abort path.
func replay(path string, policy report.Policy) (*replayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	reg := registry.New()
	reg.SetLeakPolicy(policy)

	result := &replayResult{TraceFile: path}
	rec := &recorder{names: make(map[registry.ID]string), result: result}
	reg.Subscribe(rec)
	defer reg.Unsubscribe(rec)

	handles := make(map[string]*handle.Handle[string])
	ctx := context.Background()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var op traceOp
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, errors.Wrap(errors.PhaseTrace, errors.KindInvalidInput, err,
				fmt.Sprintf("line %d", lineNo))
		}

		switch op.Op {
		case "create":
			if _, exists := handles[op.Name]; exists {
				result.OpErrors = append(result.OpErrors,
					fmt.Sprintf("line %d: handle %q already exists", lineNo, op.Name))
				continue
			}
			h, err := handle.New(reg, op.Value, func(string) {})
			if err != nil {
				return nil, err
			}
			handles[op.Name] = h
			rec.names[h.ID()] = op.Name
			// Patch the creation event recorded before the name was known.
			for i := range result.Events {
				if result.Events[i].ID == uint64(h.ID()) {
					result.Events[i].Name = op.Name
				}
			}

		case "consume":
			h, ok := handles[op.Name]
			if !ok {
				result.OpErrors = append(result.OpErrors,
					fmt.Sprintf("line %d: consume of unknown handle %q", lineNo, op.Name))
				continue
			}
			err := h.Consume(ctx, func(context.Context, string) error { return nil })
			if err != nil {
				result.OpErrors = append(result.OpErrors,
					fmt.Sprintf("line %d: consume %q: %v", lineNo, op.Name, err))
			}

		case "abandon":
			h, ok := handles[op.Name]
			if !ok {
				result.OpErrors = append(result.OpErrors,
					fmt.Sprintf("line %d: abandon of unknown handle %q", lineNo, op.Name))
				continue
			}
			h.Abandon()

		default:
			result.OpErrors = append(result.OpErrors,
				fmt.Sprintf("line %d: unknown op %q", lineNo, op.Op))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	// Deterministic teardown: unconsumed handles leak here.
	if err := reg.Close(); err != nil {
		return nil, err
	}

	return result, nil
}

func printSummary(r *replayResult) {
	fmt.Printf("Trace: %s\n", r.TraceFile)
	fmt.Printf("Handles created:  %d\n", r.Created)
	fmt.Printf("Handles consumed: %d\n", r.Consumed)
	fmt.Printf("Handles leaked:   %d\n", len(r.Leaks))

	if len(r.OpErrors) > 0 {
		fmt.Printf("\nReplay problems:\n")
		for _, e := range r.OpErrors {
			fmt.Printf("  %s\n", e)
		}
	}

	if len(r.Leaks) > 0 {
		fmt.Printf("\nLeaked handles:\n")
		for _, l := range r.Leaks {
			name := l.Name
			if name == "" {
				name = "?"
			}
			fmt.Printf("  %s (handle %d, created at %s)\n", name, l.ID, l.Site)
		}
	}
}
