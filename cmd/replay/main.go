package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/companionkit/controller/internal/completion"
	"github.com/companionkit/controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--json]")
		os.Exit(2)
	}

	fixture, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outcomes, summary := replay.Replay(context.Background(), fixture)

	if *jsonOut {
		printJSON(outcomes, summary)
	} else {
		printTable(fixture, outcomes, summary)
	}

	if summary.Failures > 0 {
		os.Exit(1)
	}
}

// #endregion main

// #region output

func printTable(fixture *replay.Fixture, outcomes []replay.TurnOutcome, summary replay.Summary) {
	if fixture.Description != "" {
		fmt.Printf("Fixture: %s\n\n", fixture.Description)
	}

	fmt.Printf("%-14s  %-40s  %9s  %-14s  %s\n", "Turn", "Stages", "Affection", "Stage", "Status")
	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			status = "FAILED: " + o.Err.Error()
		}
		fmt.Printf("%-14s  %-40s  %9d  %-14s  %s\n",
			o.TurnID, joinKinds(o.StagesCalled), o.AffectionAfter, o.StageAfter, status)
	}

	fmt.Printf("\n%d turns, %d failed, %d quests cleared, final affection %d (%s)\n",
		summary.TotalTurns, summary.Failures, summary.ClearedQuests,
		summary.FinalAffection, summary.FinalStage)
}

func printJSON(outcomes []replay.TurnOutcome, summary replay.Summary) {
	type turnOut struct {
		TurnID    string   `json:"turn_id"`
		Stages    []string `json:"stages"`
		Affection int      `json:"affection"`
		Stage     string   `json:"stage"`
		Error     string   `json:"error,omitempty"`
	}
	out := struct {
		Turns   []turnOut      `json:"turns"`
		Summary replay.Summary `json:"summary"`
	}{Summary: summary}

	for _, o := range outcomes {
		t := turnOut{
			TurnID:    o.TurnID,
			Affection: o.AffectionAfter,
			Stage:     o.StageAfter,
		}
		for _, k := range o.StagesCalled {
			t.Stages = append(t.Stages, string(k))
		}
		if o.Err != nil {
			t.Error = o.Err.Error()
		}
		out.Turns = append(out.Turns, t)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func joinKinds(kinds []completion.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ",")
}

// #endregion output
