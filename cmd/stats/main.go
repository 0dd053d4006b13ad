// Command stats summarizes a directory of match recordings with DuckDB.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

func main() {
	dirs := flag.String("dir", getEnvOrDefault("RECORD_DIR", "recordings"), "Comma-separated recording directories")
	asJSON := flag.Bool("json", false, "Print one JSON object per match")
	timeout := flag.Duration("timeout", 30*time.Second, "Query timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := openDuckDB(strings.Split(*dirs, ","))
	if err != nil {
		log.Fatalf("Failed to open recordings: %v", err)
	}
	defer db.Close()

	summaries, err := querySummaries(ctx, db)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	if *asJSON {
		err = writeJSON(os.Stdout, summaries)
	} else {
		err = writeTable(os.Stdout, summaries)
	}
	if err != nil {
		log.Fatalf("Write failed: %v", err)
	}
}

func writeJSON(w io.Writer, summaries []MatchSummary) error {
	enc := json.NewEncoder(w)
	for _, s := range summaries {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, summaries []MatchSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "no recordings")
		return err
	}
	fmt.Fprintf(w, "%-36s  %6s  %9s  %9s  %10s  %7s  %9s\n", "match", "turns", "footprint", "free ants", "reinforced", "budget", "score")
	var turns, reinforced int64
	for _, s := range summaries {
		fmt.Fprintf(w, "%-36s  %6d  %9.2f  %9.2f  %10d  %7d  %4d-%-4d\n",
			s.MatchID, s.Turns, s.MeanFootprint, s.MeanFreeAnts, s.Reinforced, s.BudgetStops, s.MyScore, s.OppScore)
		turns += s.Turns
		reinforced += s.Reinforced
	}
	_, err := fmt.Fprintf(w, "\n%d matches, %d turns, %d reinforced beacons\n", len(summaries), turns, reinforced)
	return err
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
