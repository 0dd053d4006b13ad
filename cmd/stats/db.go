package main

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// MatchSummary is one match aggregated over its recorded turns.
type MatchSummary struct {
	MatchID       string  `json:"match_id"`
	Turns         int64   `json:"turns"`
	MeanFootprint float64 `json:"mean_footprint"`
	MeanFreeAnts  float64 `json:"mean_free_ants"`
	Reinforced    int64   `json:"reinforced"`
	BudgetStops   int64   `json:"budget_stops"`
	MyScore       int64   `json:"my_score"`
	OppScore      int64   `json:"opp_score"`
}

// openDuckDB returns an in-memory DuckDB with a "turns" view over every
// finished recording under the roots. In-flight files under tmp/ are skipped.
func openDuckDB(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	var files []string
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		for _, path := range listRecordings(root) {
			files = append(files, "'"+escapeSQLString(path)+"'")
		}
	}

	// read_parquet fails on an empty list, so fall back to a typed empty view.
	sqlText := `CREATE OR REPLACE VIEW turns AS
		SELECT * FROM (
			SELECT
				NULL::VARCHAR AS match_id,
				NULL::INTEGER AS turn,
				NULL::INTEGER AS my_score,
				NULL::INTEGER AS opp_score,
				NULL::INTEGER[] AS controlled,
				NULL::INTEGER AS reinforced,
				NULL::INTEGER AS free_ants,
				NULL::VARCHAR AS stop,
				NULL::VARCHAR AS filename
		) WHERE 1=0`
	if len(files) > 0 {
		sqlText = `CREATE OR REPLACE VIEW turns AS
		SELECT * FROM read_parquet([` + strings.Join(files, ",") + `], filename=true, union_by_name=true)`
	}
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// listRecordings walks root for .parquet files, skipping tmp/ directories.
func listRecordings(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == "tmp" && path != root {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".parquet") {
			files = append(files, path)
		}
		return nil
	})
	return files
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func querySummaries(ctx context.Context, db *sql.DB) ([]MatchSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			match_id,
			COUNT(*) AS turns,
			AVG(len(controlled))::DOUBLE AS mean_footprint,
			AVG(free_ants)::DOUBLE AS mean_free_ants,
			SUM(reinforced)::BIGINT AS reinforced,
			COUNT(*) FILTER (WHERE stop = 'budget') AS budget_stops,
			arg_max(my_score, turn)::BIGINT AS my_score,
			arg_max(opp_score, turn)::BIGINT AS opp_score
		FROM turns
		GROUP BY match_id
		ORDER BY match_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchSummary
	for rows.Next() {
		var s MatchSummary
		if err := rows.Scan(&s.MatchID, &s.Turns, &s.MeanFootprint, &s.MeanFreeAnts, &s.Reinforced, &s.BudgetStops, &s.MyScore, &s.OppScore); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
