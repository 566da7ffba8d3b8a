package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"covidash/internal/analysis"
	"covidash/internal/api"
	"covidash/internal/dataset"
	"covidash/internal/fetch"
	"covidash/internal/insights"
	"covidash/internal/metrics"
	"covidash/internal/models"
	"covidash/internal/store"
)

type Globals struct {
	Data string `help:"Path to the OWID CSV dataset." default:"data/owid-covid-data.csv" env:"COVIDASH_DATA"`
	DB   string `help:"Path to the SQLite snapshot database." default:"data/covidash.db" env:"COVIDASH_DB"`
}

type CLI struct {
	Globals

	Fetch  FetchCmd  `cmd:"" help:"Download the OWID dataset."`
	Ingest IngestCmd `cmd:"" help:"Parse the dataset and store a snapshot in SQLite."`
	Serve  ServeCmd  `cmd:"" help:"Run the dashboard server."`
	Report ReportCmd `cmd:"" help:"Print a summary report for selected countries."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("covidash"),
		kong.Description("COVID-19 analytics pipeline and dashboard."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		log.Fatal(err)
	}
}

type FetchCmd struct {
	URL string `help:"Dataset URL." default:"" env:"COVIDASH_DATASET_URL"`
}

func (c *FetchCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("downloading dataset to %s", g.Data)
	if err := fetch.NewClient(c.URL).Download(ctx, g.Data); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	log.Println("done")
	return nil
}

type IngestCmd struct{}

func (c *IngestCmd) Run(g *Globals) error {
	table, report, err := dataset.Load(g.Data)
	if err != nil {
		return err
	}
	log.Printf("parsed %d rows (%d skipped)", report.Rows, report.SkippedRows)

	st, closeDB, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := st.ReplaceSnapshot(table.Rows()); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	if err := st.SetMeta(store.MetaSourcePath, g.Data); err != nil {
		return err
	}
	if err := st.SetMeta(store.MetaIngestedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	log.Printf("snapshot stored in %s", g.DB)
	return nil
}

type ServeCmd struct {
	Port       string        `help:"HTTP server port." default:"8080" env:"PORT"`
	WaveWindow int           `help:"Moving-average window for wave detection." default:"30" env:"COVIDASH_WAVE_WINDOW"`
	Refresh    time.Duration `help:"Re-fetch and reload the dataset on this interval (0 disables)." default:"0" env:"COVIDASH_REFRESH"`
	FromCSV    bool          `help:"Load from the CSV even when a SQLite snapshot exists."`
}

func (c *ServeCmd) Run(g *Globals) error {
	table, err := buildTable(g, c.FromCSV, c.WaveWindow)
	if err != nil {
		return err
	}

	server := api.NewServer(table, c.Port, c.WaveWindow)

	if gen, err := insights.NewGenerator(os.Getenv("OPENAI_API_KEY")); err != nil {
		log.Printf("insights disabled: %v", err)
	} else {
		server.SetInsights(gen)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if c.Refresh > 0 {
		go c.refreshLoop(ctx, g, server)
	}

	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

// refreshLoop periodically re-fetches the dataset, rebuilds the derived table,
// and swaps it into the server. A failed cycle keeps the previous table.
func (c *ServeCmd) refreshLoop(ctx context.Context, g *Globals, server *api.Server) {
	ticker := time.NewTicker(c.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		log.Println("refreshing dataset")
		if err := fetch.NewClient("").Download(ctx, g.Data); err != nil {
			log.Printf("refresh fetch failed: %v", err)
			continue
		}
		table, err := buildTable(g, true, c.WaveWindow)
		if err != nil {
			log.Printf("refresh reload failed: %v", err)
			continue
		}
		server.SwapTable(table)
		log.Printf("dataset refreshed: %d rows", table.Len())
	}
}

type ReportCmd struct {
	Countries  []string `help:"Countries to report on." default:"United States,India,Brazil,United Kingdom,Kenya"`
	Metric     string   `help:"Metric to project." default:"new_cases"`
	WaveWindow int      `help:"Moving-average window for wave detection." default:"30"`
	Horizon    int      `help:"Projection horizon in days." default:"30"`
}

func (c *ReportCmd) Run(g *Globals) error {
	table, report, err := dataset.Load(g.Data)
	if err != nil {
		return err
	}
	log.Printf("loaded %d rows (%d skipped)", report.Rows, report.SkippedRows)

	// The report mirrors the analysis script: restrict, forward-fill, derive.
	view := table.FilterLocations(c.Countries).ForwardFill()
	view = analysis.DetectWaves(analysis.Derive(view), c.WaveWindow)

	metric, ok := models.ParseMetric(c.Metric)
	if !ok {
		return fmt.Errorf("unknown metric %q", c.Metric)
	}

	for _, o := range view.LatestPerLocation() {
		fmt.Printf("\n=== %s (as of %s) ===\n", o.Location, o.Date.Format(dataset.DateLayout))
		printMetric("total cases", o.TotalCases, "%.0f")
		printMetric("total deaths", o.TotalDeaths, "%.0f")
		printMetric("mortality rate", o.MortalityRate, "%.2f%%")
		printMetric("vaccination rate", o.VaccinationRate, "%.1f%%")
		printMetric("fully vaccinated", o.FullyVaccinatedRate, "%.1f%%")
		fmt.Printf("  waves detected:       %d\n", o.Wave)

		p, err := analysis.Project(view, o.Location, metric, c.Horizon)
		switch {
		case errors.Is(err, analysis.ErrInsufficientData):
			fmt.Printf("  %d-day projection:    not enough data\n", c.Horizon)
		case err != nil:
			fmt.Printf("  %d-day projection:    unavailable (%v)\n", c.Horizon, err)
		default:
			fmt.Printf("  %d-day projection:    %.0f %s on %s\n",
				c.Horizon, p.Values[len(p.Values)-1], c.Metric, p.Dates[len(p.Dates)-1].Format(dataset.DateLayout))
		}
	}
	return nil
}

func printMetric(name string, v sql.NullFloat64, format string) {
	if !v.Valid {
		fmt.Printf("  %-21s n/a\n", name+":")
		return
	}
	fmt.Printf("  %-21s "+format+"\n", name+":", v.Float64)
}

func buildTable(g *Globals, fromCSV bool, waveWindow int) (*dataset.Table, error) {
	var table *dataset.Table

	if !fromCSV {
		if t, ok, err := tableFromSnapshot(g.DB); err != nil {
			log.Printf("snapshot unavailable, falling back to CSV: %v", err)
		} else if ok {
			table = t
		}
	}

	if table == nil {
		t, report, err := dataset.Load(g.Data)
		if err != nil {
			return nil, err
		}
		log.Printf("loaded %d rows from %s (%d skipped)", report.Rows, g.Data, report.SkippedRows)
		metrics.RowsSkipped.Set(float64(report.SkippedRows))
		table = t
	}

	table = analysis.DetectWaves(analysis.Derive(table), waveWindow)
	metrics.RowsLoaded.Set(float64(table.Len()))
	return table, nil
}

func tableFromSnapshot(dbPath string) (*dataset.Table, bool, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, false, nil
	}
	st, closeDB, err := openStore(dbPath)
	if err != nil {
		return nil, false, err
	}
	defer closeDB()

	n, err := st.CountObservations()
	if err != nil || n == 0 {
		return nil, false, err
	}
	rows, err := st.LoadObservations()
	if err != nil {
		return nil, false, err
	}
	log.Printf("loaded %d rows from snapshot %s", len(rows), dbPath)
	return dataset.NewTable(rows), true, nil
}

func openStore(dbPath string) (*store.Store, func(), error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, func() { db.Close() }, nil
}
