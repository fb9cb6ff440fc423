package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/poiesic/tenderqa/source"
	"github.com/urfave/cli/v2"
)

// Header names the eight dataset columns in order. The spellings double as
// SQLite column names.
var Header = []string{"id", "name", "region", "locality", "category", "start_date", "end_date", "link"}

type place struct {
	locality string
	region   string
}

var places = []place{
	{"Guntur", "Andhra Pradesh"},
	{"Vijayawada", "Andhra Pradesh"},
	{"Visakhapatnam", "Andhra Pradesh"},
	{"Tirupati", "Andhra Pradesh"},
	{"Hyderabad", "Telangana"},
	{"Warangal", "Telangana"},
	{"Nizamabad", "Telangana"},
	{"Chennai", "Tamil Nadu"},
	{"Coimbatore", "Tamil Nadu"},
	{"Madurai", "Tamil Nadu"},
	{"Bengaluru", "Karnataka"},
	{"Mysuru", "Karnataka"},
	{"Pune", "Maharashtra"},
	{"Nagpur", "Maharashtra"},
}

var works = map[string][]string{
	"Construction": {
		"road resurfacing on the ring road",
		"construction of a community hall",
		"repair of the municipal bridge",
		"stormwater drain works",
		"extension of the district hospital block",
	},
	"Electronics": {
		"supply of laptops to government schools",
		"installation of traffic signal controllers",
		"CCTV surveillance for bus depots",
		"supply of solar street light controllers",
	},
	"Water Supply": {
		"laying of drinking water pipelines",
		"maintenance of overhead water tanks",
		"borewell drilling in rural wards",
	},
	"Health": {
		"supply of diagnostic reagents",
		"annual maintenance of X-ray equipment",
		"procurement of hospital linen",
	},
	"Transport": {
		"hiring of buses for staff transport",
		"supply of electric auto-rickshaws",
	},
}

// categories keeps generation deterministic; map order is random.
var categories = []string{"Construction", "Electronics", "Water Supply", "Health", "Transport"}

// Generate returns count deterministic tender rows for seed, without a
// header. Dates start from base.
func Generate(count int, seed uint64, base time.Time) [][]string {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rows := make([][]string, 0, count)
	for i := range count {
		p := places[rng.IntN(len(places))]
		category := categories[rng.IntN(len(categories))]
		options := works[category]
		work := options[rng.IntN(len(options))]

		start := base.AddDate(0, 0, rng.IntN(90))
		end := start.AddDate(0, 0, 7+rng.IntN(45))
		id := fmt.Sprintf("TND-%d-%04d", base.Year(), i+1)

		var startCell, endCell string
		// Some listings have no published dates.
		if rng.IntN(10) > 0 {
			startCell = start.Format(time.DateOnly)
			endCell = end.Format(time.DateOnly)
		}

		rows = append(rows, []string{
			id,
			fmt.Sprintf("%s, %s", work, p.locality),
			p.region,
			p.locality,
			category,
			startCell,
			endCell,
			"https://tenders.example.gov.in/notice/" + id,
		})
	}
	return rows
}

func seedCommand(c *cli.Context) error {
	out := c.String("out")
	kind := source.Kind(c.String("kind"))
	if kind == "" {
		kind = source.DetectKind(out)
	}
	count := c.Int("count")
	if count < 0 {
		return fmt.Errorf("count must not be negative")
	}

	base, err := time.Parse(time.DateOnly, c.String("start"))
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	rows := Generate(count, c.Uint64("seed"), base)
	if !c.Bool("no-header") || kind == source.KindSQLite {
		rows = append([][]string{Header}, rows...)
	}

	switch kind {
	case source.KindCSV:
		err = writeCSV(out, rows)
	case source.KindXLSX:
		err = writeXLSX(out, c.String("sheet"), rows)
	case source.KindSQLite:
		err = writeSQLite(c.Context, out, c.String("table"), rows[0], rows[1:])
	default:
		return fmt.Errorf("unsupported kind %q", kind)
	}
	if err != nil {
		return err
	}

	slog.Info("wrote sample dataset", "path", out, "kind", kind, "records", count)
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seeder",
		Usage: "Write a sample tender dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Output file; the format follows the extension unless --kind is set",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Output format (csv, xlsx, sqlite)",
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Number of records",
				Value: 50,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed; the same seed writes the same dataset",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "Earliest start date (YYYY-MM-DD)",
				Value: "2025-10-01",
			},
			&cli.StringFlag{
				Name:  "sheet",
				Usage: "XLSX worksheet name",
				Value: "Tenders",
			},
			&cli.StringFlag{
				Name:  "table",
				Usage: "SQLite table name",
				Value: "tenders",
			},
			&cli.BoolFlag{
				Name:  "no-header",
				Usage: "Omit the header row (CSV and XLSX only)",
			},
		},
		Action: seedCommand,
	}
}

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
