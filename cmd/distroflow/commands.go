package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/distroflow/internal/cache"
	"github.com/andresuchdata/distroflow/internal/config"
	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/drive"
	"github.com/andresuchdata/distroflow/internal/engine"
	"github.com/andresuchdata/distroflow/internal/pipeline"
	"github.com/andresuchdata/distroflow/internal/repository"
	"github.com/andresuchdata/distroflow/internal/service"
	"github.com/andresuchdata/distroflow/internal/storage"
	"github.com/andresuchdata/distroflow/pkg/logger"
)

func paramFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "mode", Usage: "classification mode: ratio or weeks"},
		&cli.Float64Flag{Name: "overstock-weeks", Usage: "weeks of inventory above which stock is overstocked (8, 10, 12 or 16)"},
		&cli.IntFlag{Name: "horizon", Usage: "forecast horizon in weeks"},
	}
}

// engineParams applies flag overrides on top of the configured parameters.
func engineParams(c *cli.Context) (engine.Params, error) {
	p := config.Load().Engine

	if raw := c.String("mode"); raw != "" {
		mode, ok := engine.ParseMode(raw)
		if !ok {
			return p, fmt.Errorf("unknown mode %q", raw)
		}
		p.Mode = mode
	}
	if c.IsSet("overstock-weeks") {
		p.OverstockWeeks = c.Float64("overstock-weeks")
	}
	if c.IsSet("horizon") {
		p.DefaultHorizon = c.Int("horizon")
	}

	return p, p.Validate()
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Value: "table", Usage: "output format: table, json or csv"}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Apply the warehouse schema",
		Flags:  []cli.Flag{newDBURLFlag()},
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			db, err := dbFrom(c)
			if err != nil {
				return err
			}
			applied, err := repository.Migrate(c.Context, db.DB.DB)
			if err != nil {
				return err
			}
			for _, name := range applied {
				logger.Log.Info().Str("migration", name).Msg("applied")
			}
			return nil
		},
	}
}

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Forecast weekly depletions and order value",
		Flags: append(paramFlags(),
			&cli.StringFlag{Name: "file", Usage: "weekly fact CSV to forecast from instead of the database"},
			&cli.StringFlag{Name: "distributor", Usage: "distributor code; empty for the whole network"},
			&cli.IntFlag{Name: "weeks", Value: 26, Usage: "weeks of history to load from the database"},
			&cli.StringFlag{Name: "db-url", EnvVars: []string{"DATABASE_URL"}},
			outputFlag(),
		),
		Action: func(c *cli.Context) error {
			params, err := engineParams(c)
			if err != nil {
				return err
			}

			var forecast *domain.SeriesForecast
			if file := c.String("file"); file != "" {
				records, err := recordsFromFile(file, c.String("distributor"))
				if err != nil {
					return err
				}
				result, err := engine.ForecastRecords(records, params.DefaultHorizon, params)
				if err != nil {
					return err
				}
				forecast = &result
			} else {
				if err := initDB(c); err != nil {
					return err
				}
				defer closeDB(c)
				db, err := dbFrom(c)
				if err != nil {
					return err
				}
				svc := service.NewForecastService(repository.NewInventoryRepository(db.DB), nil, nil)
				forecast, err = svc.GetForecast(c.Context, domain.ForecastFilter{
					DistributorCode: c.String("distributor"),
					Weeks:           c.Int("weeks"),
					Horizon:         params.DefaultHorizon,
				}, params)
				if err != nil {
					return err
				}
			}

			if c.String("format") == "json" {
				return writeJSON(os.Stdout, forecast)
			}
			return writeForecastTable(os.Stdout, forecast)
		},
	}
}

func recordsFromFile(file, distributor string) ([]domain.TimeSeriesRecord, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	facts, err := drive.ParseWeeklyCSV(f)
	if err != nil {
		return nil, err
	}
	return drive.WeeklyRecords(facts, distributor), nil
}

func assessCommand() *cli.Command {
	return &cli.Command{
		Name:  "assess",
		Usage: "Classify a stock position and score its stockout risk",
		Flags: append(paramFlags(),
			&cli.Float64Flag{Name: "ordered", Required: true, Usage: "units ordered in the trailing window"},
			&cli.Float64Flag{Name: "depleted", Required: true, Usage: "units depleted in the trailing window"},
			&cli.Float64Flag{Name: "rate", Usage: "weekly depletion rate"},
			&cli.StringFlag{Name: "history", Usage: "comma-separated weekly depletions, oldest first"},
		),
		Action: func(c *cli.Context) error {
			params, err := engineParams(c)
			if err != nil {
				return err
			}
			history, err := parseFloats(c.String("history"))
			if err != nil {
				return err
			}

			classification, err := engine.Classify(c.Float64("ordered"), c.Float64("depleted"), c.Float64("rate"), params)
			if err != nil {
				return err
			}
			assessment, err := engine.Assess(domain.CurrentPosition{
				OrderedQty:          c.Float64("ordered"),
				DepletedQty:         c.Float64("depleted"),
				WeeklyDepletionRate: c.Float64("rate"),
				WeeksOfInventory:    classification.WeeksOfInventory,
			}, history, time.Now().UTC(), params)
			if err != nil {
				return err
			}

			return writeJSON(os.Stdout, map[string]any{
				"classification": classification,
				"velocity":       engine.ClassifyVelocity(c.Float64("rate"), params),
				"stockout":       assessment,
			})
		},
	}
}

func parseFloats(raw string) ([]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid history value %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func inventoryFilter(c *cli.Context) (domain.InventoryFilter, error) {
	filter := domain.InventoryFilter{
		LookbackDays:     c.Int("lookback-days"),
		HistoryWeeks:     c.Int("history-weeks"),
		DistributorCodes: c.StringSlice("distributor"),
	}
	for _, label := range c.StringSlice("status") {
		st, ok := domain.ParseInventoryStatus(label)
		if !ok {
			return filter, fmt.Errorf("unknown status %q", label)
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	return filter, nil
}

func inventoryFlags() []cli.Flag {
	return append(paramFlags(),
		newDBURLFlag(),
		&cli.IntFlag{Name: "lookback-days", Usage: "trailing window in days"},
		&cli.IntFlag{Name: "history-weeks", Usage: "weeks of depletion history for the risk scorer"},
		&cli.StringSliceFlag{Name: "distributor", Usage: "limit to these distributor codes"},
		&cli.StringSliceFlag{Name: "status", Usage: "limit to these statuses"},
	)
}

func newInventoryService(c *cli.Context) (*service.InventoryService, error) {
	db, err := dbFrom(c)
	if err != nil {
		return nil, err
	}
	cfg := config.Load()
	return service.NewInventoryService(repository.NewInventoryRepository(db.DB), nil, cfg.Engine, cfg.App.Workers, nil).
		WithWindow(cfg.App.DefaultLookbackDays, cfg.App.DefaultHistoryWeeks), nil
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:   "report",
		Usage:  "Print the inventory health and stockout report",
		Flags:  append(inventoryFlags(), outputFlag()),
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			params, err := engineParams(c)
			if err != nil {
				return err
			}
			filter, err := inventoryFilter(c)
			if err != nil {
				return err
			}
			svc, err := newInventoryService(c)
			if err != nil {
				return err
			}

			report, err := svc.GetReport(c.Context, filter, params)
			if err != nil {
				return err
			}

			switch c.String("format") {
			case "json":
				return writeJSON(os.Stdout, report)
			case "csv":
				data, err := pipeline.EncodeReportCSV(report)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(data)
				return err
			default:
				return writeReportTable(os.Stdout, report)
			}
		},
	}
}

func visitsCommand() *cli.Command {
	return &cli.Command{
		Name:  "visits",
		Usage: "Attribute field visits and print the rep leaderboard",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.IntFlag{Name: "days-back", Value: 30},
			&cli.IntFlag{Name: "baseline-days", Value: 30},
			&cli.IntFlag{Name: "followup-days", Value: 30},
			&cli.StringFlag{Name: "rep"},
			&cli.IntFlag{Name: "min-visits", Usage: "minimum visits for the leaderboard"},
		},
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			db, err := dbFrom(c)
			if err != nil {
				return err
			}
			params := config.Load().Engine
			if c.IsSet("min-visits") {
				params.MinRepVisits = c.Int("min-visits")
			}

			svc := service.NewVisitService(repository.NewVisitRepository(db.DB), nil)
			report, err := svc.GetReport(c.Context, domain.VisitFilter{
				DaysBack:     c.Int("days-back"),
				BaselineDays: c.Int("baseline-days"),
				FollowupDays: c.Int("followup-days"),
				RepName:      c.String("rep"),
			}, params)
			if err != nil {
				return err
			}
			return writeJSON(os.Stdout, report)
		},
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:   "snapshot",
		Usage:  "Export the inventory report to object storage",
		Flags:  inventoryFlags(),
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			params, err := engineParams(c)
			if err != nil {
				return err
			}
			filter, err := inventoryFilter(c)
			if err != nil {
				return err
			}
			svc, err := newInventoryService(c)
			if err != nil {
				return err
			}
			db, err := dbFrom(c)
			if err != nil {
				return err
			}

			cfg := config.Load()
			store, err := storage.New(c.Context, cfg.Storage, cfg.App.DataDir)
			if err != nil {
				return err
			}

			jobConfig := pipeline.DefaultPipelineConfig("inventory")
			jobConfig.WorkerCount = cfg.App.Workers
			jobConfig.Prefix = path.Join(cfg.Storage.Prefix, "inventory")

			run, err := pipeline.NewSnapshotJob(jobConfig, svc, store, pipeline.NewRepository(db.DB.DB)).Run(c.Context, filter, params)
			if err != nil {
				return err
			}
			return writeJSON(os.Stdout, run)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import weekly fact CSVs from a local file or a Drive folder",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{Name: "file", Usage: "local CSV file"},
			&cli.StringFlag{Name: "folder-id", EnvVars: []string{"DRIVE_FOLDER_ID"}, Usage: "Drive folder to import"},
			&cli.StringFlag{Name: "download-dir", Usage: "keep local copies of the folder's CSVs here and import from them"},
		},
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			db, err := dbFrom(c)
			if err != nil {
				return err
			}
			repo := repository.NewIngestRepository(db)
			cfg := config.Load()

			reportCache, err := cache.NewReportCache(cfg.Cache)
			if err != nil {
				logger.Log.Warn().Err(err).Msg("report cache unavailable")
				reportCache = cache.NewNoopReportCache()
			}

			if file := c.String("file"); file != "" {
				result, err := drive.NewIngestService(nil, repo, reportCache).IngestPath(c.Context, file)
				if err != nil {
					return err
				}
				logger.Log.Info().Str("file", file).Int("rows", result.Rows).Msg("imported")
				return nil
			}

			driveService, err := drive.NewServiceFromFile(c.Context, cfg.Drive.CredentialsFile)
			if err != nil {
				return err
			}
			ingest := drive.NewIngestService(driveService, repo, reportCache)

			var results []drive.IngestResult
			if dir := c.String("download-dir"); dir != "" {
				results, err = ingest.MirrorFolder(c.Context, c.String("folder-id"), dir)
			} else {
				results, err = ingest.IngestFolder(c.Context, c.String("folder-id"))
			}
			if err != nil {
				return err
			}
			return writeJSON(os.Stdout, results)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeForecastTable(w io.Writer, f *domain.SeriesForecast) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WEEK\tDEPLETED\t80% LOW\t80% HIGH\t95% LOW\t95% HIGH\tORDER VALUE")
	for i, p := range f.Depleted {
		week := strconv.Itoa(p.PeriodIndex)
		if p.PeriodStart != nil {
			week = p.PeriodStart.Format("2006-01-02")
		}
		value := 0.0
		if i < len(f.OrderedValue) {
			value = f.OrderedValue[i].Point
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.2f\n",
			week, p.Point, p.CI80Low, p.CI80High, p.CI95Low, p.CI95High, value)
	}
	return tw.Flush()
}

func writeReportTable(w io.Writer, r *domain.InventoryReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTRIBUTOR\tSTATUS\tVELOCITY\tWEEKS LEFT\tRISK\tREORDER\tURGENCY")
	for _, row := range r.Rows {
		weeks := "-"
		if row.Stockout.WeeksUntilStockout != nil {
			weeks = fmt.Sprintf("%.1f", *row.Stockout.WeeksUntilStockout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f\t%.0f\t%s\n",
			row.DistributorCode, row.Status, row.Velocity, weeks,
			row.Stockout.RiskScore, row.Stockout.ReorderQty, row.Stockout.Urgency)
	}
	fmt.Fprintln(tw)
	for _, sc := range r.Summary {
		fmt.Fprintf(tw, "%s\t%d\n", sc.Status, sc.Count)
	}
	return tw.Flush()
}
