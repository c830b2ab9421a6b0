// Command exportcsv writes a spirometry export file from either a JSON dataset
// or a filtered population file.
//
//	exportcsv -dataset dataset.json -out export.csv
//	exportcsv -population population.csv -gender Female -age-max 18 -bom
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

	"spiroexport/internal/exporter"
	"spiroexport/internal/infrastructure"
	"spiroexport/internal/middleware"
	"spiroexport/internal/population"
	"spiroexport/internal/services"
	"spiroexport/pkg/contracts/domain"
)

type options struct {
	dataset    string
	population string
	out        string
	bom        bool
	logLevel   string
	filter     domain.PopulationFilter
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "exportcsv:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	def := domain.DefaultPopulationFilter()
	o := &options{filter: def}

	fs := flag.NewFlagSet("exportcsv", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.dataset, "dataset", "", "JSON file holding an object of column arrays")
	fs.StringVar(&o.population, "population", "", "population file (.csv or .xlsx) to filter and export")
	fs.StringVar(&o.out, "out", exporter.Filename, "output CSV file")
	fs.BoolVar(&o.bom, "bom", false, "prefix the output with a UTF-8 byte order mark")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug | info | warn | error")

	fs.StringVar(&o.filter.Gender, "gender", def.Gender, "All | Male | Female")
	fs.Float64Var(&o.filter.AgeMin, "age-min", def.AgeMin, "minimum age in years")
	fs.Float64Var(&o.filter.AgeMax, "age-max", def.AgeMax, "maximum age in years")
	fs.Float64Var(&o.filter.HeightMin, "height-min", def.HeightMin, "minimum height in cm")
	fs.Float64Var(&o.filter.HeightMax, "height-max", def.HeightMax, "maximum height in cm")
	fs.Float64Var(&o.filter.WeightMin, "weight-min", def.WeightMin, "minimum weight in kg")
	fs.Float64Var(&o.filter.WeightMax, "weight-max", def.WeightMax, "maximum weight in kg")
	fs.Float64Var(&o.filter.BMIMin, "bmi-min", def.BMIMin, "minimum BMI")
	fs.Float64Var(&o.filter.BMIMax, "bmi-max", def.BMIMax, "maximum BMI")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if (o.dataset == "") == (o.population == "") {
		return nil, errors.New("exactly one of -dataset or -population is required")
	}
	if o.population != "" {
		if err := middleware.NewValidator().ValidateStruct(o.filter); err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
	}
	return o, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := infrastructure.NewLogger(stderr, o.logLevel)

	var source services.PopulationSource
	if o.population != "" {
		store := population.NewStore(o.population, logger, nil)
		if err := store.Reload(ctx); err != nil {
			return fmt.Errorf("failed to load population: %w", err)
		}
		source = store
	}
	svc := services.NewExportService(source, exporter.NewCSVWriter(""), exporter.Options{BOMPrefix: o.bom}, nil, logger)

	var path string
	if o.dataset != "" {
		ds, err := readDataset(o.dataset)
		if err != nil {
			return err
		}
		if path, err = svc.SaveDataset(ctx, ds, o.out); err != nil {
			return err
		}
	} else if path, err = svc.SavePopulation(ctx, o.filter, o.out); err != nil {
		return err
	}

	logger.InfoContext(ctx, "export complete", slog.String("path", path))
	return nil
}

// readDataset decodes a JSON dataset file, keeping numbers as json.Number.
func readDataset(path string) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	var ds domain.Dataset
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", path, err)
	}
	if ds == nil {
		return nil, fmt.Errorf("dataset %s must hold a JSON object", path)
	}
	return ds, nil
}
