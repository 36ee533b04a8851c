// Package main provides the one-shot CLI front end: cluster a delimited
// issue export once, write the reports, then loop prompting for new
// distance thresholds against the cached embeddings.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/issuecluster/internal/config"
	"github.com/thebtf/issuecluster/internal/dataset"
	"github.com/thebtf/issuecluster/internal/embedding"
	"github.com/thebtf/issuecluster/internal/pipeline"
	"github.com/thebtf/issuecluster/internal/report"
)

var Version = "dev"

const outputSuffix = "_clustered"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Get()

	inputFile := flag.String("f", "issues.csv", "name of the csv input file (semicolon separated)")
	outputFile := flag.String("fo", "", "name of the csv output file (default: {input}_clustered.csv)")
	columnsArg := flag.String("c", "", "semicolon-separated column names to include; \"_all\" adds every column; the primary text column is always added")
	threshold := flag.Float64("d", cfg.DefaultThreshold, "distance threshold; bigger values produce larger clusters, best results around 0.5")
	sorting := flag.String("s", cfg.DefaultSortKey, "cluster sorting: size (largest first) or coherence (tightest first)")
	flag.Parse()

	if err := run(cfg, *inputFile, *outputFile, *columnsArg, *threshold, *sorting); err != nil {
		log.Fatal().Err(err).Msg("Clustering failed")
	}
}

func run(cfg *config.Config, inputFile, outputFile, columnsArg string, threshold float64, sorting string) error {
	outPath := outputFile
	if outPath == "" {
		outPath = report.OutputPath(inputFile, outputSuffix)
	}

	var columns []string
	if columnsArg != "" {
		columns = strings.Split(columnsArg, ";")
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	ds, err := dataset.Decode(f, cfg.Delimiter())
	f.Close()
	if err != nil {
		return err
	}

	model, err := embedding.NewOpenAIModel(embedding.OpenAIOptions{
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return fmt.Errorf("create embedding model: %w", err)
	}
	defer model.Close()

	runner := pipeline.NewRunner(embedding.NewCache(model, cfg.CacheDir))
	stdin := bufio.NewReader(os.Stdin)

	// Re-threshold loop: each pass reuses the cached embeddings, only
	// clustering and rendering are redone.
	for {
		res, err := runner.Run(context.Background(), ds, pipeline.Options{
			Columns:       columns,
			PrimaryColumn: cfg.PrimaryColumn,
			Threshold:     threshold,
			SortKey:       sorting,
		})
		if err != nil {
			return err
		}

		if err := writeReports(cfg, res, outPath, stdin); err != nil {
			return err
		}

		htmlPath := report.HypertextPath(outPath)
		fmt.Printf("Results written to %s and %s\n", outPath, htmlPath)
		fmt.Printf("Total number of clusters (including single item clusters): %d\n", res.TotalClusters)
		fmt.Printf("Number of clusters (excluding single item clusters): %d\n", res.SubstantialClusters)
		fmt.Println()
		fmt.Println("Clusters are separated by empty lines. The last cluster is the miscellaneous cluster; anything that does not belong to any cluster is mixed there.")
		fmt.Println()

		next, quit := promptThreshold(stdin, threshold)
		if quit {
			return nil
		}
		threshold = next
	}
}

// writeReports persists both artifacts, blocking for operator
// acknowledgement and retrying on write failure rather than losing the
// computed result (the destination is often open and locked in a
// spreadsheet).
func writeReports(cfg *config.Config, res *pipeline.Result, outPath string, stdin *bufio.Reader) error {
	policy := report.WritePolicy{
		Ack: func(err error) bool {
			fmt.Println(err)
			fmt.Println("Make sure you don't have the file opened and locked for writing. Resolve the problem and press Enter to write the file again (q to give up).")
			line, readErr := stdin.ReadString('\n')
			if readErr != nil {
				return false
			}
			return strings.TrimSpace(line) != "q"
		},
	}

	if err := policy.WriteFile(outPath, func(w *bytes.Buffer) error {
		return report.WriteTabular(w, res)
	}); err != nil {
		return err
	}

	htmlOpts := report.HypertextOptions{TrackerBaseURL: cfg.TrackerBaseURL}
	return policy.WriteFile(report.HypertextPath(outPath), func(w *bytes.Buffer) error {
		return report.WriteHypertext(w, res, htmlOpts)
	})
}

// promptThreshold asks the operator for the next distance threshold.
// Returns quit=true when the operator enters q.
func promptThreshold(stdin *bufio.Reader, last float64) (float64, bool) {
	for {
		fmt.Printf("Enter new cluster distance threshold. Last was %v. The higher the parameter, the larger the clusters. Output files will be overwritten (q to quit): ", last)
		line, err := stdin.ReadString('\n')
		if err != nil {
			return 0, true
		}
		line = strings.TrimSpace(line)
		if line == "q" {
			return 0, true
		}
		t, err := strconv.ParseFloat(line, 64)
		if err != nil || t < 0 {
			fmt.Printf("Invalid threshold %q, expected a non-negative number.\n", line)
			continue
		}
		return t, false
	}
}
