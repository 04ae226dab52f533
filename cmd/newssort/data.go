package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsSort/internal/balance"
	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/fetcher"
	"github.com/IshaanNene/NewsSort/internal/pipeline"
	"github.com/IshaanNene/NewsSort/internal/report"
	"github.com/IshaanNene/NewsSort/internal/scraper"
	"github.com/IshaanNene/NewsSort/internal/split"
	"github.com/IshaanNene/NewsSort/internal/storage"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// defaultBalancedPath is where balance writes unless told otherwise.
const defaultBalancedPath = "./data/balanced_news.csv"

var (
	scrapeSections []string
	scrapeFetcher  string
	scrapeMaxPages int
	scrapeDelay    string
	scrapeNoRobots bool

	labelInput     string
	labelOutput    string
	labelOverwrite bool

	cleanInput  string
	cleanOutput string
	cleanKeys   []string

	balanceInput       string
	balanceOutput      string
	balanceStrategy    string
	balanceSeed        int64
	balanceDropUnknown bool

	splitInput    string
	splitOutDir   string
	splitFraction float64
	splitSeed     int64

	statsInput string
	statsTop   int
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the configured news sections into the record store",
		Long: `Fetch every configured section's listing pages, extract headline and
link pairs, and merge them into the record store. Records already present
(by store.dedup_keys) are kept as they are.`,
		RunE: runScrape,
	}

	cmd.Flags().StringSliceVarP(&scrapeSections, "section", "s", nil, "only scrape the named sections")
	cmd.Flags().StringVar(&scrapeFetcher, "fetcher", "", "fetcher: http, browser")
	cmd.Flags().IntVar(&scrapeMaxPages, "max-pages", 0, "maximum pages per section (0 = config)")
	cmd.Flags().StringVar(&scrapeDelay, "delay", "", "delay between page requests")
	cmd.Flags().BoolVar(&scrapeNoRobots, "ignore-robots", false, "do not consult robots.txt")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := applyScrapeOverrides(a.cfg); err != nil {
		return err
	}
	ctx := cmd.Context()

	f, err := fetcher.New(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	bar := progressbar.Default(-1, "scraping")
	s := scraper.New(a.cfg, f, a.metrics, a.logger)
	s.OnPage = func(section string, page, records int) {
		bar.Describe(fmt.Sprintf("%s page %d", section, page))
		bar.Add(records)
	}

	start := time.Now()
	res, err := s.Run(ctx)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	existing, err := a.loadExisting(ctx, "")
	if err != nil {
		return err
	}
	merged, added := storage.Merge(existing, res.Records, a.cfg.Store.DedupKeys)
	if err := a.saveRecords(ctx, "", merged); err != nil {
		return err
	}

	fmt.Printf("\nScrape complete in %s\n\n", time.Since(start).Round(time.Millisecond))
	rows := make([][]string, 0, len(res.Sections))
	for _, sr := range res.Sections {
		status := "ok"
		if sr.Err != nil {
			status = "failed: " + sr.Err.Error()
		}
		rows = append(rows, []string{sr.Name, fmt.Sprint(sr.Pages), fmt.Sprint(sr.Records), fmt.Sprint(sr.Dropped), status})
	}
	report.RenderTable(os.Stdout, []string{"Section", "Pages", "Records", "Dropped", "Status"}, rows)
	fmt.Printf("\n   Added:  %d new records (%d scraped)\n", added, len(res.Records))
	fmt.Printf("   Store:  %s (%d records)\n", a.cfg.Store.Path, len(merged))

	a.metrics.LogSummary()
	if len(res.Sections) > 0 && res.Failed() == len(res.Sections) {
		return fmt.Errorf("every section failed")
	}
	return nil
}

func applyScrapeOverrides(cfg *config.Config) error {
	if len(scrapeSections) > 0 {
		want := make(map[string]bool, len(scrapeSections))
		for _, name := range scrapeSections {
			want[name] = true
		}
		var kept []config.SectionConfig
		for _, sec := range cfg.Scrape.Sections {
			if want[sec.Name] {
				kept = append(kept, sec)
			}
		}
		if len(kept) == 0 {
			return fmt.Errorf("no configured section matches %s", strings.Join(scrapeSections, ", "))
		}
		cfg.Scrape.Sections = kept
	}
	if scrapeFetcher != "" {
		cfg.Scrape.Fetcher = scrapeFetcher
	}
	if scrapeMaxPages > 0 {
		cfg.Scrape.MaxPages = scrapeMaxPages
	}
	if scrapeDelay != "" {
		d, err := time.ParseDuration(scrapeDelay)
		if err != nil {
			return fmt.Errorf("invalid --delay: %w", err)
		}
		cfg.Scrape.Delay = d
	}
	if scrapeNoRobots {
		cfg.Scrape.RespectRobotsTxt = false
	}
	return config.Validate(cfg)
}

// labelCmd creates the "label" subcommand.
func labelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Assign categories to records by keyword",
		Long: `Label every record without a category using the ordered category table.
The first category with a keyword contained in the title wins; titles
matching nothing are labeled "Unknown".`,
		RunE: runLabel,
	}

	cmd.Flags().StringVarP(&labelInput, "input", "i", "", "input store (default: store.path)")
	cmd.Flags().StringVarP(&labelOutput, "output", "o", "", "output store (default: the input)")
	cmd.Flags().BoolVar(&labelOverwrite, "overwrite", false, "relabel records that already have a label")

	return cmd
}

func runLabel(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	records, err := a.loadRecords(ctx, labelInput)
	if err != nil {
		return err
	}
	l, err := a.labeler()
	if err != nil {
		return err
	}

	labeled := l.LabelAll(records, labelOverwrite || a.cfg.Labeler.Overwrite)
	a.metrics.RecordsLabeled.Add(int64(len(labeled)))

	out := labelOutput
	if out == "" {
		out = labelInput
	}
	if err := a.saveRecords(ctx, out, labeled); err != nil {
		return err
	}

	printDistribution(labeled)
	return nil
}

// cleanCmd creates the "clean" subcommand.
func cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Drop records with a missing title or label and remove duplicates",
		RunE:  runClean,
	}

	cmd.Flags().StringVarP(&cleanInput, "input", "i", "", "input store (default: store.path)")
	cmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "output store (default: the input)")
	cmd.Flags().StringSliceVar(&cleanKeys, "keys", nil, "columns that identify a duplicate (default: the full row)")

	return cmd
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	for _, k := range cleanKeys {
		if !types.IsColumn(k) {
			return fmt.Errorf("unknown column %q in --keys", k)
		}
	}

	records, err := a.loadRecords(ctx, cleanInput)
	if err != nil {
		return err
	}

	cleaned, dropped, err := pipeline.NewCleaner(a.logger, cleanKeys...).Run(records)
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	a.metrics.RecordsDropped.Add(int64(dropped))

	out := cleanOutput
	if out == "" {
		out = cleanInput
	}
	if err := a.saveRecords(ctx, out, cleaned); err != nil {
		return err
	}

	fmt.Printf("Kept %d records, dropped %d\n", len(cleaned), dropped)
	return nil
}

// balanceCmd creates the "balance" subcommand.
func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Equalize class sizes by oversampling or text augmentation",
		Long: `Bring every label up to the size of the largest class. The oversample
strategy copies random records of the class; the augment strategy rewrites
them by synonym substitution or random word deletion.`,
		RunE: runBalance,
	}

	cmd.Flags().StringVarP(&balanceInput, "input", "i", "", "input store (default: store.path)")
	cmd.Flags().StringVarP(&balanceOutput, "output", "o", defaultBalancedPath, "balanced dataset path")
	cmd.Flags().StringVar(&balanceStrategy, "strategy", "", "strategy: oversample, augment (default: config)")
	cmd.Flags().Int64Var(&balanceSeed, "seed", 0, "random seed (default: config)")
	cmd.Flags().BoolVar(&balanceDropUnknown, "drop-unknown", false, `leave out records labeled "Unknown"`)

	return cmd
}

func runBalance(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		a.cfg.Balance.Seed = balanceSeed
	}
	ctx := cmd.Context()

	records, err := a.loadRecords(ctx, balanceInput)
	if err != nil {
		return err
	}
	records, err = a.prepare(records, balanceDropUnknown)
	if err != nil {
		return err
	}

	balanced, err := a.balance(cmd, records, balanceStrategy)
	if err != nil {
		return err
	}
	if err := a.saveRecords(ctx, balanceOutput, balanced); err != nil {
		return err
	}

	printDistribution(balanced)
	fmt.Printf("\nWrote %d records to %s\n", len(balanced), balanceOutput)
	return nil
}

// prepare cleans records by full row and optionally drops Unknown labels.
func (a *app) prepare(records []types.Record, dropUnknown bool) ([]types.Record, error) {
	cleaned, dropped, err := pipeline.NewCleaner(a.logger).Run(records)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	a.metrics.RecordsDropped.Add(int64(dropped))
	if !dropUnknown {
		return cleaned, nil
	}

	kept := cleaned[:0]
	for _, r := range cleaned {
		if r.Label != types.Unknown {
			kept = append(kept, r)
		}
	}
	a.metrics.RecordsDropped.Add(int64(len(cleaned) - len(kept)))
	return kept, nil
}

// balance runs the balancer with a progress bar over the synthesized rows.
func (a *app) balance(cmd *cobra.Command, records []types.Record, strategy string) ([]types.Record, error) {
	b, err := a.balancer(strategy)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	b.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total), "balancing")
		}
		bar.Set(done)
	}

	balanced, err := b.Balance(cmd.Context(), records)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	a.metrics.RecordsSynthesized.Add(int64(len(balanced) - len(records)))
	return balanced, nil
}

// splitCmd creates the "split" subcommand.
func splitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Write a stratified train/test split",
		Long: `Split the dataset per label into train and test partitions and write
X_train.csv, X_test.csv, y_train.csv and y_test.csv (one value per line,
no header). With split.encode_labels the y files hold integer codes and
label_mapping.txt maps them back.

Rows are split individually, so oversampled copies of one headline can end
up in both train and test. Set split.disjoint_titles to keep every title
(across all labels) in a single partition; each class then needs at least
two distinct titles.`,
		RunE: runSplit,
	}

	cmd.Flags().StringVarP(&splitInput, "input", "i", defaultBalancedPath, "dataset to split")
	cmd.Flags().StringVarP(&splitOutDir, "output-dir", "o", "", "output directory (default: split.output_dir)")
	cmd.Flags().Float64Var(&splitFraction, "test-fraction", 0, "fraction of each class held out (default: config)")
	cmd.Flags().Int64Var(&splitSeed, "seed", 0, "random seed (default: config)")

	return cmd
}

func runSplit(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if splitOutDir != "" {
		a.cfg.Split.OutputDir = splitOutDir
	}
	if cmd.Flags().Changed("test-fraction") {
		a.cfg.Split.TestFraction = splitFraction
	}
	if cmd.Flags().Changed("seed") {
		a.cfg.Split.Seed = splitSeed
	}

	records, err := a.loadRecords(cmd.Context(), splitInput)
	if err != nil {
		return err
	}
	return a.writeSplit(records)
}

// writeSplit splits records and writes the split files.
func (a *app) writeSplit(records []types.Record) error {
	sc := a.cfg.Split
	train, test, err := split.Split(records, split.Options{
		TestFraction:   sc.TestFraction,
		Seed:           sc.Seed,
		DisjointTitles: sc.DisjointTitles,
	})
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}

	var enc *split.LabelEncoder
	if sc.EncodeLabels {
		enc = split.FitLabelEncoder(records)
	}
	if err := split.WriteFiles(sc.OutputDir, train, test, enc); err != nil {
		return fmt.Errorf("write split: %w", err)
	}

	a.logger.Info("split written", "dir", sc.OutputDir, "train", len(train), "test", len(test))
	fmt.Printf("Train: %d  Test: %d  →  %s\n", len(train), len(test), sc.OutputDir)
	return nil
}

// statsCmd creates the "stats" subcommand.
func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the label distribution and title statistics of a dataset",
		RunE:  runStats,
	}

	cmd.Flags().StringVarP(&statsInput, "input", "i", "", "dataset (default: store.path)")
	cmd.Flags().IntVar(&statsTop, "top", 10, "number of most common words to show")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	records, err := a.loadRecords(cmd.Context(), statsInput)
	if err != nil {
		return err
	}

	printDistribution(records)

	st := report.TextStats(records, statsTop)
	fmt.Printf("\nRecords:           %d\n", st.Records)
	fmt.Printf("Missing title/label: %d\n", st.Missing)
	fmt.Printf("Duplicate rows:    %d\n", st.Duplicates)
	fmt.Printf("Avg words/title:   %.2f\n", st.AvgWords)
	fmt.Printf("Avg chars/title:   %.2f\n", st.AvgChars)

	if len(st.TopWords) > 0 {
		fmt.Println()
		rows := make([][]string, len(st.TopWords))
		for i, w := range st.TopWords {
			rows[i] = []string{w.Word, fmt.Sprint(w.Count)}
		}
		report.RenderTable(os.Stdout, []string{"Word", "Count"}, rows)
	}
	return nil
}

func printDistribution(records []types.Record) {
	report.RenderTable(os.Stdout, []string{"Label", "Count", "Percent"}, report.DistributionRows(report.Distribution(records)))

	counts := balance.Counts(records)
	if len(counts) < 2 {
		return
	}
	sizes := make([]int, 0, len(counts))
	for _, n := range counts {
		sizes = append(sizes, n)
	}
	sort.Ints(sizes)
	if sizes[0] != sizes[len(sizes)-1] {
		fmt.Printf("\nImbalance: largest class %d, smallest %d\n", sizes[len(sizes)-1], sizes[0])
	}
}
