package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsSort/internal/classifier"
	"github.com/IshaanNene/NewsSort/internal/fetcher"
	"github.com/IshaanNene/NewsSort/internal/pipeline"
	"github.com/IshaanNene/NewsSort/internal/repl"
	"github.com/IshaanNene/NewsSort/internal/report"
	"github.com/IshaanNene/NewsSort/internal/server"
	"github.com/IshaanNene/NewsSort/internal/split"
	"github.com/IshaanNene/NewsSort/internal/types"
)

var (
	trainSplitDir string
	trainKind     string
	trainModelDir string

	classifyInteractive bool

	servePort int

	runStrategy    string
	runDropUnknown bool
)

// trainCmd creates the "train" subcommand.
func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier on the split and evaluate it on the test set",
		RunE:  runTrain,
	}

	cmd.Flags().StringVarP(&trainSplitDir, "split-dir", "i", "", "split directory (default: split.output_dir)")
	cmd.Flags().StringVar(&trainKind, "kind", "", "classifier: naive_bayes, llm (default: config)")
	cmd.Flags().StringVarP(&trainModelDir, "model-dir", "o", "", "model directory (default: classifier.model_dir)")

	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if trainSplitDir != "" {
		a.cfg.Split.OutputDir = trainSplitDir
	}
	if trainKind != "" {
		a.cfg.Classifier.Kind = trainKind
	}
	if trainModelDir != "" {
		a.cfg.Classifier.ModelDir = trainModelDir
	}

	train, test, err := split.ReadFiles(a.cfg.Split.OutputDir)
	if err != nil {
		return fmt.Errorf("read split (run 'newssort split' first): %w", err)
	}
	return a.trainAndEvaluate(cmd.Context(), train, test)
}

// trainAndEvaluate fits the configured classifier, scores it on test and
// saves it.
func (a *app) trainAndEvaluate(ctx context.Context, train, test []types.Record) error {
	cc := a.cfg.Classifier
	opts, err := a.classifierOptions(cc.Kind == classifier.KindLLM)
	if err != nil {
		return err
	}
	trainer, err := classifier.NewTrainer(cc.Kind, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	model, err := trainer.Train(ctx, train)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	a.logger.Info("model trained", "kind", model.Kind(), "records", len(train), "elapsed", time.Since(start))

	ev, err := classifier.Evaluate(ctx, model, test)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	printEvaluation(ev)

	if err := classifier.Save(cc.ModelDir, model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	fmt.Printf("\nModel saved to %s\n", cc.ModelDir)
	return nil
}

func printEvaluation(ev *classifier.Evaluation) {
	rows := make([][]string, 0, len(ev.Classes))
	for _, c := range ev.Classes {
		rows = append(rows, []string{
			c.Label,
			fmt.Sprintf("%.3f", c.Precision),
			fmt.Sprintf("%.3f", c.Recall),
			fmt.Sprintf("%.3f", c.F1),
			fmt.Sprint(c.Support),
		})
	}
	report.RenderTable(os.Stdout, []string{"Label", "Precision", "Recall", "F1", "Support"}, rows)

	fmt.Printf("\nAccuracy:    %.3f (%d/%d)\n", ev.Accuracy, ev.Correct, ev.Total)
	fmt.Printf("Macro F1:    %.3f\n", ev.MacroF1)
	fmt.Printf("Weighted F1: %.3f\n", ev.WeightedF1)
	if ev.Errors > 0 {
		fmt.Printf("Failed predictions: %d\n", ev.Errors)
	}
}

// classifyCmd creates the "classify" subcommand.
func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [headline]",
		Short: "Predict the category of a headline",
		Long: `Predict the category of the headline given as arguments, or start an
interactive prompt with -i.`,
		RunE: runClassify,
	}

	cmd.Flags().BoolVarP(&classifyInteractive, "interactive", "i", false, "start the interactive prompt")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	model, err := a.loadModel()
	if err != nil {
		return err
	}

	if classifyInteractive || len(args) == 0 {
		f, err := fetcher.NewHTTPFetcher(a.cfg, a.logger)
		if err != nil {
			return fmt.Errorf("create fetcher: %w", err)
		}
		defer f.Close()
		return repl.New(model, a.logger, repl.WithFetcher(f), repl.WithMetrics(a.metrics)).Start(cmd.Context())
	}

	p, err := model.Predict(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if p.Confidence > 0 {
		fmt.Printf("Predicted Category: %s (%.1f%%)\n", p.Label, p.Confidence*100)
	} else {
		fmt.Printf("Predicted Category: %s\n", p.Label)
	}
	return nil
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the classification form and JSON API",
		RunE:  runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default: server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if servePort > 0 {
		a.cfg.Server.Port = servePort
	}
	model, err := a.loadModel()
	if err != nil {
		return err
	}

	fmt.Printf("Serving on http://localhost:%d\n", a.cfg.Server.Port)
	err = server.NewServer(a.cfg, model, a.metrics, a.logger).Start(cmd.Context())
	a.metrics.LogSummary()
	return err
}

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run clean → label → clean → balance → split → train on the store",
		Long: `Rebuild every derived artifact from the record store: the store is
cleaned and labeled in place, then the balanced dataset, the split files
and the model are written from scratch.`,
		RunE: runPipeline,
	}

	cmd.Flags().StringVar(&runStrategy, "strategy", "", "balance strategy: oversample, augment (default: config)")
	cmd.Flags().BoolVar(&runDropUnknown, "drop-unknown", false, `leave out records labeled "Unknown" before balancing`)

	return cmd
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	start := time.Now()

	records, err := a.loadRecords(ctx, "")
	if err != nil {
		return err
	}

	// Unlabeled rows survive the first pass so the labeler can see them.
	records, dropped, err := titleCleaner(a).Run(records)
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	a.metrics.RecordsDropped.Add(int64(dropped))

	l, err := a.labeler()
	if err != nil {
		return err
	}
	records = l.LabelAll(records, a.cfg.Labeler.Overwrite)
	a.metrics.RecordsLabeled.Add(int64(len(records)))

	records, dropped, err = pipeline.NewCleaner(a.logger, a.cfg.Store.DedupKeys...).Run(records)
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	a.metrics.RecordsDropped.Add(int64(dropped))
	if err := a.saveRecords(ctx, "", records); err != nil {
		return err
	}

	records, err = a.prepare(records, runDropUnknown)
	if err != nil {
		return err
	}
	balanced, err := a.balance(cmd, records, runStrategy)
	if err != nil {
		return err
	}
	if err := a.saveRecords(ctx, defaultBalancedPath, balanced); err != nil {
		return err
	}
	printDistribution(balanced)
	fmt.Println()

	if err := a.writeSplit(balanced); err != nil {
		return err
	}
	train, test, err := split.ReadFiles(a.cfg.Split.OutputDir)
	if err != nil {
		return fmt.Errorf("read split: %w", err)
	}
	if err := a.trainAndEvaluate(ctx, train, test); err != nil {
		return err
	}

	fmt.Printf("\nPipeline complete in %s\n", time.Since(start).Round(time.Millisecond))
	a.metrics.LogSummary()
	return nil
}

// titleCleaner drops rows without a title and exact duplicates, keeping
// unlabeled rows.
func titleCleaner(a *app) *pipeline.Pipeline {
	p := pipeline.New(a.logger)
	p.Use(&pipeline.RequiredFieldsMiddleware{Fields: []string{types.FieldTitle}})
	p.Use(pipeline.NewDedupMiddleware())
	return p
}
