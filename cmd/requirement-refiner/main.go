package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"requirement-refiner/internal/config"
	"requirement-refiner/internal/helpers"
	"requirement-refiner/internal/metrics"
	"requirement-refiner/internal/models"
	"requirement-refiner/internal/repositories"
	"requirement-refiner/internal/services"
	"requirement-refiner/internal/tui"
)

var (
	configFile string

	inputFile    string
	imageFile    string
	refinements  []string
	exportNames  []string
	expandNames  []string
	collapseName []string

	analysisFile string
	formatName   string
	logFile      string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "requirement-refiner",
		Short: "Requirement Refiner - AI-assisted requirement analysis and refinement",
		Long: `Requirement Refiner sends a raw requirement to an analysis service,
shows the structured report, applies refinement instructions to it and exports
the result as a Word or PDF document.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")

	// Init command
	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		RunE:  runInit,
	}
	rootCmd.AddCommand(initCmd)

	// Analyze command
	var analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a requirement file",
		Long:  "Analyze a requirement, optionally refine and export the resulting report",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Requirement text file (required)")
	analyzeCmd.Flags().StringVar(&imageFile, "image", "", "Image to attach to the requirement")
	analyzeCmd.Flags().StringArrayVarP(&refinements, "refine", "r", nil, "Refinement instruction, applied in order (repeatable)")
	analyzeCmd.Flags().StringSliceVarP(&exportNames, "export", "e", nil, "Export formats: word, pdf")
	analyzeCmd.Flags().StringSliceVar(&expandNames, "expand", nil, "Report sections to show in addition to the defaults")
	analyzeCmd.Flags().StringSliceVar(&collapseName, "collapse", nil, "Report sections to hide")
	analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)

	// Session command
	var sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Start an interactive analysis session",
		RunE:  runSession,
	}
	sessionCmd.Flags().StringVar(&logFile, "log", "requirement-refiner.log", "File that receives diagnostics during the session")
	rootCmd.AddCommand(sessionCmd)

	// Export command
	var exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export a saved analysis as a document",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&analysisFile, "analysis", "a", "", "Analysis JSON file (required)")
	exportCmd.Flags().StringVarP(&formatName, "format", "f", "pdf", "Document format: word or pdf")
	exportCmd.MarkFlagRequired("analysis")
	rootCmd.AddCommand(exportCmd)

	if err := rootCmd.Execute(); err != nil {
		helpers.PrintError("Error: %v", err)
		os.Exit(1)
	}
}

// app holds the wired components shared by the commands
type app struct {
	cfg      *config.Config
	exporter *services.Exporter
	workflow *services.Workflow
	analysis *services.AnalysisService
	shutdown func()
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := initTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	workflowMetrics, err := metrics.NewWorkflowMetrics()
	if err != nil {
		shutdown()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	repo := repositories.NewRefinerRepository(&cfg.Service)
	exporter := services.NewExporter(repo, helpers.DirSaver{Dir: cfg.Export.OutputDir}, &cfg.Export, workflowMetrics)

	workflow, err := services.NewWorkflow(repo, exporter, workflowMetrics)
	if err != nil {
		shutdown()
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return &app{
		cfg:      cfg,
		exporter: exporter,
		workflow: workflow,
		analysis: services.NewAnalysisService(cfg),
		shutdown: shutdown,
	}, nil
}

// initTelemetry installs the trace and meter providers and returns a func
// that flushes both
func initTelemetry(telemetry *config.TelemetryConfig) (func(), error) {
	shutdownTracer, err := initTracer(telemetry.TraceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	interval := time.Duration(telemetry.MetricsIntervalSeconds) * time.Second
	shutdownMeter, err := initMeter(telemetry.MetricsFile, interval)
	if err != nil {
		shutdownTracer()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return func() {
		shutdownMeter()
		shutdownTracer()
	}, nil
}

// initTracer initializes OpenTelemetry tracing to a file. An empty path
// leaves the no-op provider in place.
func initTracer(path string) (func(), error) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	if path == "" {
		return func() {}, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(file), stdouttrace.WithPrettyPrint())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			helpers.PrintWarning("Failed to flush traces: %v", err)
		}
		file.Close()
	}, nil
}

// initMeter exports OpenTelemetry metrics to a file every interval. An empty
// path leaves the no-op provider in place.
func initMeter(path string, interval time.Duration) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(file), stdoutmetric.WithPrettyPrint())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	return func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			helpers.PrintWarning("Failed to flush metrics: %v", err)
		}
		file.Close()
	}, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	helpers.PrintTitle("Initializing Requirement Refiner Configuration")

	if _, err := os.Stat(configFile); err == nil {
		if !confirm(fmt.Sprintf("Configuration file already exists at %s. Overwrite it? (y/N): ", configFile)) {
			helpers.PrintInfo("Configuration initialization cancelled.")
			return nil
		}
	}

	if err := config.WriteConfig(config.Default(), configFile); err != nil {
		return err
	}

	helpers.PrintSuccess("Configuration file created at %s", configFile)
	helpers.PrintWarning("Please check service.base_url before running the analyze command.")
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sections, err := sectionChanges(expandNames, collapseName)
	if err != nil {
		return err
	}
	formats, err := parseFormats(exportNames)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.shutdown()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	helpers.PrintTitle("Analyzing Requirement")
	helpers.PrintInfo("Input file: %s", inputFile)
	helpers.PrintInfo("Service: %s", a.cfg.Service.BaseURL)

	requirement, err := helpers.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	if imageFile != "" {
		if err := a.workflow.SelectImage(imageFile); err != nil {
			return fmt.Errorf("failed to attach image: %w", err)
		}
		helpers.PrintInfo("Attached image: %s", imageFile)
	}

	if err := a.workflow.Submit(ctx, requirement); err != nil {
		return err
	}

	session := a.workflow.Snapshot()
	if n := session.ValidationNotice; n.Visible {
		helpers.PrintWarning("%s", n.Message)
		return fmt.Errorf("requirement was not accepted for analysis")
	}
	if n := session.ErrorNotice; n.Visible {
		return fmt.Errorf("analysis failed: %s", n.Message)
	}
	helpers.PrintSuccess("Analysis complete (session %s)", session.ID)

	var applied []string
	for i, instruction := range refinements {
		helpers.PrintInfo("Refinement %d/%d: %s", i+1, len(refinements), instruction)
		if err := a.workflow.Refine(ctx, instruction); err != nil {
			helpers.PrintWarning("Skipped refinement: %v", err)
			continue
		}

		if n := a.workflow.Snapshot().ErrorNotice; n.Visible {
			helpers.PrintError("%s", n.Message)
			a.workflow.DismissErrorNotice()
			continue
		}
		applied = append(applied, instruction)
	}

	for _, name := range sections {
		a.workflow.ToggleSection(name)
	}

	session = a.workflow.Snapshot()
	a.analysis.DisplayReport(session)

	if a.cfg.Processing.SaveReport {
		if _, err := a.analysis.SaveAnalysisResult(session, applied, a.cfg.Processing.OutputDir); err != nil {
			return fmt.Errorf("failed to save analysis result: %w", err)
		}
	}

	exported := exportAll(ctx, formats, func(ctx context.Context, format models.ExportFormat) (string, error) {
		return a.workflow.ExportAs(ctx, format)
	})
	if exported < len(formats) {
		return fmt.Errorf("%d of %d exports failed", len(formats)-exported, len(formats))
	}

	helpers.PrintSuccess("Processing completed successfully!")
	return nil
}

func runSession(cmd *cobra.Command, args []string) error {
	if !helpers.IsTerminal(os.Stdin) || !helpers.IsTerminal(os.Stdout) {
		return fmt.Errorf("session needs an interactive terminal; use analyze for scripted runs")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.shutdown()

	log, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer log.Close()

	stdout := color.Output
	helpers.SetOutput(log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	program := tea.NewProgram(tui.NewModel(ctx, a.workflow, a.analysis), tea.WithAltScreen())
	final, err := program.Run()
	helpers.SetOutput(stdout)
	if err != nil {
		return fmt.Errorf("session failed: %w", err)
	}

	model, ok := final.(tui.Model)
	if !ok || model.Session().Analysis == nil || !a.cfg.Processing.SaveReport {
		return nil
	}

	if _, err := a.analysis.SaveAnalysisResult(model.Session(), model.Refinements(), a.cfg.Processing.OutputDir); err != nil {
		return fmt.Errorf("failed to save analysis result: %w", err)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := models.ParseExportFormat(formatName)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.shutdown()

	helpers.PrintTitle("Exporting Saved Analysis")
	helpers.PrintInfo("Analysis file: %s", analysisFile)

	result, err := a.analysis.LoadAnalysisResult(analysisFile)
	if err != nil {
		return err
	}
	helpers.PrintSuccess("Loaded analysis for: %s", firstLine(result.Requirement))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = repositories.ContextWithSessionID(ctx, result.SessionID)

	exported := exportAll(ctx, []models.ExportFormat{format}, func(ctx context.Context, format models.ExportFormat) (string, error) {
		return a.exporter.Export(ctx, format, result.Report)
	})
	if exported == 0 {
		return fmt.Errorf("export failed")
	}
	return nil
}

// exportAll runs export for every format and returns how many succeeded
func exportAll(ctx context.Context, formats []models.ExportFormat, export func(context.Context, models.ExportFormat) (string, error)) int {
	succeeded := 0
	for _, format := range formats {
		path, err := export(ctx, format)
		if err != nil {
			helpers.PrintWarning("Could not export %s document", format)
			continue
		}
		helpers.PrintSuccess("Saved %s document to: %s", format, path)
		succeeded++
	}
	return succeeded
}

func parseFormats(names []string) ([]models.ExportFormat, error) {
	var formats []models.ExportFormat
	for _, name := range names {
		format, err := models.ParseExportFormat(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, err
		}
		if !slices.Contains(formats, format) {
			formats = append(formats, format)
		}
	}
	return formats, nil
}

// sectionChanges returns the sections whose default visibility must be
// toggled to honor the expand and collapse flags
func sectionChanges(expand, collapse []string) ([]string, error) {
	defaults := services.DefaultSections()
	var toggles []string

	for _, group := range []struct {
		names   []string
		visible bool
	}{{expand, true}, {collapse, false}} {
		for _, name := range group.names {
			current, known := defaults[name]
			if !known {
				return nil, fmt.Errorf("unknown report section %q (known: %s)", name, strings.Join(services.SectionNames(), ", "))
			}
			if current != group.visible {
				defaults[name] = group.visible
				toggles = append(toggles, name)
			}
		}
	}

	return toggles, nil
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(prompt)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
