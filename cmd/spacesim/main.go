package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/spacesim/internal/config"
	"github.com/san-kum/spacesim/internal/export"
	"github.com/san-kum/spacesim/internal/logging"
	"github.com/san-kum/spacesim/internal/metrics"
	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/server"
	"github.com/san-kum/spacesim/internal/sim"
	"github.com/san-kum/spacesim/internal/storage"
	"github.com/san-kum/spacesim/internal/viz"
)

const energySamples = 100000

var (
	dataDir  string
	logLevel string

	configFile    string
	dt            float64
	duration      float64
	serveInterval time.Duration
	runInterval   time.Duration
	liveInterval  time.Duration
	frameLimit    int
	exportPath    string
	addr          string
	plotBody      int
	svgPath       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "spacesim",
		Short:         "2d gravitational n-body simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".spacesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve simulations over websocket",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":5000", "listen address")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", sim.DefaultInterval, "time between frames")

	runCmd := &cobra.Command{
		Use:   "run [preset...]",
		Short: "run scenarios headless and save them",
		Args:  cobra.ArbitraryArgs,
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "time between frames (0 runs flat out)")
	runCmd.Flags().IntVar(&frameLimit, "frames", 2000, "maximum number of frames to store")
	runCmd.Flags().StringVar(&exportPath, "export", "", "also write each run as json, suffixed with its scenario name")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scenario in the terminal viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().DurationVar(&liveInterval, "interval", sim.DefaultInterval, "time between frames")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a body's trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotBody, "body", 0, "body index")
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also draw every trajectory to this svg file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(serveCmd, runCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", 0, "override time_delta")
	cmd.Flags().Float64Var(&duration, "time", 0, "override simulation_time")
}

// loadScenario resolves the scenario from --config or a preset name, then
// applies flag overrides.
func loadScenario(cmd *cobra.Command, args []string) (string, *config.Launch, error) {
	var (
		name string
		cfg  *config.Launch
	)
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load config: %w", err)
		}
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
		cfg = loaded
	default:
		name = "binary"
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return "", nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if cmd.Flags().Changed("dt") {
		cfg.TimeDelta = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.SimulationTime = duration
	}
	return name, cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = addr
	}
	if cmd.Flags().Changed("interval") {
		cfg.FrameInterval = serveInterval
	}
	if cmd.Flags().Changed("data") {
		cfg.DataDir = dataDir
	}
	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}

	logger, err := logging.New(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("starting server",
		zap.String("addr", cfg.Addr),
		zap.Duration("frame_interval", cfg.FrameInterval),
		zap.Int("max_sessions", cfg.MaxSessions))
	return server.New(cfg, server.WithLogger(logger)).Run(ctx)
}

// headlessRun is one scenario prepared for a headless run.
type headlessRun struct {
	name     string
	engine   *physics.Engine
	driver   *sim.Driver
	energy   *metrics.KineticEnergy
	recorder *storage.Recorder
}

func prepareRun(name string, cfg *config.Launch, logger *zap.Logger) (*headlessRun, error) {
	engine, err := config.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	total := engine.Params().TotalSteps()
	every := 1
	if frameLimit > 0 && total > frameLimit {
		every = (total + frameLimit - 1) / frameLimit
	}
	r := &headlessRun{
		name:     name,
		engine:   engine,
		energy:   metrics.NewKineticEnergy(min(total, energySamples)),
		recorder: storage.NewRecorder(every),
	}
	r.driver = sim.NewDriver(engine, sim.Discard,
		sim.WithInterval(runInterval),
		sim.WithLogger(logger.With(zap.String("scenario", name))),
		sim.WithMetric(r.energy),
		sim.WithMetric(metrics.NewMomentumDrift()),
		sim.WithMetric(metrics.NewBodyCount()),
		sim.WithObserver(r.recorder),
	)
	return r, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if len(args) > 1 && configFile != "" {
		return errors.New("--config runs a single scenario")
	}

	logger, err := logging.New(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	names := args
	if len(names) == 0 {
		names = []string{""}
	}
	runs := make([]*headlessRun, 0, len(names))
	drivers := make([]*sim.Driver, 0, len(names))
	for _, arg := range names {
		var scenarioArgs []string
		if arg != "" {
			scenarioArgs = []string{arg}
		}
		name, cfg, err := loadScenario(cmd, scenarioArgs)
		if err != nil {
			return err
		}
		r, err := prepareRun(name, cfg, logger)
		if err != nil {
			return err
		}
		runs = append(runs, r)
		drivers = append(drivers, r.driver)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, r := range runs {
		fmt.Printf("running %s: %d bodies, %d steps...\n", r.name, r.engine.Len(), r.engine.Params().TotalSteps())
	}
	start := time.Now()
	results, errs := sim.NewEnsemble(runtime.NumCPU(), drivers...).Run(ctx)
	elapsed := time.Since(start)

	var failed error
	for i, r := range runs {
		if err := report(st, r, results[i], elapsed); err != nil {
			return err
		}
		if errs[i] != nil && !errors.Is(errs[i], context.Canceled) {
			fmt.Printf("  error: %v\n", errs[i])
			failed = errors.Join(failed, fmt.Errorf("%s: %w", r.name, errs[i]))
		}
	}
	return failed
}

// report saves one finished run and prints its summary.
func report(st *storage.Store, r *headlessRun, result *sim.Result, elapsed time.Duration) error {
	meta := storage.NewRunMetadata(r.name, r.engine, result)
	frames := r.recorder.Frames()
	runID, err := st.Save(meta, frames)
	if err != nil {
		return err
	}
	meta.ID = runID

	fmt.Printf("\n%s %s in %v\n", r.name, result.Status, elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d, frames stored: %d\n", result.StepsTaken, len(frames))
	fmt.Println("\nmetrics:")
	for _, key := range []string{"kinetic_energy", "momentum_drift", "bodies"} {
		fmt.Printf("  %s: %.6f\n", key, result.Metrics[key])
	}

	if series := r.energy.Series(); len(series) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(r.name+" kinetic energy"),
		))
	}

	if exportPath == "" {
		return nil
	}
	ext := filepath.Ext(exportPath)
	path := strings.TrimSuffix(exportPath, ext) + "_" + r.name + ext
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return storage.ExportJSON(f, meta, frames)
}

func runLive(cmd *cobra.Command, args []string) error {
	name, cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	engine, err := config.Build(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := viz.Run(ctx, name, engine, sim.WithInterval(liveInterval))
	if result != nil {
		fmt.Printf("%s: %s after %d steps\n", name, result.Status, result.StepsTaken)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tBODIES\tSTEPS\tDT\tCOLLISION\tSTATUS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%g\t%s\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Bodies,
			run.Steps,
			run.TimeDelta,
			run.Collision,
			run.Status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	xs := make([]float64, 0, len(frames))
	ys := make([]float64, 0, len(frames))
	for _, f := range frames {
		if plotBody < 0 || plotBody >= len(f.Bodies) {
			continue
		}
		xs = append(xs, f.Bodies[plotBody].X)
		ys = append(ys, f.Bodies[plotBody].Y)
	}
	if len(xs) < 2 {
		return fmt.Errorf("run %s has fewer than two frames for body %d", runID, plotBody)
	}

	if svgPath != "" {
		f, err := os.Create(svgPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.TrajectoriesSVG(f, frames, 800, 800); err != nil {
			return err
		}
		fmt.Printf("trajectories written to %s\n", svgPath)
	}

	fmt.Printf("run: %s (%s, %s)\n\n", meta.ID, meta.Scenario, meta.Status)
	for _, s := range []struct {
		data    []float64
		caption string
	}{
		{xs, fmt.Sprintf("body %d x", plotBody)},
		{ys, fmt.Sprintf("body %d y", plotBody)},
	} {
		fmt.Println(asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, frames)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBODIES\tDT\tTIME\tCOLLISION\tCONTROLLABLE")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		collision := fmt.Sprint(cfg.CollisionType)
		if ct, err := physics.ParseCollisionType(cfg.CollisionType); err == nil {
			collision = ct.String()
		}
		controllable := "no"
		for _, obj := range cfg.SpaceObjects {
			if obj.MovementType != nil && *obj.MovementType == int(physics.Controllable) {
				controllable = "yes"
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%g\t%g\t%s\t%s\n",
			name, len(cfg.SpaceObjects), cfg.TimeDelta, cfg.SimulationTime, collision, controllable)
	}
	return w.Flush()
}
