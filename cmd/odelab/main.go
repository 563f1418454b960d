package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/kmatsu/odelab/internal/config"
	"github.com/kmatsu/odelab/internal/engine"
	"github.com/kmatsu/odelab/internal/models"
	"github.com/kmatsu/odelab/internal/ode"
	"github.com/kmatsu/odelab/internal/server"
	"github.com/kmatsu/odelab/internal/session"
	"github.com/kmatsu/odelab/internal/storage"
	"github.com/kmatsu/odelab/internal/stepper"
	"github.com/kmatsu/odelab/internal/tui"
)

var (
	dataDir    string
	configFile string
	logLevel   string

	listen string

	t0       float64
	tn       float64
	interval float64
	initStep float64
	minStep  float64
	maxStep  float64
	setVars  []string
	setConst []string
	watchVar string
	noSave   bool
	noPlot   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "odelab",
		Short: "incremental ODE simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve a simulation session over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listen, "listen", "", "listen address")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "solve a model over a time span and print sampled output",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	runCmd.Flags().Float64Var(&t0, "t0", 0.0, "start time")
	runCmd.Flags().Float64Var(&tn, "time", 10.0, "target time")
	runCmd.Flags().Float64Var(&interval, "interval", config.DefaultInterval, "output sampling interval")
	runCmd.Flags().Float64Var(&initStep, "init-step", 0, "initial step size (0 = automatic)")
	runCmd.Flags().Float64Var(&minStep, "min-step", 0, "minimum step size")
	runCmd.Flags().Float64Var(&maxStep, "max-step", 0, "maximum step size (0 = unbounded)")
	runCmd.Flags().StringArrayVar(&setVars, "set", nil, "initial value, name=value (repeatable)")
	runCmd.Flags().StringArrayVar(&setConst, "const", nil, "model constant, name=value (repeatable)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "skip persisting the run")
	runCmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip the terminal plots")

	watchCmd := &cobra.Command{
		Use:   "watch [model]",
		Short: "watch a model evolve live in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().Float64Var(&t0, "t0", 0.0, "start time")
	watchCmd.Flags().Float64Var(&interval, "interval", 0.05, "simulated seconds per frame")
	watchCmd.Flags().StringVar(&watchVar, "watch", "", "variable to chart")
	watchCmd.Flags().StringArrayVar(&setVars, "set", nil, "initial value, name=value (repeatable)")
	watchCmd.Flags().StringArrayVar(&setConst, "const", nil, "model constant, name=value (repeatable)")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := models.NewRegistry()
			for _, name := range registry.List() {
				fmt.Println(name)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	rootCmd.AddCommand(serveCmd, runCmd, watchCmd, modelsCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
	}))
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Listen
	}
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
	}
	log := newLogger(logLevel)
	slog.SetDefault(log)

	sess := session.New(models.NewRegistry(), log)
	srv := server.New(listen, sess, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// buildEngine constructs a model and engine from the shared flag set:
// the model name, start time, step bounds, and the --set/--const pairs.
func buildEngine(name string) (*engine.Engine, error) {
	registry := models.NewRegistry()
	model, err := registry.Get(name)
	if err != nil {
		return nil, err
	}

	consts, err := parsePairs(setConst)
	if err != nil {
		return nil, err
	}
	if len(consts) > 0 {
		cfg, ok := model.(ode.Configurable)
		if !ok {
			return nil, fmt.Errorf("model %s has no configurable constants", name)
		}
		for k, v := range consts {
			if err := cfg.SetParam(k, v); err != nil {
				return nil, err
			}
		}
	}

	eng, err := engine.New(model, engine.Options{
		T0:     t0,
		Bounds: stepper.Bounds{Initial: initStep, Min: minStep, Max: maxStep},
	})
	if err != nil {
		return nil, err
	}

	vals, err := parsePairs(setVars)
	if err != nil {
		return nil, err
	}
	if err := eng.Binding().SetScalars(vals); err != nil {
		return nil, err
	}
	return eng, nil
}

func parsePairs(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", p)
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("value for %s: %w", name, err)
		}
		out[name] = val
	}
	return out, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(args[0])
	if err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %g", interval)
	}

	sol, err := eng.Advance(tn)
	if err != nil {
		return err
	}

	times := engine.Grid(t0, tn, interval)
	states, err := sol.Sample(times)
	if err != nil {
		return err
	}

	columns := flatColumns(eng.Model().Vars())
	series := make([][]float64, len(columns))
	for i := range series {
		series[i] = make([]float64, len(times))
		for k, y := range states {
			series[i][k] = y[i]
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T\t"+strings.ToUpper(strings.Join(columns, "\t")))
	for k, t := range times {
		row := make([]string, 0, len(columns)+1)
		row = append(row, strconv.FormatFloat(t, 'g', 6, 64))
		for i := range columns {
			row = append(row, strconv.FormatFloat(series[i][k], 'g', 6, 64))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !noPlot {
		for i, col := range columns {
			fmt.Println()
			fmt.Println(asciigraph.Plot(series[i],
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption(col+" vs time"),
			))
		}
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(args[0], columns, times, series)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return nil
}

// flatColumns names each component of the flat state vector: scalar
// variables keep their name, array variables get an index suffix.
func flatColumns(schema ode.Schema) []string {
	columns := make([]string, 0, schema.Len())
	for _, spec := range schema.Specs() {
		if spec.Length == 1 {
			columns = append(columns, spec.Name)
			continue
		}
		for i := 0; i < spec.Length; i++ {
			columns = append(columns, fmt.Sprintf("%s[%d]", spec.Name, i))
		}
	}
	return columns
}

func runWatch(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(args[0])
	if err != nil {
		return err
	}
	return tui.RunWatch(eng, tui.Options{
		ModelName: args[0],
		Interval:  interval,
		Watch:     watchVar,
	})
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
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSPAN\tINTERVAL\tCOLUMNS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t[%g, %g]\t%g\t%s\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.T0, run.Tn,
			run.Interval,
			strings.Join(run.Columns, ","),
		)
	}
	return w.Flush()
}
