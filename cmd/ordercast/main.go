// Command ordercast runs the forecasting engine over a simulated demand
// series and writes the selected model and forecast chart to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/ordercast/ordercast"
	"github.com/ordercast/ordercast/timeseries"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config drives the demo run. All fields are optional and default to a
// four-month daily demand series with a weekly cycle and holiday spikes.
type Config struct {
	Points      int     `yaml:"points"`
	StepSeconds int64   `yaml:"step_seconds"`
	Level       float64 `yaml:"level"`
	WaveAmp     float64 `yaml:"wave_amp"`
	NoiseScale  float64 `yaml:"noise_scale"`
	HolidayAmp  float64 `yaml:"holiday_amp"`

	Horizon    int     `yaml:"horizon"`
	Confidence float64 `yaml:"confidence"`

	ChartPath string `yaml:"chart_path"`
	ModelPath string `yaml:"model_path"`
}

func defaultConfig() Config {
	return Config{
		Points:      120,
		StepSeconds: 24 * 60 * 60,
		Level:       100,
		WaveAmp:     10,
		NoiseScale:  2,
		HolidayAmp:  25,
		Horizon:     14,
		Confidence:  0.95,
		ChartPath:   "forecast.html",
		ModelPath:   "model.json",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse config %q: %w", path, err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to a yaml config file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("run", zap.Error(err))
	}
}

func run(cfg Config, logger *zap.Logger) error {
	series, err := simulateDemand(cfg)
	if err != nil {
		return fmt.Errorf("unable to simulate series: %w", err)
	}

	opt := ordercast.NewDefaultAutoSelectOptions()
	opt.Options.Logger = logger
	opt.ForecastHorizon = cfg.Horizon
	opt.ConfidenceLevel = cfg.Confidence

	res, err := ordercast.AutoSelect(context.Background(), series, opt)
	if err != nil {
		return fmt.Errorf("auto-select failed: %w", err)
	}

	fmt.Printf("%-14s %10s %10s %8s %8s %9s\n", "order", "aic", "bic", "r2", "mape", "score")
	for _, c := range res.Candidates {
		if c.Err != "" {
			fmt.Printf("%-14s %10s %10s %8s %8s %9s\n", c.Order, "-", "-", "-", "-", "failed")
			continue
		}
		fmt.Printf("%-14s %10.1f %10.1f %8.3f %8.1f %9.2f\n",
			c.Order, c.AIC, c.BIC, c.R2, c.MAPE, c.Score)
	}

	if cfg.ModelPath != "" {
		raw, err := json.MarshalIndent(res.Best, "", "  ")
		if err != nil {
			return fmt.Errorf("unable to marshal model: %w", err)
		}
		if err := os.WriteFile(cfg.ModelPath, raw, 0o644); err != nil {
			return fmt.Errorf("unable to write model: %w", err)
		}
		logger.Info("wrote model", zap.String("path", cfg.ModelPath))
	}

	if cfg.ChartPath != "" && res.Forecast != nil {
		f, err := os.Create(cfg.ChartPath)
		if err != nil {
			return fmt.Errorf("unable to create chart file: %w", err)
		}
		defer f.Close()

		line := ordercast.LineForecast("Demand Forecast "+res.BestOrder.String(), series, res.Forecast)
		if err := line.Render(f); err != nil {
			return fmt.Errorf("unable to render chart: %w", err)
		}
		logger.Info("wrote chart", zap.String("path", cfg.ChartPath))
	}
	return nil
}

func simulateDemand(cfg Config) (*timeseries.Series, error) {
	start := time.Now().UTC().Add(-time.Duration(cfg.Points) * time.Duration(cfg.StepSeconds) * time.Second)
	t := timeseries.GenerateT(cfg.Points, cfg.StepSeconds, start.Unix())

	rnd := rand.New(rand.NewPCG(42, 1))
	weekSeconds := float64(7 * 24 * 60 * 60)
	v := timeseries.GenerateConst(cfg.Points, cfg.Level).
		Add(timeseries.GenerateWave(t, cfg.WaveAmp, weekSeconds, 0)).
		Add(timeseries.GenerateNoise(cfg.Points, cfg.NoiseScale, rnd)).
		Add(timeseries.GenerateHolidaySpikes(t, cfg.HolidayAmp, nil))

	return timeseries.New(t, v)
}
