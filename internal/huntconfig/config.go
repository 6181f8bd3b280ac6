// Package huntconfig holds the configuration contract: sweep bounds,
// tolerances, thresholds and filter toggles. Configuration lives in a
// JSON file on disk, with an environment-variable override for its
// path and silent fallback to defaults when the file or a field is
// missing or malformed.
package huntconfig

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
)

const (
	defaultConfigPath = "~/.config/huntmover/config.json"
	envConfigPath     = "HUNTMOVER_CONFIG"
)

// Config holds every tunable the synthetic-tracking pipeline reads.
// Angles are stored in degrees on disk (the human-editable format) and
// converted to radians by PAMinRadians/PAMaxRadians.
type Config struct {
	Sweep      Sweep      `json:"sweep"`
	Tolerance  Tolerance  `json:"tolerance"`
	Thresholds Thresholds `json:"thresholds"`
	Options    Options    `json:"options"`
	Storage    Storage    `json:"storage"`
	Server     Server     `json:"server"`
	Logging    Logging    `json:"logging"`
}

// Sweep bounds the motion/angle grid synthetic tracking searches.
type Sweep struct {
	MotionMinArcsecPerMin float64 `json:"motion_min"`
	MotionMaxArcsecPerMin float64 `json:"motion_max"`
	PAMinDeg              float64 `json:"pa_min"`
	PAMaxDeg              float64 `json:"pa_max"`
}

// Tolerance carries the detection/matching tolerances.
type Tolerance struct {
	TrkErrPixels  float64 `json:"trk_err"`
	PosErrArcsec  float64 `json:"pos_err"`
	AperturePixel float64 `json:"aperture"`
	TCountBase    int     `json:"tcount_base"`
}

// Thresholds holds the sigma multipliers used throughout the pipeline.
type Thresholds struct {
	Sigma1         float64 `json:"sigma1"` // detection
	Sigma2         float64 `json:"sigma2"` // star mask
	BlackFits      float64 `json:"black_fits"`
	WhiteFits      float64 `json:"white_fits"`
	BlackHist      float64 `json:"black_hist"`
	WhiteHist      float64 `json:"white_hist"`
	LowerSigmaClip float64 `json:"lower_sigma_clip"` // K, pass-2 histogram clip
}

// Options toggles optional filtering stages.
type Options struct {
	Blur    bool `json:"blur"`
	DeLine  bool `json:"deline"`
	Flatten bool `json:"flatten"`
}

// Storage configures the run/mover persistence layer.
type Storage struct {
	DatabasePath string `json:"database_path"`
}

// Server configures the result-server contract surface.
type Server struct {
	ListenAddr string `json:"listen_addr"`
}

// Logging configures the run's log output.
type Logging struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	FileOutput bool   `json:"file_output"`
	LogDir     string `json:"log_dir"`
}

// Load reads configuration from disk (path from HUNTMOVER_CONFIG, or
// the default), falling back to defaults entirely if the file is
// absent, or per already-populated field if individual keys are
// missing from JSON. A malformed file leaves every field at its default;
// a value of the wrong type leaves that field at its default.
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv(envConfigPath)
	if configPath == "" {
		configPath = defaultConfigPath
	}

	expanded, err := expandUser(configPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	// Decode errors are ignored: syntax errors are detected before any
	// field is written, and type errors skip only the offending field.
	_ = dec.Decode(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Sweep: Sweep{
			MotionMinArcsecPerMin: 0.5,
			MotionMaxArcsecPerMin: 10,
			PAMinDeg:              0,
			PAMaxDeg:              360,
		},
		Tolerance: Tolerance{
			TrkErrPixels:  1.0,
			PosErrArcsec:  1.0,
			AperturePixel: 3.0,
			TCountBase:    3,
		},
		Thresholds: Thresholds{
			Sigma1:         3.0,
			Sigma2:         5.0,
			BlackFits:      2.0,
			WhiteFits:      3.0,
			BlackHist:      2.0,
			WhiteHist:      3.0,
			LowerSigmaClip: 2.0,
		},
		Options: Options{
			Blur:    true,
			DeLine:  true,
			Flatten: false,
		},
		Storage: Storage{
			DatabasePath: filepath.Join(os.TempDir(), "huntmover.db"),
		},
		Server: Server{
			ListenAddr: ":8420",
		},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			FileOutput: false,
			LogDir:     filepath.Join(os.TempDir(), "huntmover-logs"),
		},
	}
}

// PAMinRadians and PAMaxRadians convert the degree-denominated bounds
// into the radians internal packages use end-to-end.
func (c *Config) PAMinRadians() float64 { return c.Sweep.PAMinDeg * math.Pi / 180 }
func (c *Config) PAMaxRadians() float64 { return c.Sweep.PAMaxDeg * math.Pi / 180 }

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
