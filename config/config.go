// Package config loads the core's tunables, enumerated in spec.md §6, from
// a TOML file via github.com/spf13/viper -- the same library and
// section/key layout pattern as the teacher's smdConfig() (config.go),
// which reads "SPICE.directory", "general.output_path" and similar
// dotted keys. The CLI (package cmd/ssacore) takes the file's path as a
// flag; no CLI flag overrides an individual value loaded from the file.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"github.com/ssacore/conjunction/ssaerrors"
)

// Config is every tunable spec.md §6 enumerates.
type Config struct {
	EnablePerturbations bool
	UseSRP              bool
	Cr                  float64
	AreaOverMass        float64
	ScreeningKM         float64
	RiskKM              float64
	CoarseSteps         int
	HardBodyRadiusM     float64
	SigmaPosInitKM      float64
	SigmaVelInitKMS     float64
	SigmaPosProcKM      float64
	SigmaVelProcKMS     float64
	MaxWindowS          float64
	MinStepS            float64
}

// Default returns spec.md §6's documented defaults.
func Default() Config {
	return Config{
		EnablePerturbations: true,
		UseSRP:              true,
		Cr:                  1.5,
		AreaOverMass:        0.02,
		ScreeningKM:         50,
		RiskKM:              1.0,
		CoarseSteps:         500,
		HardBodyRadiusM:     10.0,
		SigmaPosInitKM:      0.1,
		SigmaVelInitKMS:     0.001,
		SigmaPosProcKM:      0.05,
		SigmaVelProcKMS:     0.0001,
		MaxWindowS:          7 * 86400,
		MinStepS:            1.0,
	}
}

// Load reads a TOML configuration file at path, overlaying spec.md §6's
// defaults with whatever keys the file sets under the "core" table.
// A missing file is not an error; Load falls back to the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, ssaerrors.NewConfigError("file", err.Error())
	}

	if v.IsSet("core.enable_perturbations") {
		cfg.EnablePerturbations = v.GetBool("core.enable_perturbations")
	}
	if v.IsSet("core.use_srp") {
		cfg.UseSRP = v.GetBool("core.use_srp")
	}
	if v.IsSet("core.cr") {
		cfg.Cr = v.GetFloat64("core.cr")
	}
	if v.IsSet("core.area_over_mass") {
		cfg.AreaOverMass = v.GetFloat64("core.area_over_mass")
	}
	if v.IsSet("core.screening_km") {
		cfg.ScreeningKM = v.GetFloat64("core.screening_km")
	}
	if v.IsSet("core.risk_km") {
		cfg.RiskKM = v.GetFloat64("core.risk_km")
	}
	if v.IsSet("core.coarse_steps") {
		cfg.CoarseSteps = v.GetInt("core.coarse_steps")
	}
	if v.IsSet("core.hard_body_radius_m") {
		cfg.HardBodyRadiusM = v.GetFloat64("core.hard_body_radius_m")
	}
	if v.IsSet("core.sigma_pos_init_km") {
		cfg.SigmaPosInitKM = v.GetFloat64("core.sigma_pos_init_km")
	}
	if v.IsSet("core.sigma_vel_init_kms") {
		cfg.SigmaVelInitKMS = v.GetFloat64("core.sigma_vel_init_kms")
	}
	if v.IsSet("core.sigma_pos_proc") {
		cfg.SigmaPosProcKM = v.GetFloat64("core.sigma_pos_proc")
	}
	if v.IsSet("core.sigma_vel_proc") {
		cfg.SigmaVelProcKMS = v.GetFloat64("core.sigma_vel_proc")
	}
	if v.IsSet("core.max_window_s") {
		cfg.MaxWindowS = v.GetFloat64("core.max_window_s")
	}
	if v.IsSet("core.min_step_s") {
		cfg.MinStepS = v.GetFloat64("core.min_step_s")
	}
	return cfg, nil
}

// Validate checks the §7 ConfigError failure modes: window above
// max_window_s, step <= 0, negative sigmas. windowS/stepS are the values a
// caller is about to run an assessment with, checked against this config's
// bounds.
func (c Config) Validate(windowS, stepS float64) error {
	if windowS > c.MaxWindowS {
		return ssaerrors.NewConfigError("window_s", "exceeds max_window_s")
	}
	if stepS <= 0 {
		return ssaerrors.NewConfigError("step_s", "must be positive")
	}
	if stepS < c.MinStepS {
		return ssaerrors.NewConfigError("step_s", "below min_step_s")
	}
	if c.SigmaPosInitKM < 0 || c.SigmaVelInitKMS < 0 {
		return ssaerrors.NewConfigError("sigma_init", "must be non-negative")
	}
	if c.SigmaPosProcKM < 0 || c.SigmaVelProcKMS < 0 {
		return ssaerrors.NewConfigError("sigma_proc", "must be non-negative")
	}
	if c.CoarseSteps < 1 {
		return ssaerrors.NewConfigError("coarse_steps", "must be at least 1")
	}
	if c.HardBodyRadiusM < 0 {
		return ssaerrors.NewConfigError("hard_body_radius_m", "must be non-negative")
	}
	return nil
}

// WindowDuration is a convenience conversion for CLI/test callers.
func WindowDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
