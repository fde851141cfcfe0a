package ikarm

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"

	"ikarm/kinematics"
)

// Pitch search defaults, in degrees.
const (
	DefaultPitchLow       = -90.0
	DefaultPitchHigh      = 90.0
	DefaultPreferredPitch = 0.0
)

// Config is the configuration of the ik-4dof service.
type Config struct {
	// Link lengths used when no links file is configured or it cannot be loaded.
	LinkLengths *kinematics.LinkLengths `json:"link_lengths,omitempty"`

	// JSON file holding {"l1","l2","l3","l4"}. Relative paths live under $VIAM_MODULE_DATA.
	LinksFile      string `json:"links_file,omitempty"`
	WatchLinksFile bool   `json:"watch_links_file,omitempty"`

	// Pitch search parameters (degrees). Zero is a valid pitch, so unset is nil.
	PitchLow       *float64 `json:"pitch_low,omitempty"`
	PitchHigh      *float64 `json:"pitch_high,omitempty"`
	PreferredPitch *float64 `json:"preferred_pitch,omitempty"`
	PitchStep      float64  `json:"pitch_step,omitempty"` // default 1

	// Name of the arm component that receives solved joint positions.
	Arm string `json:"arm,omitempty"`
}

// Validate ensures all parts of the config are valid
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.LinkLengths != nil {
		if err := cfg.LinkLengths.Validate(); err != nil {
			return nil, nil, errors.Wrapf(err, "%s: link_lengths", path)
		}
	}

	if cfg.WatchLinksFile && cfg.LinksFile == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "links_file")
	}

	if cfg.PitchStep < 0 || math.IsNaN(cfg.PitchStep) || math.IsInf(cfg.PitchStep, 0) {
		return nil, nil, errors.Errorf("%s: pitch_step must be a positive number, got %v", path, cfg.PitchStep)
	}
	for name, v := range map[string]*float64{
		"pitch_low":       cfg.PitchLow,
		"pitch_high":      cfg.PitchHigh,
		"preferred_pitch": cfg.PreferredPitch,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return nil, nil, errors.Errorf("%s: %s must be finite", path, name)
		}
	}

	var deps []string
	if cfg.Arm != "" {
		deps = append(deps, arm.Named(cfg.Arm).String())
	}
	return deps, nil, nil
}

// searchParams are the pitch search settings with defaults applied.
type searchParams struct {
	low, high, preferred, step float64
}

func (cfg *Config) searchParams() searchParams {
	p := searchParams{
		low:       DefaultPitchLow,
		high:      DefaultPitchHigh,
		preferred: DefaultPreferredPitch,
		step:      kinematics.DefaultPitchStep,
	}
	if cfg.PitchLow != nil {
		p.low = *cfg.PitchLow
	}
	if cfg.PitchHigh != nil {
		p.high = *cfg.PitchHigh
	}
	if cfg.PreferredPitch != nil {
		p.preferred = *cfg.PreferredPitch
	}
	if cfg.PitchStep > 0 {
		p.step = cfg.PitchStep
	}
	return p
}

// linksFilePath resolves LinksFile, placing relative paths under VIAM_MODULE_DATA.
func (cfg *Config) linksFilePath() string {
	if cfg.LinksFile == "" || filepath.IsAbs(cfg.LinksFile) {
		return cfg.LinksFile
	}
	moduleDataDir := os.Getenv("VIAM_MODULE_DATA")
	if moduleDataDir == "" {
		moduleDataDir = "/tmp"
	}
	return filepath.Join(moduleDataDir, cfg.LinksFile)
}

// configuredLinkLengths is link_lengths when set, otherwise the reference arm.
func (cfg *Config) configuredLinkLengths() kinematics.LinkLengths {
	if cfg.LinkLengths != nil {
		return *cfg.LinkLengths
	}
	return kinematics.DefaultLinkLengths
}

// LoadLinkLengths loads link lengths from the links file, falling back to link_lengths
// or the defaults. The bool reports whether the values came from the file.
func (cfg *Config) LoadLinkLengths(logger logging.Logger) (kinematics.LinkLengths, bool) {
	path := cfg.linksFilePath()
	if path == "" {
		logger.Debug("No links file specified, using configured link lengths")
		return cfg.configuredLinkLengths(), false
	}

	links, err := LoadLinkLengthsFromFile(path)
	if err != nil {
		logger.Warnf("Failed to load link lengths from %s: %v, using configured link lengths", path, err)
		return cfg.configuredLinkLengths(), false
	}

	logger.Infof("Loaded link lengths from %s: %v", path, links)
	return links, true
}

// LoadLinkLengthsFromFile reads and validates link lengths from a JSON file.
func LoadLinkLengthsFromFile(path string) (kinematics.LinkLengths, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return kinematics.LinkLengths{}, errors.Wrap(err, "failed to read links file")
	}

	var links kinematics.LinkLengths
	if err := json.Unmarshal(data, &links); err != nil {
		return kinematics.LinkLengths{}, errors.Wrap(err, "failed to parse links JSON")
	}
	if err := links.Validate(); err != nil {
		return kinematics.LinkLengths{}, err
	}
	return links, nil
}

// SaveLinkLengthsToFile writes link lengths to a JSON file.
func SaveLinkLengthsToFile(path string, links kinematics.LinkLengths) error {
	if err := links.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal link lengths")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write links file")
	}
	return nil
}
