// config.go: settings struct for the xrfmap application and functions to load and save it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// Log rotation policies
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

// Mask modes. Exactly one is active at a time.
const (
	MaskModeNone = 0 // no mask
	MaskModeRect = 1 // rectangle defined by two corner positions
	MaskModeFile = 2 // mask loaded from an external file
)

// LogConfig holds settings for a rotated log file.
type LogConfig struct {
	Enabled  bool   // true to enable log file
	Path     string // path to log file
	Rotation string // rotation policy: daily, weekly or size
	MaxSize  int64  // max size in bytes for size rotation
}

// MainSettings contains program-level settings.
type MainSettings struct {
	Name string    // node name, used in log and output file naming
	Log  LogConfig // log file settings
}

// ProcessingSettings controls how XRF maps are split into blocks for the worker pool.
type ProcessingSettings struct {
	ChunkPixels int // desired number of pixels in a single processing block
	MinChunks   int // minimum number of blocks the map is split into
	Workers     int // number of worker goroutines, 0 for NumCPU
}

// FitSettings contains settings for pixel-wise spectral fitting.
type FitSettings struct {
	ParamFile      string   // path to JSON fitting parameter file
	ChannelEach    bool     // true to fit each detector channel instead of the sum
	ParamChannels  []string `yaml:"-"` // per-channel parameter file association, runtime value
	UseSnip        bool     // true to subtract SNIP background before fitting
	IncidentEnergy float64  // incident energy override in keV, 0 to use scan metadata
}

// MaskSettings selects the processing mask. Mode is one of the MaskMode constants.
type MaskSettings struct {
	Mode  int    // 0 = no mask, 1 = rectangle, 2 = file
	P1Row int    // first corner row (rectangle mode)
	P1Col int    // first corner column (rectangle mode)
	P2Row int    // second corner row (rectangle mode)
	P2Col int    // second corner column (rectangle mode)
	File  string // path to mask file (file mode), TIFF or CSV
}

// OutputSettings controls which artifacts the fit writes and where.
type OutputSettings struct {
	Dir      string // output directory, working dir if empty
	SaveTxt  bool   // write text matrices
	SaveTiff bool   // write TIFF elemental maps
}

// CatalogSettings configures the local scan-run catalog.
type CatalogSettings struct {
	Enabled bool   // true to record processed runs in the catalog
	Path    string // path to the sqlite catalog file
}

// InputConfig holds per-invocation input, set from command arguments.
type InputConfig struct {
	Path      string `yaml:"-"` // path to input scan file or directory
	Recursive bool   `yaml:"-"` // true for recursive directory processing
}

// Settings contains all configuration options for the xrfmap application.
type Settings struct {
	Debug      bool   // true to enable debug output
	WorkingDir string // working directory for scan files and outputs

	Main       MainSettings
	Processing ProcessingSettings
	Fit        FitSettings
	Mask       MaskSettings
	Output     OutputSettings
	Catalog    CatalogSettings

	Input InputConfig `yaml:"-"`
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Defaults defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
