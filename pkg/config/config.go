package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Device types understood by DeviceConfig.Type.
const (
	DeviceSerial = "serial"
	DeviceGPIO   = "gpio"
	DeviceMock   = "mock"
)

// Trigger modes understood by TriggerConfig.Mode.
const (
	TriggerButton = "button"
	TriggerWeight = "weight"
)

// Clock sources understood by ClockConfig.Source.
const (
	ClockNTP    = "ntp"
	ClockSystem = "system"
)

// Config represents the application configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device" toml:"device"`
	Serial  SerialConfig  `yaml:"serial" toml:"serial"`
	GPIO    GPIOConfig    `yaml:"gpio" toml:"gpio"`
	Scale   ScaleConfig   `yaml:"scale" toml:"scale"`
	Trigger TriggerConfig `yaml:"trigger" toml:"trigger"`
	Sheet   SheetConfig   `yaml:"sheet" toml:"sheet"`
	Clock   ClockConfig   `yaml:"clock" toml:"clock"`
	Loop    LoopConfig    `yaml:"loop" toml:"loop"`
	Record  RecordConfig  `yaml:"record" toml:"record"`
	Mock    MockConfig    `yaml:"mock" toml:"mock"`
}

// DeviceConfig selects the scale backend.
type DeviceConfig struct {
	Type string `yaml:"type" toml:"type"` // serial, gpio or mock
}

// SerialConfig contains serial port configuration of the scale MCU.
type SerialConfig struct {
	Port     string        `yaml:"port" toml:"port"`
	BaudRate int           `yaml:"baud_rate" toml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout"` // Reply timeout per command
}

// GPIOConfig contains pin names for a load cell wired directly to the host.
type GPIOConfig struct {
	DataPin     string        `yaml:"data_pin" toml:"data_pin"`
	ClockPin    string        `yaml:"clock_pin" toml:"clock_pin"`
	ButtonPin   string        `yaml:"button_pin" toml:"button_pin"`
	LEDPin      string        `yaml:"led_pin" toml:"led_pin"`
	ReadTimeout time.Duration `yaml:"read_timeout" toml:"read_timeout"`
}

// ScaleConfig contains load cell calibration.
type ScaleConfig struct {
	Factor      float64 `yaml:"factor" toml:"factor"` // Raw counts per unit
	Offset      float64 `yaml:"offset" toml:"offset"` // Raw counts at zero load
	Samples     int     `yaml:"samples" toml:"samples"`
	TareSamples int     `yaml:"tare_samples" toml:"tare_samples"`
	TareOnStart bool    `yaml:"tare_on_start" toml:"tare_on_start"`
}

// TriggerConfig selects what starts an upload.
type TriggerConfig struct {
	Mode            string  `yaml:"mode" toml:"mode"`                         // button or weight
	WeightThreshold float64 `yaml:"weight_threshold" toml:"weight_threshold"` // Used in weight mode
}

// SheetConfig contains the target spreadsheet and credentials.
type SheetConfig struct {
	SpreadsheetID    string        `yaml:"spreadsheet_id" toml:"spreadsheet_id"`
	Range            string        `yaml:"range" toml:"range"`
	CredentialsFile  string        `yaml:"credentials_file" toml:"credentials_file"`
	Prerefresh       time.Duration `yaml:"prerefresh" toml:"prerefresh"`   // Refresh token this long before expiry
	TokenCheck       time.Duration `yaml:"token_check" toml:"token_check"` // How often readiness is re-evaluated
	ValueInputOption string        `yaml:"value_input_option" toml:"value_input_option"`
	DryRun           bool          `yaml:"dry_run" toml:"dry_run"` // Log payloads instead of appending
}

// ClockConfig contains time synchronization parameters.
type ClockConfig struct {
	Source    string        `yaml:"source" toml:"source"` // ntp or system
	NTPServer string        `yaml:"ntp_server" toml:"ntp_server"`
	Timeout   time.Duration `yaml:"timeout" toml:"timeout"`
	Resync    time.Duration `yaml:"resync" toml:"resync"`
	Timezone  string        `yaml:"timezone" toml:"timezone"`
}

// LoopConfig contains sample-and-upload pacing.
type LoopConfig struct {
	Period            time.Duration `yaml:"period" toml:"period"`
	MinUploadInterval time.Duration `yaml:"min_upload_interval" toml:"min_upload_interval"`
}

// RecordConfig contains the placeholder columns of an uploaded row.
type RecordConfig struct {
	Food            string `yaml:"food" toml:"food"`
	Category        string `yaml:"category" toml:"category"`
	Source          string `yaml:"source" toml:"source"`
	EmissionsMin    int    `yaml:"emissions_min" toml:"emissions_min"`
	EmissionsMax    int    `yaml:"emissions_max" toml:"emissions_max"`
	EmissionsSuffix string `yaml:"emissions_suffix" toml:"emissions_suffix"`
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Offset        float64       `yaml:"offset" toml:"offset"`                 // Raw counts at zero load
	Load          float64       `yaml:"load" toml:"load"`                     // Raw counts added by the simulated item
	NoiseLevel    float64       `yaml:"noise_level" toml:"noise_level"`       // Raw counts of noise
	PressPeriod   time.Duration `yaml:"press_period" toml:"press_period"`     // Time between simulated button presses
	PressDuration time.Duration `yaml:"press_duration" toml:"press_duration"` // How long a press is held
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Type: DeviceSerial,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
			Timeout:  2 * time.Second,
		},
		GPIO: GPIOConfig{
			DataPin:     "GPIO13",
			ClockPin:    "GPIO15",
			ButtonPin:   "GPIO2",
			LEDPin:      "GPIO4",
			ReadTimeout: time.Second,
		},
		Scale: ScaleConfig{
			Factor:      -278.8,
			Offset:      0,
			Samples:     10,
			TareSamples: 20,
			TareOnStart: true,
		},
		Trigger: TriggerConfig{
			Mode:            TriggerButton,
			WeightThreshold: 50,
		},
		Sheet: SheetConfig{
			Range:            "Sheet1!A1",
			Prerefresh:       10 * time.Minute,
			TokenCheck:       30 * time.Second,
			ValueInputOption: "USER_ENTERED",
		},
		Clock: ClockConfig{
			Source:    ClockNTP,
			NTPServer: "pool.ntp.org",
			Timeout:   5 * time.Second,
			Resync:    time.Hour,
			Timezone:  "UTC",
		},
		Loop: LoopConfig{
			Period:            time.Second,
			MinUploadInterval: 30 * time.Second,
		},
		Record: RecordConfig{
			Food:            "Bag of apples",
			Category:        "Fruit, Compostable",
			Source:          "bakery",
			EmissionsMin:    100,
			EmissionsMax:    200,
			EmissionsSuffix: " fake data",
		},
		Mock: MockConfig{
			Offset:        8000,
			Load:          -27880, // ~100 units at the default factor
			NoiseLevel:    50,
			PressPeriod:   45 * time.Second,
			PressDuration: 3 * time.Second,
		},
	}
}

// Load loads configuration from a YAML or TOML file. If the file doesn't exist or
// fields are missing, it uses default values. Credentials and the spreadsheet id
// fall back to the environment when the file leaves them empty.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := decode(filename, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// File doesn't exist, keep defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.ensureDefaults()
	cfg.applyEnv()

	return cfg, nil
}

func decode(filename string, data []byte, cfg *Config) error {
	if isTOML(filename) {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func isTOML(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".toml")
}

// Save saves the configuration to a YAML or TOML file, chosen by extension.
func (c *Config) Save(filename string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(filename) {
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Location resolves Clock.Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Clock.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Clock.Timezone, err)
	}
	return loc, nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Device.Type == "" {
		c.Device.Type = def.Device.Type
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.Timeout == 0 {
		c.Serial.Timeout = def.Serial.Timeout
	}

	if c.GPIO.ReadTimeout == 0 {
		c.GPIO.ReadTimeout = def.GPIO.ReadTimeout
	}

	if c.Scale.Factor == 0 {
		c.Scale.Factor = def.Scale.Factor
	}
	if c.Scale.Samples <= 0 {
		c.Scale.Samples = def.Scale.Samples
	}
	if c.Scale.TareSamples <= 0 {
		c.Scale.TareSamples = def.Scale.TareSamples
	}

	if c.Trigger.Mode == "" {
		c.Trigger.Mode = def.Trigger.Mode
	}

	if c.Sheet.Range == "" {
		c.Sheet.Range = def.Sheet.Range
	}
	if c.Sheet.Prerefresh == 0 {
		c.Sheet.Prerefresh = def.Sheet.Prerefresh
	}
	if c.Sheet.TokenCheck == 0 {
		c.Sheet.TokenCheck = def.Sheet.TokenCheck
	}
	if c.Sheet.ValueInputOption == "" {
		c.Sheet.ValueInputOption = def.Sheet.ValueInputOption
	}

	if c.Clock.Source == "" {
		c.Clock.Source = def.Clock.Source
	}
	if c.Clock.NTPServer == "" {
		c.Clock.NTPServer = def.Clock.NTPServer
	}
	if c.Clock.Timeout == 0 {
		c.Clock.Timeout = def.Clock.Timeout
	}
	if c.Clock.Resync == 0 {
		c.Clock.Resync = def.Clock.Resync
	}
	if c.Clock.Timezone == "" {
		c.Clock.Timezone = def.Clock.Timezone
	}

	if c.Loop.Period == 0 {
		c.Loop.Period = def.Loop.Period
	}
	if c.Loop.MinUploadInterval == 0 {
		c.Loop.MinUploadInterval = def.Loop.MinUploadInterval
	}

	if c.Record.EmissionsMax <= c.Record.EmissionsMin {
		c.Record.EmissionsMin = def.Record.EmissionsMin
		c.Record.EmissionsMax = def.Record.EmissionsMax
	}

	if c.Mock.PressPeriod == 0 {
		c.Mock.PressPeriod = def.Mock.PressPeriod
	}
	if c.Mock.PressDuration == 0 {
		c.Mock.PressDuration = def.Mock.PressDuration
	}
}

// applyEnv fills credentials from the environment when the file leaves them empty.
func (c *Config) applyEnv() {
	if c.Sheet.CredentialsFile == "" {
		c.Sheet.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.Sheet.SpreadsheetID == "" {
		c.Sheet.SpreadsheetID = os.Getenv("LARDER_SPREADSHEET_ID")
	}
}

// GetConfigPath returns the path to the configuration file.
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("LARDER_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.yaml")
	}

	// Finally, try current directory
	return "config.yaml"
}
