package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"smart_heating/internal/models"

	"github.com/spf13/viper"
)

// Tunable defaults, matching the documented behavior of the engine.
const (
	DefaultUpdateIntervalSec = 300
	DefaultSafetyFactor      = 1.3
	DefaultMinPreheatMin     = 30
	DefaultDerivativeWindow  = 30 // minutes
)

// defaultTemperatures seeds a room's temperature map from its type when the
// config omits one. Comfort / eco / frost-guard °C per room type.
var defaultTemperatures = map[string][3]float64{
	"salon":          {20, 17, 7},
	"chambre":        {18, 16, 7},
	"chambre_enfant": {19, 17, 7},
	"bureau":         {19, 17, 7},
	"salle_de_bain":  {22, 17, 7},
	"autre":          {19, 17, 7},
}

// HassConfig locates the host runtime's REST API.
type HassConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MQTTConfig configures the optional snapshot telemetry publisher.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
}

// RoomConfig is the raw per-room section before normalization.
type RoomConfig struct {
	ID           string             `mapstructure:"id"`
	Name         string             `mapstructure:"name"`
	Type         string             `mapstructure:"type"`
	Device       string             `mapstructure:"device"` // legacy single-device form
	Devices      []string           `mapstructure:"devices"`
	Sensor       string             `mapstructure:"sensor"`
	Temperatures map[string]float64 `mapstructure:"temperatures"`
}

// HeatingConfig holds the decision-engine settings.
type HeatingConfig struct {
	Calendar          string       `mapstructure:"calendar"`
	PresenceTrackers  []string     `mapstructure:"presence_trackers"`
	OutdoorSensor     string       `mapstructure:"outdoor_sensor"`
	UpdateIntervalSec int          `mapstructure:"update_interval"`
	SafetyFactor      float64      `mapstructure:"safety_factor"`
	MinPreheatMin     int          `mapstructure:"min_preheat_time"`
	DerivativeWindow  int          `mapstructure:"derivative_window"`
	Rooms             []RoomConfig `mapstructure:"rooms"`
}

// Config is the full application configuration, loaded once at startup.
type Config struct {
	Port       string        `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	DBPath     string        `mapstructure:"db_path"`
	SigningKey string        `mapstructure:"signing_key"`
	Hass       HassConfig    `mapstructure:"hass"`
	MQTT       MQTTConfig    `mapstructure:"mqtt"`
	Heating    HeatingConfig `mapstructure:"heating"`
}

// UpdateInterval returns the polling interval as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Heating.UpdateIntervalSec) * time.Second
}

// Load reads configs/config.yml, applies defaults and validates the result.
func Load() (*Config, error) {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DBPath == "" {
		c.DBPath = "app.db"
	}
	if c.Hass.Timeout <= 0 {
		c.Hass.Timeout = 10 * time.Second
	}
	h := &c.Heating
	if h.UpdateIntervalSec <= 0 {
		h.UpdateIntervalSec = DefaultUpdateIntervalSec
	}
	if h.SafetyFactor == 0 {
		h.SafetyFactor = DefaultSafetyFactor
	}
	if h.MinPreheatMin <= 0 {
		h.MinPreheatMin = DefaultMinPreheatMin
	}
	if h.DerivativeWindow <= 0 {
		h.DerivativeWindow = DefaultDerivativeWindow
	}
}

// Validate checks the configuration once so downstream code never has to.
func (c *Config) Validate() error {
	if c.Hass.BaseURL == "" {
		return errors.New("hass.base_url is required")
	}
	if c.Heating.Calendar == "" {
		return errors.New("heating.calendar is required")
	}
	if len(c.Heating.Rooms) == 0 {
		return errors.New("heating.rooms must list at least one room")
	}
	if f := c.Heating.SafetyFactor; f < 1.0 || f > 2.0 {
		return fmt.Errorf("heating.safety_factor %.2f out of range [1.0, 2.0]", f)
	}
	seen := make(map[string]bool, len(c.Heating.Rooms))
	for i, rc := range c.Heating.Rooms {
		if rc.ID == "" {
			return fmt.Errorf("heating.rooms[%d]: id is required", i)
		}
		if seen[rc.ID] {
			return fmt.Errorf("heating.rooms[%d]: duplicate id %q", i, rc.ID)
		}
		seen[rc.ID] = true
		if rc.Device == "" && len(rc.Devices) == 0 {
			return fmt.Errorf("heating.rooms[%d] (%s): at least one heating device is required", i, rc.ID)
		}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt.enabled")
	}
	return nil
}

// Rooms normalizes the room sections into domain rooms: the legacy single
// `device` field is folded into the `devices` list, missing names default to
// the id, and missing temperature maps are seeded by room type.
func (c *Config) Rooms() []models.Room {
	rooms := make([]models.Room, 0, len(c.Heating.Rooms))
	for _, rc := range c.Heating.Rooms {
		devices := append([]string(nil), rc.Devices...)
		if rc.Device != "" {
			devices = append([]string{rc.Device}, devices...)
		}
		name := rc.Name
		if name == "" {
			name = rc.ID
		}
		roomType := strings.ToLower(strings.TrimSpace(rc.Type))
		if roomType == "" {
			roomType = "autre"
		}
		rooms = append(rooms, models.Room{
			ID:           rc.ID,
			Name:         name,
			Type:         roomType,
			Devices:      devices,
			Sensor:       rc.Sensor,
			Temperatures: temperaturesFor(roomType, rc.Temperatures),
		})
	}
	return rooms
}

func temperaturesFor(roomType string, explicit map[string]float64) map[string]float64 {
	seed, ok := defaultTemperatures[roomType]
	if !ok {
		seed = defaultTemperatures["autre"]
	}
	// "off" still commands the frost-guard setpoint so plumbing stays safe.
	temps := map[string]float64{
		models.ModeComfort:    seed[0],
		models.ModeEco:        seed[1],
		models.ModeFrostGuard: seed[2],
		models.ModeOff:        seed[2],
	}
	for mode, v := range explicit {
		temps[mode] = v
	}
	return temps
}
