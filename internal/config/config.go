package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Ledger backend selection: gas | sheets | memory
	LedgerBackend string

	// Apps Script web app endpoint (gas backend)
	ScriptURL string

	// Google Sheets API (sheets backend)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Sheet geometry; the store reserves header rows before data starts.
	FirstDataRow    int
	DateHeaderLabel string
	ItemHeaderLabel string

	// Local snapshot + persisted UI state
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Snapshot worker
	RefreshInterval time.Duration

	// Weather lookup
	WeatherLatitude  float64
	WeatherLongitude float64
	WeatherTimezone  string
}

func Load() *Config {
	layout := core.DefaultSheetLayout()
	return &Config{
		Port: getEnv("PORT", "8081"),

		LedgerBackend: getEnv("LEDGER_BACKEND", "gas"),
		ScriptURL:     getEnv("SCRIPT_URL", ""),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "記帳"),

		FirstDataRow:    getEnvInt("SHEET_FIRST_DATA_ROW", int(layout.FirstDataRow)),
		DateHeaderLabel: getEnv("SHEET_DATE_HEADER", layout.DateHeaderLabel),
		ItemHeaderLabel: getEnv("SHEET_ITEM_HEADER", layout.ItemHeaderLabel),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fujitrip.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fujitrip"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),

		// Tokyo by default; the trip sits between Fuji and Hakone anyway.
		WeatherLatitude:  getEnvFloat("WEATHER_LATITUDE", 35.6895),
		WeatherLongitude: getEnvFloat("WEATHER_LONGITUDE", 139.6917),
		WeatherTimezone:  getEnv("WEATHER_TIMEZONE", "Asia/Tokyo"),
	}
}

// SheetLayout returns the configured sheet geometry for the filter layer.
func (c *Config) SheetLayout() core.SheetLayout {
	return core.SheetLayout{
		FirstDataRow:    int64(c.FirstDataRow),
		DateHeaderLabel: c.DateHeaderLabel,
		ItemHeaderLabel: c.ItemHeaderLabel,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"gas", "sheets", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.LedgerBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	if c.LedgerBackend == "gas" {
		if c.ScriptURL == "" {
			errs = append(errs, "SCRIPT_URL is required when using the gas backend")
		} else if u, err := url.Parse(c.ScriptURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid script URL '%s': must be http(s)", c.ScriptURL))
		}
	}

	if c.LedgerBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required when using the sheets backend")
	}

	if c.FirstDataRow < 1 {
		errs = append(errs, fmt.Sprintf("invalid first data row %d: must be at least 1", c.FirstDataRow))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if c.WeatherLatitude < -90 || c.WeatherLatitude > 90 {
		errs = append(errs, fmt.Sprintf("invalid latitude %v", c.WeatherLatitude))
	}
	if c.WeatherLongitude < -180 || c.WeatherLongitude > 180 {
		errs = append(errs, fmt.Sprintf("invalid longitude %v", c.WeatherLongitude))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
