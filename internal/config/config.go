package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Storage   StorageConfig   `json:"storage"`
	Gotenberg GotenbergConfig `json:"gotenberg"`
	Template  TemplateConfig  `json:"template"`
	Images    ImageConfig     `json:"images"`
	Cleanup   CleanupConfig   `json:"cleanup"`
}

type ServerConfig struct {
	Port         string   `json:"port"`
	Environment  string   `json:"environment"`
	BaseURL      string   `json:"base_url"`
	AllowOrigins []string `json:"allow_origins"`
	// MaxUploadBytes caps the multipart form of a generation request.
	MaxUploadBytes int64 `json:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"` // mysql, postgres or sqlite
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
}

type StorageConfig struct {
	Backend  string    `json:"backend"` // gcs or local
	LocalDir string    `json:"local_dir"`
	GCS      GCSConfig `json:"gcs"`
}

type GCSConfig struct {
	BucketName      string `json:"bucket_name"`
	ProjectID       string `json:"project_id"`
	CredentialsPath string `json:"credentials_path"`
}

type GotenbergConfig struct {
	URL        string `json:"url"`
	Timeout    string `json:"timeout"`
	MaxRetries int    `json:"max_retries"`
}

type TemplateConfig struct {
	// ProfilePath points at a YAML template profile; empty uses the built-in one.
	ProfilePath string `json:"profile_path"`
	// Path overrides the DOCX path named by the profile.
	Path string `json:"path"`
}

type ImageConfig struct {
	Enabled     bool `json:"enabled"`
	MaxWidth    int  `json:"max_width"`
	JPEGQuality int  `json:"jpeg_quality"`
}

type CleanupConfig struct {
	Schedule    string        `json:"schedule"`
	DraftMaxAge time.Duration `json:"draft_max_age"`
}

func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Kolkata",
			d.Host, d.Port, d.User, d.Password, d.DBName)
	case "sqlite":
		return d.DBName
	}
	// Cloud SQL Unix socket support
	if len(d.Host) > 0 && d.Host[0] == '/' {
		return fmt.Sprintf("%s:%s@unix(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, d.DBName)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Failed to load .env file: %v, using system environment variables\n", err)
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			BaseURL:        getEnv("BASE_URL", ""),
			AllowOrigins:   parseAllowOrigins(),
			MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 32<<20),
		},
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", defaultDBPort(driver)),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "kec_quote"),
		},
		Storage: StorageConfig{
			Backend:  strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			LocalDir: getEnv("STORAGE_LOCAL_DIR", "storage"),
			GCS: GCSConfig{
				BucketName:      getEnv("GCS_BUCKET_NAME", ""),
				ProjectID:       getEnv("GOOGLE_CLOUD_PROJECT", ""),
				CredentialsPath: getEnv("GCS_CREDENTIALS_PATH", ""),
			},
		},
		Gotenberg: GotenbergConfig{
			URL:        getEnv("GOTENBERG_URL", "http://localhost:3000"),
			Timeout:    getEnv("GOTENBERG_TIMEOUT", "30s"),
			MaxRetries: getEnvInt("GOTENBERG_MAX_RETRIES", 3),
		},
		Template: TemplateConfig{
			ProfilePath: getEnv("TEMPLATE_PROFILE", ""),
			Path:        getEnv("TEMPLATE_PATH", ""),
		},
		Images: ImageConfig{
			Enabled:     getEnvBool("IMAGES_ENABLED", true),
			MaxWidth:    getEnvInt("IMAGE_MAX_WIDTH", 800),
			JPEGQuality: getEnvInt("IMAGE_JPEG_QUALITY", 85),
		},
		Cleanup: CleanupConfig{
			Schedule:    getEnv("CLEANUP_SCHEDULE", "@every 1h"),
			DraftMaxAge: getEnvDuration("DRAFT_MAX_AGE", 30*24*time.Hour),
		},
	}

	if config.Storage.Backend == "gcs" && config.Storage.GCS.BucketName == "" {
		return nil, fmt.Errorf("GCS_BUCKET_NAME is required when STORAGE_BACKEND=gcs")
	}
	switch driver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return config, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func defaultDBPort(driver string) string {
	if driver == "postgres" {
		return "5432"
	}
	return "3306"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func parseAllowOrigins() []string {
	if origins := os.Getenv("ALLOW_ORIGINS"); origins != "" {
		var allowOrigins []string
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowOrigins = append(allowOrigins, trimmed)
			}
		}
		return allowOrigins
	}

	// Fallback to individual FRONTEND_URL_* variables for backward compatibility
	var allowOrigins []string
	if url1 := getEnv("FRONTEND_URL_1", ""); url1 != "" {
		allowOrigins = append(allowOrigins, url1)
	}
	if url2 := getEnv("FRONTEND_URL_2", ""); url2 != "" {
		allowOrigins = append(allowOrigins, url2)
	}

	if len(allowOrigins) == 0 {
		allowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}

	return allowOrigins
}
