package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"photo-recovery/internal/logging"
	"photo-recovery/internal/repair"
	"photo-recovery/internal/workers"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

const (
	defaultMaxUploadSize    int64 = 512 << 20
	defaultMaxEntrySize     int64 = 100 << 20
	defaultCacheSize              = 256
	defaultCacheTTL               = 10 * time.Minute
	defaultThumbnailSize          = 200
	defaultThumbnailQuality       = 80
)

// Config holds all application configuration
type Config struct {
	DataDir         string
	DatabaseDir     string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool
	PersistSessions bool

	MaxUploadSize         int64
	MaxEntrySize          int64
	MaxConcurrentSessions int
	Repair                repair.Config

	ThumbnailSize      int
	ThumbnailQuality   int
	ThumbnailCacheSize int
	ThumbnailCacheTTL  time.Duration

	// Derived paths
	ExtractDir   string
	ThumbnailDir string
	DatabasePath string
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory (or ENV_FILE) is applied first;
// variables already set in the environment win.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()
	loadDotEnv(getEnv("ENV_FILE", ".env"))

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	defaults := repair.DefaultConfig()
	config := &Config{
		DataDir:               getEnv("DATA_DIR", "/data"),
		DatabaseDir:           getEnv("DATABASE_DIR", "/database"),
		Port:                  getEnv("PORT", "8080"),
		MetricsPort:           getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks:       getEnvBool("LOG_HEALTH_CHECKS", true),
		PersistSessions:       getEnvBool("PERSIST_SESSIONS", true),
		MaxUploadSize:         getEnvInt64("MAX_UPLOAD_SIZE", defaultMaxUploadSize),
		MaxEntrySize:          getEnvInt64("MAX_ENTRY_SIZE", defaultMaxEntrySize),
		MaxConcurrentSessions: getEnvInt("MAX_CONCURRENT_SESSIONS", workers.ForMixed(4)),
		Repair: repair.Config{
			ScanLimit: getEnvInt("OFFSET_SCAN_LIMIT", defaults.ScanLimit),
			ScanStep:  getEnvInt("OFFSET_SCAN_STEP", defaults.ScanStep),
			MinSize:   getEnvInt("OFFSET_SCAN_MIN_SIZE", defaults.MinSize),
		},
		ThumbnailSize:      getEnvInt("THUMBNAIL_SIZE", defaultThumbnailSize),
		ThumbnailQuality:   getEnvInt("THUMBNAIL_QUALITY", defaultThumbnailQuality),
		ThumbnailCacheSize: getEnvInt("THUMBNAIL_CACHE_SIZE", defaultCacheSize),
		ThumbnailCacheTTL:  getEnvDuration("THUMBNAIL_CACHE_TTL", defaultCacheTTL),
	}

	if config.ThumbnailQuality < 1 || config.ThumbnailQuality > 100 {
		logging.Warn("  THUMBNAIL_QUALITY must be 1-100, using default: %d", defaultThumbnailQuality)
		config.ThumbnailQuality = defaultThumbnailQuality
	}

	logging.Info("  DATA_DIR:                %s", config.DataDir)
	logging.Info("  DATABASE_DIR:            %s", config.DatabaseDir)
	logging.Info("  PORT:                    %s", config.Port)
	logging.Info("  METRICS_PORT:            %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:         %v", config.MetricsEnabled)
	logging.Info("  MAX_UPLOAD_SIZE:         %d", config.MaxUploadSize)
	logging.Info("  MAX_ENTRY_SIZE:          %d", config.MaxEntrySize)
	logging.Info("  MAX_CONCURRENT_SESSIONS: %d", config.MaxConcurrentSessions)
	logging.Info("  OFFSET_SCAN:             limit=%d step=%d min=%d",
		config.Repair.ScanLimit, config.Repair.ScanStep, config.Repair.MinSize)
	logging.Info("  THUMBNAIL_SIZE:          %d (quality %d)", config.ThumbnailSize, config.ThumbnailQuality)
	logging.Info("  THUMBNAIL_CACHE:         %d entries, ttl %v", config.ThumbnailCacheSize, config.ThumbnailCacheTTL)
	logging.Info("  PERSIST_SESSIONS:        %v", config.PersistSessions)
	logging.Info("  LOG_HEALTH_CHECKS:       %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:               %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	config.DataDir, err = filepath.Abs(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute): %s", config.DataDir)

	config.DatabaseDir, err = filepath.Abs(config.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", config.DatabaseDir)

	config.ExtractDir = filepath.Join(config.DataDir, "extracted")
	config.ThumbnailDir = filepath.Join(config.DataDir, "thumbnails")
	config.DatabasePath = filepath.Join(config.DatabaseDir, "recovery.db")

	for _, dir := range []struct{ path, name string }{
		{config.ExtractDir, "extracted"},
		{config.ThumbnailDir, "thumbnails"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", dir.name)
	}

	if config.PersistSessions {
		if err := ensureDirectory(config.DatabaseDir, "database"); err != nil {
			logging.Warn("  Database directory issue: %v", err)
			config.PersistSessions = false
		} else if err := testWriteAccess(config.DatabaseDir); err != nil {
			logging.Warn("  Database directory is not writable: %v", err)
			config.PersistSessions = false
		}
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Persistence: %s", enabledString(config.PersistSessions))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debug("  No env file at %s", path)
			return
		}
		logging.Warn("  Failed to load env file %s: %v", path, err)
		return
	}
	logging.Info("  Loaded environment from %s", path)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration, restored int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
	logging.Info("  [OK] Restored %d recovery sessions", restored)
}

// LogImagingInit logs which image backends are active.
func LogImagingInit(vipsAvailable bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("IMAGING INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Decoders: jpeg, png, gif, bmp, tiff, webp")
	if vipsAvailable {
		logging.Info("  [OK] libvips available (HEIC probing, fast thumbnails)")
	} else {
		logging.Info("  libvips unavailable, using pure Go decoders only")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api/recovery", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func printBanner() {
	banner := `
------------------------------------------------------------
   ___ _         _          ___
  | _ \ |_  ___ | |_ ___   | _ \___ __ _____ _____ _ _ _  _
  |  _/ ' \/ _ \|  _/ _ \  |   / -_) _/ _ \ V / -_) '_| || |
  |_| |_||_\___/ \__\___/  |_|_\___\__\___/\_/\___|_|  \_, |
                                                       |__/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid positive integer for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid positive integer for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
