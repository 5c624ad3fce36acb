package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every setting the daapd binary needs: the HTTP listen
// address, the scanned music directory, the sqlite catalog path, the
// transcoder invocation, and the identity the server advertises over mDNS.
type Config struct {
	Port        string
	MusicDir    string
	CatalogPath string
	LibraryName string

	SampleRate int
	Channels   int
	FFmpegPath string

	MDNSInterface string
	AdvertiseHost string
}

// Load reads .env (if present, via godotenv — silently ignored if absent,
// matching the original teacher's posture of treating it as an optional
// developer convenience) and then the process environment, falling back to
// defaults for anything unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	return &Config{
		Port:          getEnv("PORT", "3689"),
		MusicDir:      getEnv("MUSIC_DIR", "./music"),
		CatalogPath:   getEnv("CATALOG_PATH", "./data/catalog.db"),
		LibraryName:   getEnv("LIBRARY_NAME", "soundvault"),
		SampleRate:    getEnvAsInt("SAMPLE_RATE", 44100),
		Channels:      getEnvAsInt("CHANNELS", 2),
		FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
		MDNSInterface: getEnv("MDNS_INTERFACE", ""),
		AdvertiseHost: getEnv("ADVERTISE_HOST", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}
