package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Rtorrent struct {
		Host              string
		Port              int
		Path              string
		Username          string
		Password          string
		MaxCallsPerSecond float64
	}
	Poll struct {
		IntervalSeconds int
	}
	Auth struct {
		JWTSecret        string
		RegisterPassword string
		TokenTTLMinutes  int
	}
	Archive struct {
		Backend   string
		Directory string
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	// Categories maps a category name offered in the add dialog to the
	// download directory it resolves to.
	Categories map[string]string
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("AMUTORRENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/amutorrent.db")
	v.SetDefault("rtorrent.host", "127.0.0.1")
	v.SetDefault("rtorrent.port", 5000)
	v.SetDefault("rtorrent.path", "/RPC2")
	v.SetDefault("rtorrent.username", "")
	v.SetDefault("rtorrent.password", "")
	v.SetDefault("rtorrent.maxcallspersecond", 0)
	v.SetDefault("poll.intervalseconds", 2)
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.registerpassword", "")
	v.SetDefault("auth.tokenttlminutes", 720)
	v.SetDefault("archive.backend", "directory")
	v.SetDefault("archive.directory", "data/torrents")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.keyprefix", "torrents")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("categories", map[string]string{})

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
