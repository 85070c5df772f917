// v2
// config.go
package internal

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPBind       string
	KafkaBrokers   []string
	ExportTopic    string
	SnapshotTopic  string
	ConsumerGroup  string
	PollIntervalMs int
	PropertiesPath string
	DatabaseURL    string

	// From properties.
	Hives         int // expected hive count, 0 = derive from data
	WindowMinutes int // raw buffer retention, 0 = unbounded
	ExtraAliases  map[Metric][]string
}

// LoadEnvAndFiles reads environment variables, then overlays the properties
// file. A missing properties file is not an error; every key has a default.
func LoadEnvAndFiles() (*AppConfig, error) {
	c := &AppConfig{
		HTTPBind:       getenv("HTTP_BIND", ":8080"),
		KafkaBrokers:   split(getenv("KAFKA_BROKERS", ""), ","),
		ExportTopic:    getenv("EXPORT_TOPIC", "hive.telemetry.export"),
		SnapshotTopic:  getenv("SNAPSHOT_TOPIC", "hive.telemetry.snapshot"),
		ConsumerGroup:  getenv("CONSUMER_GROUP", "telemetryd"),
		PollIntervalMs: geti("POLL_INTERVAL_MS", 1000),
		PropertiesPath: getenv("PROPERTIES_PATH", "./configs/telemetry.properties"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		WindowMinutes:  geti("WINDOW_MINUTES", 43200), // 30 days
	}
	if err := c.loadProperties(c.PropertiesPath); err != nil {
		return nil, err
	}
	return c, nil
}

// KafkaEnabled reports whether the export stream consumer should run.
func (c *AppConfig) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Window returns the raw buffer retention as a duration; 0 means unbounded.
func (c *AppConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

func (c *AppConfig) ReloadProperties() error { return c.loadProperties(c.PropertiesPath) }

func (c *AppConfig) loadProperties(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	extra := map[Metric][]string{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch {
		case k == "hives":
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.Hives = n
			}
		case k == "window.minutes":
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.WindowMinutes = n
			}
		case strings.HasPrefix(k, "alias."):
			m := Metric(strings.TrimPrefix(k, "alias."))
			if _, known := domainRules[m]; !known {
				return fmt.Errorf("properties: unknown metric in %q", k)
			}
			extra[m] = append(extra[m], split(v, ",")...)
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	c.ExtraAliases = extra
	return nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func geti(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func split(s, sep string) []string {
	if s == "" {
		return nil
	}
	p := strings.Split(s, sep)
	out := make([]string, 0, len(p))
	for _, x := range p {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}
