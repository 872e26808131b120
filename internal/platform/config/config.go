// internal/platform/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config agrupa toda la configuración de una ejecución. Se construye en
// capas: defaults → variables de entorno CORPUSX_* → flags.
type Config struct {
	// DatasetRoot raíz canónica donde quedan los datasets
	DatasetRoot string

	// ManifestPath manifest YAML; vacío usa el set builtin
	ManifestPath string

	// BuiltinSet nombre del set embebido a usar cuando no hay manifest
	BuiltinSet string

	// Workers descriptors en vuelo; 0 = min(4, n)
	Workers int

	// Force sobreescribe colisiones al relocalizar
	Force bool

	// CheckOnly reporta estado sin ejecutar nada
	CheckOnly bool

	// Quiet desactiva la salida visual (presenter noop)
	Quiet bool

	// LogLevel nivel de log: debug, info, warn, error, silent
	LogLevel string

	// RateLimitMBps límite de ancho de banda en MB/s; 0 = sin límite
	RateLimitMBps float64

	// HTTPTimeout timeout por request HTTP (no por descarga completa)
	HTTPTimeout time.Duration

	// ReportPath si no está vacío, escribe el reporte JSON ahí
	ReportPath string

	// Scheduler estrategia de despacho: fifo o weighted
	Scheduler string
}

// Default devuelve la configuración base.
func Default() *Config {
	return &Config{
		DatasetRoot: "datasets",
		BuiltinSet:  "libritts-r",
		Workers:     0,
		LogLevel:    "info",
		HTTPTimeout: 30 * time.Second,
		Scheduler:   "fifo",
	}
}

// LoadEnv aplica las variables de entorno CORPUSX_* sobre c.
func (c *Config) LoadEnv() {
	if v := os.Getenv("CORPUSX_DATASET_ROOT"); v != "" {
		c.DatasetRoot = v
	}
	if v := os.Getenv("CORPUSX_MANIFEST"); v != "" {
		c.ManifestPath = v
	}
	if v := os.Getenv("CORPUSX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("CORPUSX_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CORPUSX_RATE_LIMIT_MBPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitMBps = f
		}
	}
	if v := os.Getenv("CORPUSX_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTPTimeout = d
		}
	}
}

// Normalize ancla las rutas y acota los valores numéricos.
func (c *Config) Normalize() error {
	abs, err := filepath.Abs(c.DatasetRoot)
	if err != nil {
		return fmt.Errorf("dataset root: %w", err)
	}
	c.DatasetRoot = abs

	if c.ManifestPath != "" {
		abs, err := filepath.Abs(c.ManifestPath)
		if err != nil {
			return fmt.Errorf("manifest path: %w", err)
		}
		c.ManifestPath = abs
	}

	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.RateLimitMBps < 0 {
		c.RateLimitMBps = 0
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	return nil
}

// Validate verifica los valores que no admiten corrección silenciosa.
func (c *Config) Validate() error {
	switch c.Scheduler {
	case "fifo", "weighted":
	default:
		return fmt.Errorf("unknown scheduler %q (want fifo or weighted)", c.Scheduler)
	}

	if c.ManifestPath != "" {
		if _, err := os.Stat(c.ManifestPath); err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
	}
	return nil
}

// RateLimitBytes convierte el límite a bytes/segundo.
func (c *Config) RateLimitBytes() float64 {
	return c.RateLimitMBps * 1024 * 1024
}
