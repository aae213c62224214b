package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/voicetranslator/internal/flagx"
	"github.com/dmitrijs2005/voicetranslator/internal/timex"
)

// FileConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "90s" and integer nanoseconds are accepted.
// Zero values leave the corresponding Config field untouched.
type FileConfig struct {
	HTTPAddr          string         `json:"http_addr" toml:"http_addr"`
	ProcessorAddr     string         `json:"processor_addr" toml:"processor_addr"`
	DatabaseDSN       string         `json:"database_dsn" toml:"database_dsn"`
	SecretKey         string         `json:"secret_key" toml:"secret_key"`
	SessionTTL        timex.Duration `json:"session_ttl" toml:"session_ttl"`
	BlobBackend       string         `json:"blob_backend" toml:"blob_backend"`
	S3RootUser        string         `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket" toml:"s3_bucket"`
	S3Region          string         `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	NATSURL           string         `json:"nats_url" toml:"nats_url"`
	NATSBucket        string         `json:"nats_bucket" toml:"nats_bucket"`
	OpenAIAPIKey      string         `json:"openai_api_key" toml:"openai_api_key"`
	OpenAIBaseURL     string         `json:"openai_base_url" toml:"openai_base_url"`
	WhisperModel      string         `json:"whisper_model" toml:"whisper_model"`
	TTSURL            string         `json:"tts_url" toml:"tts_url"`
	ProcessorURL      string         `json:"processor_url" toml:"processor_url"`
	TranscribeTimeout timex.Duration `json:"transcribe_timeout" toml:"transcribe_timeout"`
	SynthesizeTimeout timex.Duration `json:"synthesize_timeout" toml:"synthesize_timeout"`
	MaxUploadBytes    int64          `json:"max_upload_bytes" toml:"max_upload_bytes"`
	LogFormat         string         `json:"log_format" toml:"log_format"`
	LogLevel          string         `json:"log_level" toml:"log_level"`
}

// parseFile loads the file named by -c/-config, if any, and overlays its
// non-zero values onto cfg. The format is chosen by extension: .toml uses
// TOML, anything else JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), fc); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, fc); err != nil {
			return fmt.Errorf("parse json config %s: %w", path, err)
		}
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.ProcessorAddr, fc.ProcessorAddr)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	setString(&cfg.BlobBackend, fc.BlobBackend)
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.NATSURL, fc.NATSURL)
	setString(&cfg.NATSBucket, fc.NATSBucket)
	setString(&cfg.OpenAIAPIKey, fc.OpenAIAPIKey)
	setString(&cfg.OpenAIBaseURL, fc.OpenAIBaseURL)
	setString(&cfg.WhisperModel, fc.WhisperModel)
	setString(&cfg.TTSURL, fc.TTSURL)
	setString(&cfg.ProcessorURL, fc.ProcessorURL)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.SessionTTL.Duration > 0 {
		cfg.SessionTTL = fc.SessionTTL.Duration
	}
	if fc.TranscribeTimeout.Duration > 0 {
		cfg.TranscribeTimeout = fc.TranscribeTimeout.Duration
	}
	if fc.SynthesizeTimeout.Duration > 0 {
		cfg.SynthesizeTimeout = fc.SynthesizeTimeout.Duration
	}
	if fc.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = fc.MaxUploadBytes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
