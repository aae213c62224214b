package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/flagx"
)

var shortFlags = []string{
	"-a", "-m", "-d", "-s", "-t", "-b",
	"-u", "-p", "-k", "-g", "-e",
	"-n", "-o", "-v", "-x", "-l", "-f",
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   web tier bind address (e.g. ":8080")
//	-m string   processing service bind address (e.g. ":5001")
//	-d string   PostgreSQL DSN
//	-s string   session HMAC secret key
//	-t int      session validity, minutes
//	-b string   blob backend: s3 | nats
//	-u string   S3 root user
//	-p string   S3 root password
//	-k string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-n string   NATS server URL
//	-o string   OpenAI-compatible base URL
//	-v string   voice-cloning TTS server URL
//	-x string   processing service URL used by the web tier
//	-l string   log level
//	-f string   log format
//
// args are first filtered with flagx.FilterArgs so subcommand flags and
// positional arguments do not collide with these.
func parseFlags(config *Config, args []string) error {
	filtered := flagx.FilterArgs(args, shortFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "web tier address")
	fs.StringVar(&config.ProcessorAddr, "m", config.ProcessorAddr, "processing service address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionMinutes := fs.Int("t", 0, "session validity (in minutes)")

	fs.StringVar(&config.BlobBackend, "b", config.BlobBackend, "blob backend (s3|nats)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "k", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.NATSURL, "n", config.NATSURL, "NATS URL")
	fs.StringVar(&config.OpenAIBaseURL, "o", config.OpenAIBaseURL, "OpenAI-compatible base URL")
	fs.StringVar(&config.TTSURL, "v", config.TTSURL, "voice-cloning TTS URL")
	fs.StringVar(&config.ProcessorURL, "x", config.ProcessorURL, "processing service URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	sessionSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			sessionSet = true
		}
	})
	if !sessionSet {
		return nil
	}

	if *sessionMinutes <= 0 {
		return fmt.Errorf("session validity must be positive, got %d minutes", *sessionMinutes)
	}
	config.SessionTTL = time.Duration(*sessionMinutes) * time.Minute
	return nil
}
