package config

import "github.com/spf13/pflag"

var (
	flagConfig      = pflag.StringP("config", "c", "", "Path to config file (.yaml or .toml)")
	flagDebug       = pflag.Bool("debug", false, "Enable debug logging")
	flagHost        = pflag.String("host", "", "Listen host")
	flagPort        = pflag.IntP("port", "p", 0, "Listen port")
	flagContentRoot = pflag.String("content-root", "", "Directory assets are written to")
	flagBrowserAddr = pflag.String("browser-addr", "", "Content-browser feed address (\"off\" disables)")
	flagLogFile     = pflag.String("log-file", "", "Write JSON logs to this file")
	flagWriteConfig = pflag.Bool("write-config", false, "Save the effective config to the user config directory and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	pflag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfig reports whether --write-config was given.
func WriteConfig() bool {
	return *flagWriteConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagHost != "" {
		cfg.Server.Host = *flagHost
	}
	if *flagPort > 0 {
		cfg.Server.Port = *flagPort
	}
	if *flagContentRoot != "" {
		cfg.Assets.ContentRoot = *flagContentRoot
	}
	switch *flagBrowserAddr {
	case "":
	case "off":
		cfg.Browser.Addr = ""
	default:
		cfg.Browser.Addr = *flagBrowserAddr
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
