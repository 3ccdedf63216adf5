// Package config assembles the resolved benchmark configuration from
// command-line flags, environment variables, and an optional config
// file, using pflag for flag definitions and viper to merge the three
// sources with the conventional precedence (flags > env > file >
// defaults).
package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/taihen/resolvrank/internal/discover"
)

// Config is the fully resolved benchmark configuration.
type Config struct {
	ServersFile      string
	WarmDomainsFile  string
	ColdDomainsFile  string
	TLDDomainsFile   string
	IncludeSystemDNS bool

	Rounds        int
	TimeoutMS     int
	Concurrency   int
	SpacingMS     int
	AAAA          bool
	DNSSEC        bool
	Seed          uint64
	MaxResolverMS float64
	TopN          int
	Discover      discover.Mode

	OutputFile   string
	OutputFormat string
	Verbose      bool
	ShowVersion  bool
}

func (c Config) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }
func (c Config) Spacing() time.Duration { return time.Duration(c.SpacingMS) * time.Millisecond }

// discoverModeFromString parses the --discover flag value.
func discoverModeFromString(s string) (discover.Mode, error) {
	switch s {
	case "auto", "":
		return discover.Auto, nil
	case "on":
		return discover.On, nil
	case "off":
		return discover.Off, nil
	default:
		return discover.Auto, fmt.Errorf("config: invalid --discover value %q (want auto|on|off)", s)
	}
}

// Load parses args (typically os.Args[1:]) plus environment variables
// prefixed RESOLVRANK_ and an optional --config file, and returns the
// resolved Config.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("resolvrank", pflag.ContinueOnError)

	configFile := fs.String("config", "", "Path to a YAML config file")
	fs.String("servers", "", "Path to file with resolver endpoints (one per line: IP, IP:port, [IPv6]:port, optional trailing '# label')")
	fs.String("warm-domains", "", "Path to file with warm (cached) test domains, one per line")
	fs.String("cold-domains", "", "Path to file with cold (uncached) test domains, one per line")
	fs.String("tld-domains", "", "Path to file with one domain per TLD (optional)")
	fs.Bool("system", true, "Include system resolvers from /etc/resolv.conf")

	fs.Int("rounds", 5, "Number of rounds per (resolver, set, domain, qtype)")
	fs.Int("timeout-ms", 2000, "Per-query timeout in milliseconds")
	fs.Int("concurrency", 64, "Global concurrent in-flight query permit count")
	fs.Int("spacing-ms", 5, "Minimum milliseconds between task launches")
	fs.Bool("aaaa", false, "Also query AAAA records")
	fs.Bool("dnssec", false, "Set the EDNS0 DO bit (timing only, no validation)")
	fs.Uint64("seed", 0, "RNG seed for task-order shuffling (0 = derive a random seed)")
	fs.Float64("max-resolver-ms", 1000, "Drop resolvers whose warm p50 exceeds this, post-benchmark")
	fs.Int("top-n", discover.DefaultTopN, "Max resolvers retained by discovery's phase 2")
	fs.String("discover", "auto", "Discovery prefilter mode: auto|on|off")

	fs.String("o", "", "Optional output file path (written in the --format format; default stdout)")
	fs.String("format", "table", "Output format: table|csv")
	fs.Bool("v", false, "Enable verbose diagnostics")
	fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}
	v.SetEnvPrefix("RESOLVRANK")
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read config file %s: %w", *configFile, err)
		}
	}

	mode, err := discoverModeFromString(v.GetString("discover"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServersFile:      v.GetString("servers"),
		WarmDomainsFile:  v.GetString("warm-domains"),
		ColdDomainsFile:  v.GetString("cold-domains"),
		TLDDomainsFile:   v.GetString("tld-domains"),
		IncludeSystemDNS: v.GetBool("system"),
		Rounds:           v.GetInt("rounds"),
		TimeoutMS:        v.GetInt("timeout-ms"),
		Concurrency:      v.GetInt("concurrency"),
		SpacingMS:        v.GetInt("spacing-ms"),
		AAAA:             v.GetBool("aaaa"),
		DNSSEC:           v.GetBool("dnssec"),
		Seed:             v.GetUint64("seed"),
		MaxResolverMS:    v.GetFloat64("max-resolver-ms"),
		TopN:             v.GetInt("top-n"),
		Discover:         mode,
		OutputFile:       v.GetString("o"),
		OutputFormat:     v.GetString("format"),
		Verbose:          v.GetBool("v"),
		ShowVersion:      v.GetBool("version"),
	}

	if cfg.Rounds < 1 && !cfg.ShowVersion {
		return nil, fmt.Errorf("config: rounds must be >= 1, got %d", cfg.Rounds)
	}

	if cfg.Seed == 0 {
		cfg.Seed = randomSeed()
	}

	return cfg, nil
}

// randomSeed derives a non-zero seed from the OS CSPRNG when the user
// does not pin one explicitly, so each unseeded run still shuffles
// its task order deterministically once started.
func randomSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	seed := binary.LittleEndian.Uint64(buf[:])
	if seed == 0 {
		seed = 1
	}
	return seed
}
