package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Deploy modes.
const (
	DeployLocal  = "local"
	DeployHosted = "hosted"
)

type Config struct {
	AppEnv            string           `env:"APP_ENV" envDefault:"local"`
	BotToken          string           `env:"BOT_TOKEN,required"`
	TGAPIID           int              `env:"TG_API_ID,required"`
	TGAPIHash         string           `env:"TG_API_HASH,required"`
	SessionString     string           `env:"SESSION_STRING"`
	TGPhone           string           `env:"TG_PHONE"`
	TG2FAPassword     string           `env:"TG_2FA_PASSWORD"`
	TGSessionPath     string           `env:"TG_SESSION_PATH" envDefault:"./relay.session"`
	DeployMode        string           `env:"DEPLOY_MODE" envDefault:"local"`
	FallbackToBotOnly bool             `env:"FALLBACK_TO_BOT_ONLY" envDefault:"true"`
	ForwardDelay      Seconds          `env:"FORWARD_DELAY" envDefault:"30s"`
	RateLimitWait     Seconds          `env:"RATE_LIMIT_WAIT" envDefault:"10s"`
	DebugMode         bool             `env:"DEBUG_MODE" envDefault:"false"`
	PublicAccess      bool             `env:"PUBLIC_ACCESS" envDefault:"true"`
	AuthorizedUsers   []int64          `env:"AUTHORIZED_USERS" envSeparator:","`
	Security          SecuritySettings `env:"SECURITY_SETTINGS" envDefault:"{}"`
	OneShot           bool             `env:"ONE_SHOT" envDefault:"true"`
	HealthPort        int              `env:"HEALTH_PORT" envDefault:"8080"`

	// Destination discovery
	AutoGetGroups  bool    `env:"AUTO_GET_GROUPS" envDefault:"true"`
	ManualGroupIDs []int64 `env:"MANUAL_GROUP_IDS" envSeparator:","`
	RelayProbeRPS  float64 `env:"RELAY_PROBE_RPS" envDefault:"2"`

	// RefreshInterval re-runs discovery in long-running mode; 0 disables it.
	RefreshInterval Seconds `env:"DESTINATIONS_REFRESH_INTERVAL" envDefault:"0"`

	// Destination filter
	FilterAdminOnly       bool     `env:"FILTER_ADMIN_ONLY" envDefault:"false"`
	FilterExcludeKeywords []string `env:"FILTER_EXCLUDE_KEYWORDS" envSeparator:","`
	FilterIncludeKeywords []string `env:"FILTER_INCLUDE_KEYWORDS" envSeparator:","`
	FilterMinMembers      int      `env:"FILTER_MIN_MEMBERS" envDefault:"1"`
	FilterMaxMembers      int      `env:"FILTER_MAX_MEMBERS" envDefault:"0"`
	FilterExcludeChannels bool     `env:"FILTER_EXCLUDE_CHANNELS" envDefault:"false"`
	FilterExcludeIDs      []int64  `env:"FILTER_EXCLUDE_IDS" envSeparator:","`
}

// SecuritySettings is the JSON bundle carried in SECURITY_SETTINGS.
type SecuritySettings struct {
	MaxMessagesPerHour  int     `json:"max_messages_per_hour"`
	BlockedUsers        []int64 `json:"blocked_users"`
	LogAllMessages      bool    `json:"log_all_messages"`
	NotifyOwner         bool    `json:"notify_owner"`
	AutoDetectBotGroups bool    `json:"auto_detect_bot_groups"`
}

func defaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		LogAllMessages: true,
		NotifyOwner:    true,
	}
}

// UnmarshalText decodes the JSON bundle over the defaults, so omitted keys keep them.
func (s *SecuritySettings) UnmarshalText(text []byte) error {
	// plain drops UnmarshalText so encoding/json decodes the object itself.
	type plain SecuritySettings

	out := plain(defaultSecuritySettings())

	if len(strings.TrimSpace(string(text))) > 0 {
		if err := json.Unmarshal(text, &out); err != nil {
			return fmt.Errorf("decoding security settings: %w", err)
		}
	}

	*s = SecuritySettings(out)

	return nil
}

// Seconds is a duration that also accepts a bare number of seconds ("30", "2.5").
type Seconds time.Duration

func (s *Seconds) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*s = Seconds(time.Duration(f * float64(time.Second)))

		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}

	*s = Seconds(d)

	return nil
}

func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

// legacyAliases maps older variable names to the current ones. The current
// name wins when both are set.
var legacyAliases = map[string]string{
	"API_ID":       "TG_API_ID",
	"API_HASH":     "TG_API_HASH",
	"PHONE_NUMBER": "TG_PHONE",
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment()}); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if cfg.DeployMode != DeployLocal && cfg.DeployMode != DeployHosted {
		return nil, fmt.Errorf("invalid DEPLOY_MODE %q", cfg.DeployMode)
	}

	cfg.FilterExcludeKeywords = trimEmpty(cfg.FilterExcludeKeywords)
	cfg.FilterIncludeKeywords = trimEmpty(cfg.FilterIncludeKeywords)

	return cfg, nil
}

func environment() map[string]string {
	vars := env.ToMap(os.Environ())

	for legacy, current := range legacyAliases {
		if _, ok := vars[current]; ok {
			continue
		}

		if val, ok := vars[legacy]; ok && strings.TrimSpace(val) != "" {
			vars[current] = strings.TrimSpace(val)
		}
	}

	return vars
}

func trimEmpty(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}
