package config

import (
	"slices"
	"time"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
)

// TelegramBotConfig holds Telegram bot settings.
type TelegramBotConfig struct {
	Token string
}

// TelegramMTProtoConfig holds relay session settings.
type TelegramMTProtoConfig struct {
	APIID         int
	APIHash       string
	SessionString string
	Phone         string
	Password2FA   string
	SessionPath   string
	// Hosted forbids the interactive local session.
	Hosted bool
}

// AccessConfig holds who may use the bot and how often.
type AccessConfig struct {
	Public             bool
	AuthorizedUsers    []int64
	BlockedUsers       []int64
	MaxMessagesPerHour int
	LogAllMessages     bool
	NotifyOwner        bool
}

// DiscoveryConfig holds destination discovery settings.
type DiscoveryConfig struct {
	Auto       bool
	ManualIDs  []int64
	AutoDetect bool
	ProbeRPS   float64

	// RefreshInterval of 0 disables periodic refresh.
	RefreshInterval time.Duration
}

// DeliveryConfig holds delivery pacing.
type DeliveryConfig struct {
	ForwardDelay  time.Duration
	RateLimitWait time.Duration
}

func (c *Config) TelegramBotCfg() TelegramBotConfig {
	return TelegramBotConfig{Token: c.BotToken}
}

func (c *Config) TelegramMTProtoCfg() TelegramMTProtoConfig {
	return TelegramMTProtoConfig{
		APIID:         c.TGAPIID,
		APIHash:       c.TGAPIHash,
		SessionString: c.SessionString,
		Phone:         c.TGPhone,
		Password2FA:   c.TG2FAPassword,
		SessionPath:   c.TGSessionPath,
		Hosted:        c.DeployMode == DeployHosted,
	}
}

func (c *Config) AccessCfg() AccessConfig {
	return AccessConfig{
		Public:             c.PublicAccess,
		AuthorizedUsers:    slices.Clone(c.AuthorizedUsers),
		BlockedUsers:       slices.Clone(c.Security.BlockedUsers),
		MaxMessagesPerHour: c.Security.MaxMessagesPerHour,
		LogAllMessages:     c.Security.LogAllMessages,
		NotifyOwner:        c.Security.NotifyOwner,
	}
}

func (c *Config) DiscoveryCfg() DiscoveryConfig {
	return DiscoveryConfig{
		Auto:       c.AutoGetGroups,
		ManualIDs:  slices.Clone(c.ManualGroupIDs),
		AutoDetect: c.Security.AutoDetectBotGroups,
		ProbeRPS:   c.RelayProbeRPS,

		RefreshInterval: c.RefreshInterval.Duration(),
	}
}

func (c *Config) DeliveryCfg() DeliveryConfig {
	return DeliveryConfig{
		ForwardDelay:  c.ForwardDelay.Duration(),
		RateLimitWait: c.RateLimitWait.Duration(),
	}
}

// FilterCfg returns an immutable snapshot of the destination filter rules.
func (c *Config) FilterCfg() domain.FilterConfig {
	return domain.FilterConfig{
		AdminOnly:       c.FilterAdminOnly,
		ExcludeKeywords: slices.Clone(c.FilterExcludeKeywords),
		IncludeKeywords: slices.Clone(c.FilterIncludeKeywords),
		MinMembers:      c.FilterMinMembers,
		MaxMembers:      c.FilterMaxMembers,
		ExcludeChannels: c.FilterExcludeChannels,
		ExcludeIDs:      slices.Clone(c.FilterExcludeIDs),
	}
}
