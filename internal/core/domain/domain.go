package domain

import "github.com/google/uuid"

// Kind distinguishes the two destination variants.
type Kind int

const (
	KindGroup Kind = iota
	KindChannel
)

func (k Kind) String() string {
	if k == KindChannel {
		return "channel"
	}

	return "group"
}

// Permissions describes what the relay account may do in a chat.
type Permissions struct {
	IsAdmin bool
	CanPost bool
	CanSend bool
}

// ChatInfo holds the attributes shared by every destination variant.
//
// MemberCount of 0 means unknown. Permissions is nil when no probe ran;
// ProbeErr is set when the probe ran and failed.
type ChatInfo struct {
	ID          int64
	Title       string
	MemberCount int
	Permissions *Permissions
	ProbeErr    error
}

// Destination is a group or a channel the relay account can reach.
type Destination interface {
	Kind() Kind
	Info() ChatInfo
}

// Group is a basic group or a supergroup.
type Group struct {
	ChatInfo
}

func (g Group) Kind() Kind     { return KindGroup }
func (g Group) Info() ChatInfo { return g.ChatInfo }

// Channel is a broadcast channel.
type Channel struct {
	ChatInfo
}

func (c Channel) Kind() Kind     { return KindChannel }
func (c Channel) Info() ChatInfo { return c.ChatInfo }

// WithPermissions returns a copy of d carrying the probe outcome.
func WithPermissions(d Destination, perms *Permissions, probeErr error) Destination {
	info := d.Info()
	info.Permissions = perms
	info.ProbeErr = probeErr

	if d.Kind() == KindChannel {
		return Channel{ChatInfo: info}
	}

	return Group{ChatInfo: info}
}

// FilterConfig is an immutable snapshot of destination filter rules.
// Zero MinMembers/MaxMembers means unbounded.
type FilterConfig struct {
	AdminOnly       bool
	ExcludeKeywords []string
	IncludeKeywords []string
	MinMembers      int
	MaxMembers      int
	ExcludeChannels bool
	ExcludeIDs      []int64
}

// Participant is a sampled chat member.
type Participant struct {
	UserID int64
	IsBot  bool
}

// Identity is an account's own id and username.
type Identity struct {
	ID       int64
	Username string
}

// MediaKind names the media variant carried by a relayed message.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaDocument  MediaKind = "document"
	MediaVideo     MediaKind = "video"
	MediaVoice     MediaKind = "voice"
	MediaVideoNote MediaKind = "video_note"
	MediaSticker   MediaKind = "sticker"
	MediaOther     MediaKind = "other"
)

// Media is an attachment. Payload is an opaque handle owned by the chat client
// that produced the message.
type Media struct {
	Kind    MediaKind
	Payload any
}

// SupportsCaption reports whether the platform accepts a caption for this kind.
func (m Media) SupportsCaption() bool {
	return m.Kind != MediaVideoNote && m.Kind != MediaSticker
}

// Message is the content of one relayed message as seen by the relay account.
type Message struct {
	ID   int64
	Text string
	// SenderID is the account the message arrived from.
	SenderID  int64
	Forwarded bool
	Media     *Media
}

// Report summarizes one delivery cycle.
type Report struct {
	CycleID        uuid.UUID
	MessageID      int64
	Succeeded      int
	Failed         int
	Attempted      int
	Forced         bool
	NoDestinations bool
}
