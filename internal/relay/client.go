package relay

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
)

// emptyTextPlaceholder replaces text the platform would reject as empty.
const emptyTextPlaceholder = "[message without text]"

var errUnsupportedMedia = fmt.Errorf("unsupported media payload")

// ListChats returns every group and channel the relay account is a member of
// and refreshes the peer cache.
func (s *Session) ListChats(ctx context.Context) ([]domain.Destination, error) {
	chats, err := collectDialogChats(ctx, s.api.MessagesGetDialogs, dialogsPageSize)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", mapError(err))
	}

	s.peers.putChats(chats)

	out := make([]domain.Destination, 0, len(chats))

	for _, chat := range chats {
		if d, ok := toDestination(chat); ok {
			out = append(out, d)
		}
	}

	return out, nil
}

func toDestination(chat tg.ChatClass) (domain.Destination, bool) {
	switch c := chat.(type) {
	case *tg.Chat:
		if c.Left || c.Deactivated {
			return nil, false
		}

		return domain.Group{ChatInfo: domain.ChatInfo{ID: MarkChat(c.ID), Title: c.Title, MemberCount: c.ParticipantsCount}}, true
	case *tg.Channel:
		if c.Left {
			return nil, false
		}

		members, _ := c.GetParticipantsCount()
		info := domain.ChatInfo{ID: MarkChannel(c.ID), Title: c.Title, MemberCount: members}

		if c.Broadcast {
			return domain.Channel{ChatInfo: info}, true
		}

		return domain.Group{ChatInfo: info}, true
	default:
		return nil, false
	}
}

// GetPermissions reports the relay account's own rights in a chat.
func (s *Session) GetPermissions(ctx context.Context, chatID int64) (domain.Permissions, error) {
	kind, _ := UnmarkID(chatID)

	switch kind {
	case peerChat:
		cached, _ := s.peers.chat(chatID)

		chat, ok := cached.(*tg.Chat)
		if !ok {
			return domain.Permissions{}, fmt.Errorf("chat %d: %w", chatID, errors.ErrPeerUnknown)
		}

		return chatPermissions(chat), nil
	case peerChannel:
		input, ok := s.peers.inputChannel(chatID)
		if !ok {
			return domain.Permissions{}, fmt.Errorf("channel %d: %w", chatID, errors.ErrPeerUnknown)
		}

		res, err := s.api.ChannelsGetParticipant(ctx, &tg.ChannelsGetParticipantRequest{
			Channel:     input,
			Participant: &tg.InputPeerSelf{},
		})
		if err != nil {
			return domain.Permissions{}, fmt.Errorf("probing permissions in %d: %w", chatID, mapError(err))
		}

		cached, _ := s.peers.chat(chatID)
		ch, _ := cached.(*tg.Channel)

		return channelPermissions(ch, res.Participant)
	default:
		return domain.Permissions{}, fmt.Errorf("peer %d is not a chat: %w", chatID, errors.ErrPeerUnknown)
	}
}

func chatPermissions(chat *tg.Chat) domain.Permissions {
	if chat.Creator {
		return domain.Permissions{IsAdmin: true, CanPost: true, CanSend: true}
	}

	if _, ok := chat.GetAdminRights(); ok {
		return domain.Permissions{IsAdmin: true, CanSend: true}
	}

	banned, ok := chat.GetDefaultBannedRights()

	return domain.Permissions{CanSend: !ok || !banned.SendMessages}
}

func channelPermissions(ch *tg.Channel, participant tg.ChannelParticipantClass) (domain.Permissions, error) {
	megagroup := ch != nil && ch.Megagroup

	defaultBanned := false
	if ch != nil {
		if rights, ok := ch.GetDefaultBannedRights(); ok {
			defaultBanned = rights.SendMessages
		}
	}

	switch p := participant.(type) {
	case *tg.ChannelParticipantCreator:
		return domain.Permissions{IsAdmin: true, CanPost: true, CanSend: true}, nil
	case *tg.ChannelParticipantAdmin:
		return domain.Permissions{
			IsAdmin: true,
			CanPost: p.AdminRights.PostMessages,
			CanSend: megagroup || p.AdminRights.PostMessages,
		}, nil
	case *tg.ChannelParticipantBanned:
		return domain.Permissions{CanSend: megagroup && !defaultBanned && !p.BannedRights.SendMessages}, nil
	case *tg.ChannelParticipantLeft:
		return domain.Permissions{}, errors.ErrNotParticipant
	default:
		return domain.Permissions{CanSend: megagroup && !defaultBanned}, nil
	}
}

// SampleParticipants returns up to limit recent members of a chat.
func (s *Session) SampleParticipants(ctx context.Context, chatID int64, limit int) ([]domain.Participant, error) {
	kind, rawID := UnmarkID(chatID)

	switch kind {
	case peerChat:
		full, err := s.api.MessagesGetFullChat(ctx, rawID)
		if err != nil {
			return nil, fmt.Errorf("sampling members of %d: %w", chatID, mapError(err))
		}

		return participants(full.Users, limit), nil
	case peerChannel:
		input, ok := s.peers.inputChannel(chatID)
		if !ok {
			return nil, fmt.Errorf("channel %d: %w", chatID, errors.ErrPeerUnknown)
		}

		res, err := s.api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: input,
			Filter:  &tg.ChannelParticipantsRecent{},
			Limit:   limit,
		})
		if err != nil {
			return nil, fmt.Errorf("sampling members of %d: %w", chatID, mapError(err))
		}

		list, ok := res.(*tg.ChannelsChannelParticipants)
		if !ok {
			return nil, nil
		}

		return participants(list.Users, limit), nil
	default:
		return nil, fmt.Errorf("peer %d is not a chat: %w", chatID, errors.ErrPeerUnknown)
	}
}

func participants(users []tg.UserClass, limit int) []domain.Participant {
	out := make([]domain.Participant, 0, len(users))

	for _, u := range users {
		if limit > 0 && len(out) == limit {
			break
		}

		if user, ok := u.(*tg.User); ok {
			out = append(out, domain.Participant{UserID: user.ID, IsBot: user.Bot})
		}
	}

	return out
}

// SendText posts text to a chat.
func (s *Session) SendText(ctx context.Context, chatID int64, text string) error {
	peer, err := s.resolve(ctx, chatID)
	if err != nil {
		return err
	}

	if strings.TrimSpace(text) == "" {
		text = emptyTextPlaceholder
	}

	_, err = s.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: randomID(),
	})
	if err != nil {
		return fmt.Errorf("sending text to %d: %w", chatID, mapError(err))
	}

	return nil
}

// SendMedia re-sends a photo or document with caption. Media that cannot be
// re-sent is forwarded from the chat it arrived in.
func (s *Session) SendMedia(ctx context.Context, chatID int64, media domain.Media, caption string) error {
	ref, ok := media.Payload.(*mediaRef)
	if !ok {
		return fmt.Errorf("sending %s to %d: %w", media.Kind, chatID, errUnsupportedMedia)
	}

	peer, err := s.resolve(ctx, chatID)
	if err != nil {
		return err
	}

	switch {
	case ref.input != nil:
		_, err = s.api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
			Peer:     peer,
			Media:    ref.input,
			Message:  caption,
			RandomID: randomID(),
		})
	case ref.source != nil:
		_, err = s.api.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
			FromPeer: ref.source,
			ID:       []int{ref.msgID},
			RandomID: []int64{randomID()},
			ToPeer:   peer,
		})
	default:
		return fmt.Errorf("sending %s to %d: %w", media.Kind, chatID, errUnsupportedMedia)
	}

	if err != nil {
		return fmt.Errorf("sending %s to %d: %w", media.Kind, chatID, mapError(err))
	}

	return nil
}

// Self returns the relay account identity.
func (s *Session) Self(_ context.Context) (domain.Identity, error) {
	return s.self, nil
}

// resolve turns a marked id into an input peer, reloading the chat list once
// when the id is not cached yet.
func (s *Session) resolve(ctx context.Context, chatID int64) (tg.InputPeerClass, error) {
	if peer, ok := s.peers.inputPeer(chatID); ok {
		return peer, nil
	}

	if _, err := s.ListChats(ctx); err != nil {
		return nil, err
	}

	if peer, ok := s.peers.inputPeer(chatID); ok {
		return peer, nil
	}

	return nil, fmt.Errorf("chat %d: %w", chatID, errors.ErrPeerUnknown)
}

func randomID() int64 {
	var b [8]byte

	_, _ = rand.Read(b[:])

	return int64(binary.LittleEndian.Uint64(b[:]))
}
