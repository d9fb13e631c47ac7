package relay

import (
	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
)

// mediaRef is the relay-side payload of domain.Media. When input is nil the
// media cannot be re-sent and the source message is forwarded instead.
type mediaRef struct {
	input  tg.InputMediaClass
	source tg.InputPeerClass
	msgID  int
}

// toDomainMessage extracts the relayable content of msg. source is the peer
// the message lives in and may be nil.
func toDomainMessage(msg *tg.Message, source tg.InputPeerClass) domain.Message {
	out := domain.Message{
		ID:   int64(msg.ID),
		Text: msg.Message,
	}

	if peer, ok := msg.PeerID.(*tg.PeerUser); ok {
		out.SenderID = peer.UserID
	}

	if _, ok := msg.GetFwdFrom(); ok {
		out.Forwarded = true
	}

	if media, ok := msg.GetMedia(); ok {
		if m := convertMedia(media); m != nil {
			m.Payload = &mediaRef{input: inputMedia(media), source: source, msgID: msg.ID}
			out.Media = m
		}
	}

	return out
}

func convertMedia(media tg.MessageMediaClass) *domain.Media {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		if _, ok := m.Photo.(*tg.Photo); ok {
			return &domain.Media{Kind: domain.MediaPhoto}
		}
	case *tg.MessageMediaDocument:
		if doc, ok := m.Document.(*tg.Document); ok {
			return &domain.Media{Kind: documentKind(doc)}
		}
	case *tg.MessageMediaWebPage, *tg.MessageMediaEmpty:
		// link previews are regenerated from the text
		return nil
	}

	return &domain.Media{Kind: domain.MediaOther}
}

func documentKind(doc *tg.Document) domain.MediaKind {
	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeSticker:
			return domain.MediaSticker
		case *tg.DocumentAttributeVideo:
			if a.RoundMessage {
				return domain.MediaVideoNote
			}

			return domain.MediaVideo
		case *tg.DocumentAttributeAudio:
			if a.Voice {
				return domain.MediaVoice
			}
		}
	}

	return domain.MediaDocument
}

// inputMedia builds a re-send request for photos and documents. Other media
// types return nil.
func inputMedia(media tg.MessageMediaClass) tg.InputMediaClass {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		if p, ok := m.Photo.(*tg.Photo); ok {
			return &tg.InputMediaPhoto{ID: &tg.InputPhoto{
				ID:            p.ID,
				AccessHash:    p.AccessHash,
				FileReference: p.FileReference,
			}}
		}
	case *tg.MessageMediaDocument:
		if d, ok := m.Document.(*tg.Document); ok {
			return &tg.InputMediaDocument{ID: &tg.InputDocument{
				ID:            d.ID,
				AccessHash:    d.AccessHash,
				FileReference: d.FileReference,
			}}
		}
	}

	return nil
}
