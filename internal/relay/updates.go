package relay

import (
	"context"

	"github.com/gotd/td/tg"
)

// onNewMessage queues incoming private messages for the forward handler.
// Handling happens on the run loop so a long delivery cycle never blocks the
// update dispatcher.
func (s *Session) onNewMessage(_ context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
	select {
	case <-s.ready:
	default:
		return nil
	}

	msg, ok := u.Message.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}

	peer, ok := msg.PeerID.(*tg.PeerUser)
	if !ok {
		return nil
	}

	var source tg.InputPeerClass

	if user, ok := e.Users[peer.UserID]; ok {
		s.peers.putUser(user)
		source = &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}
	}

	out := toDomainMessage(msg, source)

	select {
	case s.incoming <- out:
	default:
		s.logger.Warn().Int64(logFieldMessageID, out.ID).Int64(logFieldSenderID, out.SenderID).Msg("incoming queue full, dropping message")
	}

	return nil
}
