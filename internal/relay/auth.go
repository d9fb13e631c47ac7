package relay

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
)

const minPhoneLength = 10

func (s *Session) authFlow() auth.Flow {
	return auth.NewFlow(s, auth.SendCodeOptions{})
}

func (s *Session) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Print("Enter code: ")

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read auth code: %w", err)
	}

	return strings.TrimSpace(code), nil
}

func (s *Session) Phone(_ context.Context) (string, error) {
	phone := s.cfg.Phone

	if phone == "" {
		fmt.Print("Enter phone: ")

		var err error

		phone, err = bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read phone number: %w", err)
		}
	}

	phone = sanitizePhone(phone)
	s.logger.Info().Str("phone", maskPhone(phone)).Msg("Using phone number")

	if len(phone) < minPhoneLength {
		s.logger.Warn().Int("length", len(phone)).Msg("Phone number seems too short, it might be invalid. Ensure it includes country code (e.g. +34...)")
	}

	return phone, nil
}

func (s *Session) Password(_ context.Context) (string, error) {
	if s.cfg.Password2FA != "" {
		return strings.TrimSpace(s.cfg.Password2FA), nil
	}

	fmt.Print("Enter 2FA password: ")

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read 2FA password: %w", err)
	}

	return strings.TrimSpace(password), nil
}

func (s *Session) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (s *Session) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.ErrSignupNotSupported
}

func sanitizePhone(phone string) string {
	var sb strings.Builder

	phone = strings.TrimSpace(phone)

	if strings.HasPrefix(phone, "+") {
		sb.WriteByte('+')

		phone = phone[1:]
	}

	for _, char := range phone {
		if char >= '0' && char <= '9' {
			sb.WriteRune(char)
		}
	}

	return sb.String()
}

func maskPhone(phone string) string {
	if len(phone) < 7 {
		return "****"
	}

	return phone[:3] + "****" + phone[len(phone)-2:]
}
