package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// termAuth answers the interactive parts of the login flow from the terminal.
// The phone number can be preconfigured; code and 2FA password are always
// prompted.
type termAuth struct {
	phone string
}

func (a termAuth) Phone(_ context.Context) (string, error) {
	if a.phone != "" {
		return a.phone, nil
	}
	fmt.Print("Enter phone number (e.g. +15551234567): ")
	var phone string
	_, err := fmt.Scanln(&phone)
	return phone, err
}

func (termAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Print("Enter the code sent by Telegram: ")
	var code string
	_, err := fmt.Scanln(&code)
	return code, err
}

func (termAuth) Password(_ context.Context) (string, error) {
	fmt.Print("Enter 2FA password: ")
	var password string
	_, err := fmt.Scanln(&password)
	return password, err
}

func (termAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (termAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported")
}
