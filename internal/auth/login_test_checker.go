package auth

import "context"

type LoginTestChecker struct {
	LoggedSessions map[string]string
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		map[string]string{},
	}
}

func (c *LoginTestChecker) GetLoggedUser(_ context.Context, token string) (string, error) {
	username, ok := c.LoggedSessions[token]
	if !ok {
		return "", ErrNotLoggedIn
	}
	return username, nil
}
