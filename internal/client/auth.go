package client

import (
	"context"
	"net/http"

	"github.com/pribylovaa/metrics-tracker/internal/models"
)

// Пути аутентификации.
const (
	PathToken       = "/token/"
	PathRefresh     = "/token/refresh/"
	PathVerify      = "/token/verify/"
	PathRegister    = "/register/"
	PathVerifyEmail = "/verify-email/"
	PathMe          = "/me/"
)

// Login - POST /token/, логином служит e-mail.
func (c *Client) Login(ctx context.Context, username, password string) (*models.TokenPair, error) {
	var out models.TokenPair
	err := c.do(ctx, "client.Login", http.MethodPost, PathToken,
		models.LoginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Refresh - POST /token/refresh/. Refresh в ответе есть только при ротации.
func (c *Client) Refresh(ctx context.Context, refresh string) (*models.RefreshResponse, error) {
	var out models.RefreshResponse
	err := c.do(ctx, "client.Refresh", http.MethodPost, PathRefresh, models.RefreshRequest{Refresh: refresh}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Verify - POST /token/verify/; nil, если сервер принимает токен.
func (c *Client) Verify(ctx context.Context, token string) error {
	return c.do(ctx, "client.Verify", http.MethodPost, PathVerify, models.VerifyRequest{Token: token}, nil)
}

// Register - POST /register/. Несовпадение паролей отсекается без запроса.
func (c *Client) Register(ctx context.Context, email, password, confirm string) (*models.RegisterResponse, error) {
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	in := models.RegisterRequest{
		Username:        email,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	}

	var out models.RegisterResponse
	if err := c.do(ctx, "client.Register", http.MethodPost, PathRegister, in, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// VerifyEmail - POST /verify-email/ с параметрами ссылки из письма.
func (c *Client) VerifyEmail(ctx context.Context, token, uid string) error {
	return c.do(ctx, "client.VerifyEmail", http.MethodPost, PathVerifyEmail, models.VerifyEmailRequest{Token: token, UID: uid}, nil)
}

// Me - GET /me/, текущий пользователь.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, "client.Me", http.MethodGet, PathMe, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
