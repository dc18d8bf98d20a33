// Модели REST API трекера метрик: запросы/ответы аутентификации.
package models

// TokenPair - ответ POST /token/ и сохранённая пара учётных данных.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginRequest - POST /token/. Логином служит e-mail.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest - POST /token/refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse - новый access; refresh присутствует при ротации.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// VerifyRequest - POST /token/verify/.
type VerifyRequest struct {
	Token string `json:"token"`
}

// RegisterRequest - POST /register/. Username совпадает с e-mail.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RegisterResponse - сообщение сервера после регистрации.
type RegisterResponse struct {
	Message string `json:"message,omitempty"`
}

// VerifyEmailRequest - POST /verify-email/ (ссылка из письма: token + uid).
type VerifyEmailRequest struct {
	Token string `json:"token"`
	UID   string `json:"uid"`
}

// User - GET /me/.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff,omitempty"`
}
