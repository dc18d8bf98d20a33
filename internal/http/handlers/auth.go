package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/metrics-tracker/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handlers) LoginView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, view{View: "login", State: h.Sessions.State().String()})
}

// Login - вход; при успехе 303 на основной экран.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil || in.Email == "" || in.Password == "" {
		apierrors.BadRequest(w, r, "email and password are required")
		return
	}

	if err := h.Sessions.Login(r.Context(), in.Email, in.Password); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	http.Redirect(w, r, h.DefaultPath, http.StatusSeeOther)
}

func (h *Handlers) RegisterView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, view{View: "register"})
}

// Register - регистрация; письмо с подтверждением отправляет сервер.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil || in.Email == "" || in.Password == "" {
		apierrors.BadRequest(w, r, "email and password are required")
		return
	}

	out, err := h.Accounts.Register(r.Context(), in.Email, in.Password, in.ConfirmPassword)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	msg := out.Message
	if msg == "" {
		msg = "Registration successful. Please check your email to verify your account."
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: msg})
}

// Logout - выход; 303 на страницу входа.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	http.Redirect(w, r, h.LoginPath, http.StatusSeeOther)
}

// VerifyEmail - переход по ссылке из письма: ?token=...&uid=...
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	uid := r.URL.Query().Get("uid")
	if token == "" || uid == "" {
		apierrors.BadRequest(w, r, "token and uid are required")
		return
	}

	if err := h.Accounts.VerifyEmail(r.Context(), token, uid); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully. You can now log in."})
}
