// tokencodec читает claims из JWT без проверки подписи.
// Результат используется только как подсказка (истёк ли токен локально);
// окончательное решение всегда за сервером.
package tokencodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed - не три сегмента или payload не JSON-объект в base64url.
var ErrMalformed = errors.New("malformed token")

// Claims - декодированный payload. ExpiresAt == nil означает, что exp нет
// и локально токен никогда не истекает.
type Claims struct {
	ExpiresAt *time.Time
	Raw       map[string]any
}

var parser = jwt.NewParser()

// Decode читает только payload (второй сегмент) без проверки подписи.
// Заголовок не разбирается: непрозрачный header не мешает подсказке по exp.
// Не паникует на любом вводе.
func Decode(token string) (*Claims, error) {
	const op = "tokencodec.Decode"

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%s: %w: want 3 segments, got %d", op, ErrMalformed, len(parts))
	}

	raw, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%s: %w: payload: %v", op, ErrMalformed, err)
	}

	var mc jwt.MapClaims
	if err := json.Unmarshal(raw, &mc); err != nil || mc == nil {
		return nil, fmt.Errorf("%s: %w: payload is not a JSON object", op, ErrMalformed)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: exp: %v", op, ErrMalformed, err)
	}

	c := &Claims{Raw: map[string]any(mc)}
	if exp != nil {
		t := exp.Time
		c.ExpiresAt = &t
	}

	return c, nil
}

// Expired - exp присутствует и exp <= now.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}

	return !now.Before(*c.ExpiresAt)
}

// Expired декодирует токен и сообщает, истёк ли он к моменту now.
// Неразбираемый токен возвращает ErrMalformed.
func Expired(token string, now time.Time) (bool, error) {
	c, err := Decode(token)
	if err != nil {
		return false, err
	}

	return c.Expired(now), nil
}

// Valid - токен разбирается и не истёк. Вердикт RouteGuard.
func Valid(token string, now time.Time) bool {
	if token == "" {
		return false
	}

	expired, err := Expired(token, now)
	return err == nil && !expired
}
