package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedProfile — тело ответа /auth/profile не является JSON-объектом.
var ErrMalformedProfile = errors.New("malformed profile")

// Profile — профиль пользователя/администратора в том виде, в котором его отдал бэкенд.
// Шлюз вытягивает несколько известных полей, остальное передаёт UI как есть (Raw).
type Profile struct {
	ID    string
	Email string
	Name  string
	Role  string
	Raw   json.RawMessage
}

// DecodeProfile разбирает тело ответа профиля.
// id допускается строкой или числом (зависит от хранилища бэкенда).
func DecodeProfile(body []byte) (*Profile, error) {
	const op = "models/DecodeProfile"

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformedProfile)
	}

	var known struct {
		ID    json.RawMessage `json:"id"`
		Email string          `json:"email"`
		Name  string          `json:"name"`
		Role  string          `json:"role"`
	}
	if err := json.Unmarshal(trimmed, &known); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedProfile, err)
	}

	return &Profile{
		ID:    rawID(known.ID),
		Email: known.Email,
		Name:  known.Name,
		Role:  known.Role,
		Raw:   append(json.RawMessage(nil), trimmed...),
	}, nil
}

// MarshalJSON отдаёт исходный payload бэкенда без изменений.
func (p Profile) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("{}"), nil
	}

	return p.Raw, nil
}

func rawID(v json.RawMessage) string {
	if len(v) == 0 || string(v) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}

	return string(v)
}
