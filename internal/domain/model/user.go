package model

import "time"

// User — учётная запись сотрудника офиса.
// Хранится в users.json (локальный адаптер) или в таблице portal_users
// (удалённый адаптер).
type User struct {
	// ID — UUID пользователя
	ID string `json:"id"`
	// Username — уникальное имя пользователя
	Username string `json:"username"`
	// Email — адрес электронной почты
	Email string `json:"email"`
	// PasswordHash — bcrypt-хэш пароля
	PasswordHash string `json:"password_hash"`
	// CreatedAt — время регистрации
	CreatedAt time.Time `json:"created_at"`
}

// Profile — публичное представление пользователя без хэша пароля.
// Используется в ответах API.
type Profile struct {
	// ID — UUID пользователя
	ID string `json:"id"`
	// Username — имя пользователя
	Username string `json:"username"`
	// Email — адрес электронной почты
	Email string `json:"email"`
	// CreatedAt — время регистрации
	CreatedAt time.Time `json:"created_at"`
}

// Profile возвращает публичное представление учётной записи.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
