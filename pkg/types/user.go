package types

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt cost used when hashing user passwords.
var PasswordCost = bcrypt.DefaultCost

// User owns places and writes reviews. Password always holds a bcrypt hash.
type User struct {
	Base
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (*User) Kind() Kind { return KindUser }

func (u *User) fields() map[string]any {
	return map[string]any{
		"email":      u.Email,
		"password":   u.Password,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
	}
}

func (u *User) setField(key string, v any) (bool, error) {
	switch key {
	case "email":
		return true, assignString(&u.Email, KindUser, key, v)
	case "password":
		var plain string
		if err := assignString(&plain, KindUser, key, v); err != nil {
			return true, err
		}
		return true, u.SetPassword(plain)
	case "first_name":
		return true, assignString(&u.FirstName, KindUser, key, v)
	case "last_name":
		return true, assignString(&u.LastName, KindUser, key, v)
	}
	return false, nil
}

func (*User) required() []string { return []string{"email", "password"} }

func (u *User) clone() Entity {
	c := *u
	c.Base = cloneBase(u.Base)
	return &c
}

// SetPassword stores the bcrypt hash of plain. A value that is already a
// bcrypt hash is kept as is, so reloading a persisted user never re-hashes.
func (u *User) SetPassword(plain string) error {
	if plain == "" {
		u.Password = ""
		return nil
	}
	if _, err := bcrypt.Cost([]byte(plain)); err == nil {
		u.Password = plain
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return &FieldError{Kind: KindUser, Field: "password", Err: err}
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}
