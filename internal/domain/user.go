// Package domain contains the core entities of the notes service and the
// access rules that govern them.
package domain

// Theme is the user interface theme preference.
type Theme string

// Supported themes.
const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is a supported theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Language is the user interface language preference.
type Language string

// Supported languages.
const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageFrench || l == LanguageEnglish
}

// Preferences holds per-user display and notification settings.
type Preferences struct {
	Theme                Theme    `json:"theme"`
	Language             Language `json:"language"`
	EmailNotifications   bool     `json:"email_notifications"`
	BrowserNotifications bool     `json:"browser_notifications"`
}

// DefaultPreferences returns the preferences assigned at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                ThemeSystem,
		Language:             LanguageFrench,
		EmailNotifications:   true,
		BrowserNotifications: true,
	}
}

// User is a registered account.
// Email is unique and compared exactly as stored.
type User struct {
	Entity
	Email          string      `json:"email"`
	Name           *string     `json:"name,omitempty"`
	PasswordHash   string      `json:"-"`
	IsActive       bool        `json:"is_active"`
	Preferences    Preferences `json:"preferences"`
	ProfilePicture *string     `json:"profile_picture,omitempty"`
}

// DisplayName returns the user's name, falling back to the email.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
