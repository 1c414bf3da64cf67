package domain

// Field is a patch value that distinguishes an omitted field from an
// explicit null and from a supplied value.
type Field[T any] struct {
	Present bool
	Null    bool
	Value   T
}

// Set returns a field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{Present: true, Value: v}
}

// Null returns a field that was supplied as null.
func Null[T any]() Field[T] {
	return Field[T]{Present: true, Null: true}
}

// HasValue reports whether the field was supplied with a non-null value.
func (f Field[T]) HasValue() bool {
	return f.Present && !f.Null
}

// NotePatch is a partial update of a note. Omitted fields are left unchanged.
// A null Content clears it and a null Tags clears the tag set; a null Title
// or Visibility is rejected before reaching storage.
type NotePatch struct {
	Title      Field[string]
	Content    Field[string]
	Visibility Field[Visibility]
	Tags       Field[[]string]
}

// Empty reports whether no field was supplied.
func (p NotePatch) Empty() bool {
	return !p.Title.Present && !p.Content.Present && !p.Visibility.Present && !p.Tags.Present
}

// UserPatch is a partial update of a user. Omitted fields are left
// unchanged. A null Name or ProfilePicture clears it.
type UserPatch struct {
	Email                Field[string]
	Name                 Field[string]
	PasswordHash         Field[string]
	IsActive             Field[bool]
	ProfilePicture       Field[string]
	Theme                Field[Theme]
	Language             Field[Language]
	EmailNotifications   Field[bool]
	BrowserNotifications Field[bool]
}

// Empty reports whether no field was supplied.
func (p UserPatch) Empty() bool {
	return !p.Email.Present && !p.Name.Present && !p.PasswordHash.Present &&
		!p.IsActive.Present && !p.ProfilePicture.Present && !p.Theme.Present &&
		!p.Language.Present && !p.EmailNotifications.Present && !p.BrowserNotifications.Present
}
