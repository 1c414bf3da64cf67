package domain

// CanRead reports whether user may read note through normal authorization:
// the owner, anyone for PUBLIC notes, and users in the shared-with set.
// Reads by public token do not go through this check.
func CanRead(note *Note, user *User) bool {
	if note == nil || user == nil {
		return false
	}
	if note.OwnerID == user.ID {
		return true
	}
	if note.Visibility == VisibilityPublic {
		return true
	}
	return note.IsSharedWith(user.ID)
}

// CanWrite reports whether user may modify note. Only the owner can update,
// delete, share, or publish a note.
func CanWrite(note *Note, user *User) bool {
	if note == nil || user == nil {
		return false
	}
	return note.OwnerID == user.ID
}
