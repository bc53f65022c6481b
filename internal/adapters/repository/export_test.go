package repository

// Truncate empties both tables between contract runs.
func Truncate(s *GormStore) error {
	return s.db.Exec("TRUNCATE TABLE users, events").Error
}
