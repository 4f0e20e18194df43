package service

type PasswordService interface {
	// Hash returns a self-describing encoded hash (algorithm, params, salt
	// and digest in one string) suitable for the users.password_hash column.
	Hash(password string) (string, error)
	// Verify compares in constant time. rehashNeeded is set when the stored
	// hash predates the current policy and should be transparently upgraded.
	Verify(password, encoded string) (rehashNeeded bool, ok bool)
}
