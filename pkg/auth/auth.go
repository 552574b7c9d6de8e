package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Admin is a staff account allowed to manage the catalog.
type Admin struct {
	Username     string
	Name         string
	PasswordHash []byte
}

// Service tracks registered admins and the current login session.
type Service struct {
	admins  map[string]*Admin
	current *Admin
}

func NewService() *Service {
	return &Service{admins: make(map[string]*Admin)}
}

// Register stores an admin with a bcrypt hash of the given password.
func (s *Service) Register(username, name, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	s.admins[username] = &Admin{Username: username, Name: name, PasswordHash: hash}
	return nil
}

// Restore installs an admin with an existing password hash, for
// rehydrating the service from the database.
func (s *Service) Restore(admin *Admin) {
	if admin != nil && admin.Username != "" {
		s.admins[admin.Username] = admin
	}
}

// Admins returns all registered admins.
func (s *Service) Admins() []*Admin {
	result := make([]*Admin, 0, len(s.admins))
	for _, a := range s.admins {
		result = append(result, a)
	}
	return result
}

// Login verifies credentials and opens a session. Invalid credentials
// return false, they are not an error.
func (s *Service) Login(username, password string) bool {
	if username == "" || password == "" {
		return false
	}
	admin, ok := s.admins[username]
	if !ok {
		return false
	}
	if bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)) != nil {
		return false
	}
	s.current = admin
	return true
}

func (s *Service) Logout() {
	s.current = nil
}

func (s *Service) IsLoggedIn() bool {
	return s.current != nil
}

// CurrentAdmin returns the logged-in admin, or nil.
func (s *Service) CurrentAdmin() *Admin {
	return s.current
}
