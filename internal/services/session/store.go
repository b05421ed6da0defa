// Package session owns the in-memory user table.
//
// All state lives behind a single coarse lock shared by every user. That is a
// documented throughput bottleneck, not a correctness issue, for a
// single-process deployment with a bounded number of concurrent users. The
// structural rule enforced here: accessors and mutators run under the lock and
// must never perform blocking I/O; callers snapshot what they need, release,
// call out, and write back.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUserNotFound is returned by Modify/Read when the user was never
	// created. Callers recover by calling Create and retrying.
	ErrUserNotFound = errors.New("session: user not found")
)

// Store is the single concurrency-safe owner of the user table.
type Store struct {
	mu    sync.Mutex
	users map[int64]*models.User

	// cmdMu serializes multi-step command handling per user, held across a
	// whole command invocation so rapid repeated admin commands cannot race
	// on the command state.
	cmdMu    sync.Mutex
	userCmds map[int64]*sync.Mutex

	defaultPersona models.Personality
	defaultModel   models.ModelProfile
	logger         *logrus.Logger
}

// NewStore creates an empty user table. New users are initialized with the
// given persona and model profile.
func NewStore(defaultPersona models.Personality, defaultModel models.ModelProfile, logger *logrus.Logger) *Store {
	return &Store{
		users:          make(map[int64]*models.User),
		userCmds:       make(map[int64]*sync.Mutex),
		defaultPersona: defaultPersona,
		defaultModel:   defaultModel,
		logger:         logger,
	}
}

// Exists reports whether the user has been created.
func (s *Store) Exists(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userID]
	return ok
}

// Create inserts a default user. Calling it for an existing id is a no-op so
// that repeated lazy creation can never reset accumulated usage.
func (s *Store) Create(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; ok {
		return
	}
	s.users[userID] = models.NewUser(userID, s.defaultPersona, s.defaultModel)
	s.logger.WithField("user_id", userID).Debug("Created user session")
}

// Modify applies the mutator to the user under the table lock. The change is
// visible to all readers as soon as Modify returns. A panic inside the mutator
// is contained to this call: the lock is released normally, the error is
// returned, and the table stays usable for every other user.
func (s *Store) Modify(userID int64, mutate func(*models.User)) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session: mutator panicked: %v", r)
			s.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"panic":   r,
			}).Error("Recovered panic in user mutator")
		}
	}()

	mutate(user)
	return nil
}

// Read runs the accessor against the user under the table lock. The accessor
// must copy out whatever it needs and must not block; the snapshot-then-release
// pattern keeps the lock away from all I/O. Panics are contained like Modify's.
func (s *Store) Read(userID int64, access func(*models.User)) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session: accessor panicked: %v", r)
			s.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"panic":   r,
			}).Error("Recovered panic in user accessor")
		}
	}()

	access(user)
	return nil
}

// Snapshot returns a deep copy of the user, safe to use after the lock is
// released. Returns ErrUserNotFound for unknown ids.
func (s *Store) Snapshot(userID int64) (*models.User, error) {
	var snapshot *models.User
	err := s.Read(userID, func(u *models.User) {
		snapshot = u.Clone()
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Count returns the number of users in the table.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// LockCommands acquires the per-user command mutex and returns its unlock
// function. Handlers hold it for the duration of one command so multi-step
// workflows advance one invocation at a time per user.
func (s *Store) LockCommands(userID int64) func() {
	s.cmdMu.Lock()
	m, ok := s.userCmds[userID]
	if !ok {
		m = &sync.Mutex{}
		s.userCmds[userID] = m
	}
	s.cmdMu.Unlock()

	m.Lock()
	return m.Unlock
}
