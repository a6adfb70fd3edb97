package progression

import (
	"context"
	"strings"
	"time"

	"github.com/abhisek/voxa/internal/logging"
	"github.com/abhisek/voxa/internal/observe"
	"github.com/abhisek/voxa/internal/store"
)

// Profile defaults for users who never set a preference.
const (
	DefaultVoice        = "en-US-JennyNeural"
	DefaultBaselineTone = "neutral"
)

// Profile holds a user's coaching preferences.
type Profile struct {
	UserID         string    `json:"user_id"`
	PreferredVoice string    `json:"preferred_voice"`
	BaselineTone   string    `json:"baseline_tone"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// ProfileUpdate is a partial profile change. Blank fields keep the stored
// value.
type ProfileUpdate struct {
	PreferredVoice string `json:"preferred_voice"`
	BaselineTone   string `json:"baseline_tone"`
}

// Profiles reads and updates user profiles. Updates for one user are
// serialized.
type Profiles struct {
	repo    store.ProfileRepo
	timeout time.Duration
	metrics *observe.Metrics
	log     *logging.Logger
	locks   *keyedMutex
}

// NewProfiles creates a profile service over repo. Options.Now is unused.
func NewProfiles(repo store.ProfileRepo, opts Options) *Profiles {
	p := &Profiles{
		repo:    repo,
		timeout: opts.StorageTimeout,
		metrics: opts.Metrics,
		log:     opts.Logger,
		locks:   newKeyedMutex(),
	}
	if p.log == nil {
		p.log = logging.Nop()
	}
	return p
}

// Get returns the user's profile. A user without one gets the defaults.
func (s *Profiles) Get(ctx context.Context, userID string) (Profile, error) {
	if err := validateUserID(userID); err != nil {
		return Profile{}, err
	}

	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	start := time.Now()
	p, err := s.repo.GetProfile(ctx, userID)
	s.metrics.RecordStorage(ctx, "get_profile", time.Since(start), err)
	if err != nil {
		return Profile{}, &StorageError{Op: "get_profile", Err: err}
	}
	if p == nil {
		return Profile{UserID: userID, PreferredVoice: DefaultVoice, BaselineTone: DefaultBaselineTone}, nil
	}
	return profileFromStore(*p), nil
}

// Update applies the non-blank fields of u and returns the stored profile.
// The first update of a user starts from the defaults.
func (s *Profiles) Update(ctx context.Context, userID string, u ProfileUpdate) (Profile, error) {
	if err := validateUserID(userID); err != nil {
		return Profile{}, err
	}
	voice := strings.TrimSpace(u.PreferredVoice)
	tone := strings.TrimSpace(u.BaselineTone)

	unlock := s.locks.Lock(userID)
	defer unlock()

	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	start := time.Now()
	p, err := s.repo.UpdateProfile(ctx, userID, func(p *store.Profile) error {
		if voice != "" {
			p.PreferredVoice = voice
		}
		if tone != "" {
			p.BaselineTone = tone
		}
		return nil
	})
	s.metrics.RecordStorage(ctx, "update_profile", time.Since(start), err)
	if err != nil {
		s.log.Error("update profile failed", "user_id", userID, "error", err)
		return Profile{}, &StorageError{Op: "update_profile", Err: err}
	}
	s.log.Debug("profile updated", "user_id", userID, "voice", p.PreferredVoice, "baseline_tone", p.BaselineTone)
	return profileFromStore(p), nil
}

func (s *Profiles) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func profileFromStore(p store.Profile) Profile {
	out := Profile{
		UserID:         p.UserID,
		PreferredVoice: p.PreferredVoice,
		BaselineTone:   p.BaselineTone,
		UpdatedAt:      p.UpdatedAt,
	}
	if out.PreferredVoice == "" {
		out.PreferredVoice = DefaultVoice
	}
	if out.BaselineTone == "" {
		out.BaselineTone = DefaultBaselineTone
	}
	return out
}
