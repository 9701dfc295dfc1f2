package hero

import (
	"time"

	"github.com/google/uuid"

	"heroQuestAPI/internal/level"
	"heroQuestAPI/internal/streak"
)

// Hero is one family member's progression state. Level is never stored; it is
// always derived from TotalXP.
type Hero struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	FamilyID         uuid.UUID  `json:"family_id" db:"family_id"`
	HeroName         string     `json:"hero_name" db:"hero_name"`
	TotalXP          int        `json:"total_xp" db:"total_xp"`
	CurrentStreak    int        `json:"current_streak" db:"current_streak"`
	LongestStreak    int        `json:"longest_streak" db:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date" db:"last_activity_date"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

func (h *Hero) Level() int {
	return level.FromXP(h.TotalXP)
}

func (h *Hero) StreakState() streak.State {
	return streak.State{
		Current:      h.CurrentStreak,
		Longest:      h.LongestStreak,
		LastActivity: h.LastActivityDate,
	}
}

// ApplyStreak copies a streak update onto the hero.
func (h *Hero) ApplyStreak(u streak.Update) {
	last := u.LastActivity
	h.CurrentStreak = u.NewStreak
	h.LongestStreak = u.LongestStreak
	h.LastActivityDate = &last
}

type Summary struct {
	ID            uuid.UUID `json:"id"`
	HeroName      string    `json:"hero_name"`
	TotalXP       int       `json:"total_xp"`
	Level         int       `json:"level"`
	CurrentStreak int       `json:"current_streak"`
}

// FamilySummary is computed from hero rows at read time and never cached.
type FamilySummary struct {
	FamilyID  uuid.UUID `json:"family_id"`
	TotalXP   int       `json:"total_xp"`
	HeroCount int       `json:"hero_count"`
	Heroes    []Summary `json:"heroes"`
}

func Summarize(familyID uuid.UUID, heroes []*Hero, today time.Time) *FamilySummary {
	out := &FamilySummary{FamilyID: familyID, Heroes: make([]Summary, 0, len(heroes))}
	for _, h := range heroes {
		out.TotalXP += h.TotalXP
		out.Heroes = append(out.Heroes, Summary{
			ID:            h.ID,
			HeroName:      h.HeroName,
			TotalXP:       h.TotalXP,
			Level:         h.Level(),
			CurrentStreak: streak.Effective(h.StreakState(), today),
		})
	}
	out.HeroCount = len(out.Heroes)
	return out
}
