package badge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of stats a badge can be unlocked by.
type Kind int

const (
	KindTaskCount Kind = iota + 1
	KindQuestCount
	KindStreakDays
	KindTotalXP
	KindLevel
)

var kindNames = map[Kind]string{
	KindTaskCount:  "task_count",
	KindQuestCount: "quest_count",
	KindStreakDays: "streak_days",
	KindTotalXP:    "total_xp",
	KindLevel:      "level",
}

func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown badge requirement kind %q", s)
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid badge requirement kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type Category string

const (
	CategoryTasks   Category = "tasks"
	CategoryQuests  Category = "quests"
	CategoryStreaks Category = "streaks"
	CategoryXP      Category = "xp"
)

// Categories in display order.
var Categories = []Category{CategoryTasks, CategoryQuests, CategoryStreaks, CategoryXP}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

type Requirement struct {
	Kind      Kind `json:"kind" toml:"kind"`
	Threshold int  `json:"threshold" toml:"threshold"`
}

// Stats is the snapshot a hero's badges are evaluated against.
type Stats struct {
	TotalTasks    int `json:"total_tasks"`
	TotalQuests   int `json:"total_quests"`
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
	TotalXP       int `json:"total_xp"`
	Level         int `json:"level"`
}

// Current returns the stat value the requirement is measured against.
// Streak badges look at the longest streak so breaking a streak never
// revokes eligibility.
func (r Requirement) Current(s Stats) int {
	switch r.Kind {
	case KindTaskCount:
		return s.TotalTasks
	case KindQuestCount:
		return s.TotalQuests
	case KindStreakDays:
		return s.LongestStreak
	case KindTotalXP:
		return s.TotalXP
	case KindLevel:
		return s.Level
	}
	panic(fmt.Sprintf("badge: unhandled requirement kind %d", int(r.Kind)))
}

func (r Requirement) Met(s Stats) bool {
	return r.Current(s) >= r.Threshold
}

func (r Requirement) Category() Category {
	switch r.Kind {
	case KindTaskCount:
		return CategoryTasks
	case KindQuestCount:
		return CategoryQuests
	case KindStreakDays:
		return CategoryStreaks
	case KindTotalXP, KindLevel:
		return CategoryXP
	}
	panic(fmt.Sprintf("badge: unhandled requirement kind %d", int(r.Kind)))
}

// rarityTiers holds the rare/epic/legendary cut-offs per kind.
var rarityTiers = map[Kind][3]int{
	KindTaskCount:  {50, 100, 500},
	KindQuestCount: {25, 50, 100},
	KindStreakDays: {7, 30, 100},
	KindTotalXP:    {2500, 10000, 50000},
	KindLevel:      {8, 10, 15},
}

// Rarity is a display-only tier derived from the threshold.
func (r Requirement) Rarity() Rarity {
	tiers := rarityTiers[r.Kind]
	switch {
	case r.Threshold >= tiers[2]:
		return RarityLegendary
	case r.Threshold >= tiers[1]:
		return RarityEpic
	case r.Threshold >= tiers[0]:
		return RarityRare
	default:
		return RarityCommon
	}
}

type Definition struct {
	ID          string      `json:"id" toml:"id"`
	Name        string      `json:"name" toml:"name"`
	Description string      `json:"description" toml:"description"`
	Emoji       string      `json:"emoji" toml:"emoji"`
	Requirement Requirement `json:"requirement"`
}

func (d Definition) Category() Category { return d.Requirement.Category() }
func (d Definition) Rarity() Rarity     { return d.Requirement.Rarity() }

// View is a definition with its derived display fields filled in.
type View struct {
	Definition
	Category Category `json:"category"`
	Rarity   Rarity   `json:"rarity"`
}

func (d Definition) View() View {
	return View{Definition: d, Category: d.Category(), Rarity: d.Rarity()}
}

// Earned is a definition joined with its unlock record.
type Earned struct {
	View
	EarnedAt time.Time `json:"earned_at"`
}

type Progress struct {
	Badge   Definition `json:"badge"`
	Current int        `json:"current"`
	Target  int        `json:"target"`
	Percent int        `json:"percent"`
	Earned  bool       `json:"earned"`
}

// Award is a stored HeroBadge row.
type Award struct {
	HeroID   uuid.UUID `json:"hero_id" db:"hero_id"`
	BadgeID  string    `json:"badge_id" db:"badge_id"`
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`
}
