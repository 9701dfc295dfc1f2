package level

import "math"

// MaxLevel is the last level of the curve. XP beyond its threshold does not
// produce a higher level.
const MaxLevel = 15

var titles = [MaxLevel]string{
	"Rookie Hero",
	"Helper",
	"Junior Hero",
	"Hero in Training",
	"Rising Star",
	"Skilled Hero",
	"Expert Hero",
	"Elite Hero",
	"Master Hero",
	"Champion",
	"Super Hero",
	"Legendary Hero",
	"Mythic Hero",
	"Epic Hero",
	"Ultimate Hero",
}

type Info struct {
	Level             int    `json:"level"`
	Title             string `json:"title"`
	CurrentXP         int    `json:"current_xp"`
	XPForCurrentLevel int    `json:"xp_for_current_level"`
	XPForNextLevel    *int   `json:"xp_for_next_level,omitempty"`
	XPProgress        int    `json:"xp_progress"`
	XPNeeded          *int   `json:"xp_needed,omitempty"`
	ProgressPercent   int    `json:"progress_percent"`
	IsMaxLevel        bool   `json:"is_max_level"`
}

type UpResult struct {
	LeveledUp     bool `json:"leveled_up"`
	PreviousLevel int  `json:"previous_level"`
	NewLevel      int  `json:"new_level"`
	LevelsGained  int  `json:"levels_gained"`
}

type Threshold struct {
	Level int    `json:"level"`
	XP    int    `json:"xp"`
	Title string `json:"title"`
}

// XPForLevel returns the cumulative XP needed to reach level.
// The curve is clamped at MaxLevel rather than extrapolated.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return int(math.Floor(50 * math.Pow(float64(level), 1.8)))
}

// FromXP scans the thresholds and returns the highest level reached by totalXP.
func FromXP(totalXP int) int {
	lvl := 1
	for lvl < MaxLevel && totalXP >= XPForLevel(lvl+1) {
		lvl++
	}
	return lvl
}

func Title(level int) string {
	if level < 1 || level > MaxLevel {
		return "Hero"
	}
	return titles[level-1]
}

func InfoFor(totalXP int) Info {
	lvl := FromXP(totalXP)
	current := XPForLevel(lvl)
	info := Info{
		Level:             lvl,
		Title:             Title(lvl),
		CurrentXP:         totalXP,
		XPForCurrentLevel: current,
		XPProgress:        totalXP - current,
		IsMaxLevel:        lvl >= MaxLevel,
	}

	if info.IsMaxLevel {
		info.ProgressPercent = 100
		return info
	}

	next := XPForLevel(lvl + 1)
	needed := next - current
	info.XPForNextLevel = &next
	info.XPNeeded = &needed

	percent := info.XPProgress * 100 / needed
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	info.ProgressPercent = percent
	return info
}

func CheckLevelUp(previousXP, newXP int) UpResult {
	prev := FromXP(previousXP)
	next := FromXP(newXP)
	return UpResult{
		LeveledUp:     next > prev,
		PreviousLevel: prev,
		NewLevel:      next,
		LevelsGained:  next - prev,
	}
}

// Thresholds lists every level with its XP requirement, for display.
func Thresholds() []Threshold {
	out := make([]Threshold, 0, MaxLevel)
	for lvl := 1; lvl <= MaxLevel; lvl++ {
		out = append(out, Threshold{Level: lvl, XP: XPForLevel(lvl), Title: Title(lvl)})
	}
	return out
}
