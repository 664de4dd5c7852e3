package services

import (
	"math"

	"tamagotree/models"
)

// BaseXPPerLevel scales the leveling curve: XP to enter level n is floor(BaseXPPerLevel * n^1.5).
const BaseXPPerLevel = 100

// XPForLevel returns the XP cost to advance into level from level-1.
// Level 1 is free and level 2 costs exactly BaseXPPerLevel; the curve applies from level 3.
func XPForLevel(level int) int64 {
	switch {
	case level <= 1:
		return 0
	case level == 2:
		return BaseXPPerLevel
	}
	return int64(math.Floor(float64(BaseXPPerLevel) * math.Pow(float64(level), 1.5)))
}

// TotalXPForLevel is the cumulative XP needed to stand at level.
func TotalXPForLevel(level int) int64 {
	var total int64
	for i := 2; i <= level; i++ {
		total += XPForLevel(i)
	}
	return total
}

// LevelFromXP greedily spends totalXP on successive level costs starting at level 1.
func LevelFromXP(totalXP int64) int {
	level := 1
	remaining := totalXP
	for remaining >= XPForLevel(level+1) {
		remaining -= XPForLevel(level + 1)
		level++
	}
	return level
}

type LevelProgress struct {
	Level    int   `json:"level"`
	Current  int64 `json:"current"`
	Required int64 `json:"required"`
}

// ProgressForXP splits totalXP into the level reached and the progress toward the next one.
func ProgressForXP(totalXP int64) LevelProgress {
	if totalXP < 0 {
		totalXP = 0
	}
	level := LevelFromXP(totalXP)
	return LevelProgress{
		Level:    level,
		Current:  totalXP - TotalXPForLevel(level),
		Required: XPForLevel(level + 1),
	}
}

type LevelUp struct {
	LeveledUp bool `json:"leveled_up"`
	OldLevel  int  `json:"old_level"`
	NewLevel  int  `json:"new_level"`
}

// CheckLevelUp only drives messaging; stored levels are always recomputed from XP.
func CheckLevelUp(oldXP, newXP int64) LevelUp {
	oldLevel := LevelFromXP(oldXP)
	newLevel := LevelFromXP(newXP)
	return LevelUp{
		LeveledUp: newLevel > oldLevel,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// RankThresholds: guardian rank title → minimum level, highest first.
var RankThresholds = []struct {
	Name     string
	MinLevel int
}{
	{"Ancient", 50},
	{"Elder", 35},
	{"Warden", 20},
	{"Guardian", 10},
	{"Sapling", 5},
	{"Seedling", 1},
}

func GuardianRank(level int) string {
	for _, r := range RankThresholds {
		if level >= r.MinLevel {
			return r.Name
		}
	}
	return "Seedling"
}

// HealthStatusFor derives the health tier from a 0–100 score.
func HealthStatusFor(pct int) string {
	switch {
	case pct >= 70:
		return models.HealthHealthy
	case pct >= 40:
		return models.HealthNeedsCare
	default:
		return models.HealthCritical
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
