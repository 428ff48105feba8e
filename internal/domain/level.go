package domain

import "fmt"

// Level is a guardian's progression rank. The string value is used as-is by
// storage, so no separate persistence enum exists.
type Level string

// Levels in ascending order of required experience.
const (
	LevelInitiate   Level = "INITIATE"
	LevelApprentice Level = "APPRENTICE"
	LevelProtector  Level = "PROTECTOR"
	LevelKeeper     Level = "KEEPER"
	LevelGuardian   Level = "GUARDIAN"
	LevelElder      Level = "ELDER"
	LevelSage       Level = "SAGE"
	LevelMaster     Level = "MASTER"
	LevelLegend     Level = "LEGEND"
	LevelChampion   Level = "CHAMPION"
)

type levelEntry struct {
	level       Level
	threshold   int
	displayName string
}

// levelTable must stay sorted by threshold.
var levelTable = []levelEntry{
	{LevelInitiate, 0, "Iniciado"},
	{LevelApprentice, 100, "Aprendiz"},
	{LevelProtector, 250, "Protector"},
	{LevelKeeper, 500, "Guardián"},
	{LevelGuardian, 1000, "Gran Guardián"},
	{LevelElder, 2000, "Anciano"},
	{LevelSage, 3500, "Sabio"},
	{LevelMaster, 5500, "Maestro"},
	{LevelLegend, 8500, "Leyenda"},
	{LevelChampion, 13000, "Campeón"},
}

// Levels returns all levels in ascending order.
func Levels() []Level {
	levels := make([]Level, len(levelTable))
	for i, e := range levelTable {
		levels[i] = e.level
	}
	return levels
}

// LevelFor returns the highest level whose threshold is at or below experience.
// Values below the first threshold map to the lowest level.
func LevelFor(experience int) Level {
	for i := len(levelTable) - 1; i >= 0; i-- {
		if experience >= levelTable[i].threshold {
			return levelTable[i].level
		}
	}
	return LevelInitiate
}

// ParseLevel converts a stored level name into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

func (l Level) index() int {
	for i, e := range levelTable {
		if e.level == l {
			return i
		}
	}
	return -1
}

// IsValid reports whether l is part of the level table.
func (l Level) IsValid() bool { return l.index() >= 0 }

// RequiredExperience returns the experience threshold of the level.
func (l Level) RequiredExperience() int {
	if i := l.index(); i >= 0 {
		return levelTable[i].threshold
	}
	return 0
}

// DisplayName returns the player-facing name of the level.
func (l Level) DisplayName() string {
	if i := l.index(); i >= 0 {
		return levelTable[i].displayName
	}
	return string(l)
}

// IsTerminal reports whether l is the highest level.
func (l Level) IsTerminal() bool {
	return l.index() == len(levelTable)-1
}

// Next returns the following level, or l itself at the terminal level.
func (l Level) Next() Level {
	i := l.index()
	if i < 0 || i == len(levelTable)-1 {
		return l
	}
	return levelTable[i+1].level
}

// ExperienceToNextLevel returns how much experience separates currentExperience
// from the next level's threshold. Zero at the terminal level.
func ExperienceToNextLevel(l Level, currentExperience int) int {
	if l.IsTerminal() || !l.IsValid() {
		return 0
	}
	return l.Next().RequiredExperience() - currentExperience
}
