package types

import "strings"

type Style string

const (
	StyleScalping        Style = "Scalping"
	StyleDayTrading      Style = "DayTrading"
	StyleSwingTrading    Style = "SwingTrading"
	StylePositionTrading Style = "PositionTrading"
	StyleHODL            Style = "HODL"
	StyleGridTrading     Style = "GridTrading"
	StyleAuto            Style = "Auto"
)

// ConcreteStyles is the search space of an Auto-style strategy.
var ConcreteStyles = []Style{
	StyleScalping,
	StyleDayTrading,
	StyleSwingTrading,
	StylePositionTrading,
	StyleHODL,
	StyleGridTrading,
}

// ParseStyle is case-insensitive; unknown names are returned as-is and
// resolve to the default profile downstream.
func ParseStyle(raw string) Style {
	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(raw)))
	switch key {
	case "scalping":
		return StyleScalping
	case "daytrading", "day":
		return StyleDayTrading
	case "swingtrading", "swing":
		return StyleSwingTrading
	case "positiontrading", "position":
		return StylePositionTrading
	case "hodl":
		return StyleHODL
	case "gridtrading", "grid":
		return StyleGridTrading
	case "auto", "":
		return StyleAuto
	default:
		return Style(strings.TrimSpace(raw))
	}
}

type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
	DirectionAuto  Direction = "Auto"
)

func ParseDirection(raw string) Direction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "long", "buy":
		return DirectionLong
	case "short", "sell":
		return DirectionShort
	default:
		return DirectionAuto
	}
}

// Sign is +1 for Long, -1 for Short and 0 otherwise.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	default:
		return 0
	}
}
