package domain

// Preferences is a customer's preference vector, every component in [0,1].
type Preferences struct {
	Sugar            float64
	Health           float64
	Caffeine         float64
	Hunger           float64
	PriceSensitivity float64
}

// Customer is a day-scoped simulated buyer. Customers are not persisted
// across days by the core; the customer store only supplies the roster.
type Customer struct {
	ID      string
	Segment string
	Prefs   Preferences
}

// Clamped returns a copy of p with every component clamped into [0,1].
func (p Preferences) Clamped() Preferences {
	return Preferences{
		Sugar:            Clamp01(p.Sugar),
		Health:           Clamp01(p.Health),
		Caffeine:         Clamp01(p.Caffeine),
		Hunger:           Clamp01(p.Hunger),
		PriceSensitivity: Clamp01(p.PriceSensitivity),
	}
}
