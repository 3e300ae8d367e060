package weather

// Category is the textual forecast label produced by a ForecastRule.
type Category string

const (
	CategoryHotHumid  Category = "hot and humid"
	CategoryHeavyRain Category = "heavy rain"
	CategoryWindy     Category = "windy"
	CategoryPleasant  Category = "pleasant"
)

// Message returns the human-readable forecast sentence for the category.
func (c Category) Message() string {
	switch c {
	case CategoryHotHumid:
		return "It will likely be hot and humid."
	case CategoryHeavyRain:
		return "Expect heavy rain."
	case CategoryWindy:
		return "It will be windy."
	default:
		return "Pleasant weather expected."
	}
}

// ForecastRule classifies conditions with a fixed, ordered decision list.
// The first matching rule wins.
type ForecastRule struct{}

func (ForecastRule) Classify(c Conditions) Category {
	switch {
	case c.Temperature > 25 && c.Humidity > 60:
		return CategoryHotHumid
	case c.Rainfall > 10:
		return CategoryHeavyRain
	case c.WindSpeed > 30:
		return CategoryWindy
	default:
		return CategoryPleasant
	}
}

