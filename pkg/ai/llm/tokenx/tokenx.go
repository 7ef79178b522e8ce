package tokenx

// Counter estimates token counts for a specific model's tokenization scheme.
// The context window arithmetic is only as accurate as this dependency, so
// implementations are swappable per target model.
type Counter interface {
	Count(text string) int
}

// CharCounter estimates tokens using a characters-per-token ratio.
// A rough approximation, suitable for reduction thresholds but not for
// exact billing.
type CharCounter struct {
	CharsPerToken int // defaults to 4 if zero
}

func (c CharCounter) ratio() int {
	if c.CharsPerToken <= 0 {
		return 4
	}
	return c.CharsPerToken
}

// Count returns the estimated token count for text, rounding up
func (c CharCounter) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	r := c.ratio()
	return (len(text) + r - 1) / r
}
