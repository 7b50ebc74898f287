package extract

import (
	"regexp"
	"strconv"

	"indexflow/internal/model"
)

const numberToken = `(-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?)`

var (
	timestampPattern = regexp.MustCompile(`"timestamp"\s*:\s*\[?\s*(\d+)`)
	openPattern      = regexp.MustCompile(`"open"\s*:\s*\[?\s*` + numberToken)
	closePattern     = regexp.MustCompile(`"close"\s*:\s*\[?\s*` + numberToken)
	highPattern      = regexp.MustCompile(`"high"\s*:\s*\[?\s*` + numberToken)
	lowPattern       = regexp.MustCompile(`"low"\s*:\s*\[?\s*` + numberToken)
)

// scanExtractor is the best-effort fallback for payloads that are not
// reliably structured-parseable. It collects every timestamp marker in
// first-appearance order (duplicates kept), then for each candidate finds
// the nearest-following occurrence of each of the four value markers. A
// candidate missing any value marker is dropped silently. The pass is
// O(candidates x payload size) and offers no guarantee against repeated or
// reordered markers in the source text.
type scanExtractor struct{}

func NewScan() Extractor {
	return &scanExtractor{}
}

func (e *scanExtractor) Extract(raw []byte) ([]model.Observation, error) {
	text := string(raw)

	var observations []model.Observation
	for _, m := range timestampPattern.FindAllStringSubmatchIndex(text, -1) {
		epoch, err := strconv.ParseInt(text[m[2]:m[3]], 10, 64)
		if err != nil {
			continue
		}

		following := text[m[1]:]
		openPrice := firstValue(openPattern, following)
		closePrice := firstValue(closePattern, following)
		highPrice := firstValue(highPattern, following)
		lowPrice := firstValue(lowPattern, following)
		if openPrice == "" || closePrice == "" || highPrice == "" || lowPrice == "" {
			continue
		}

		observations = append(observations, model.Observation{
			Timestamp: epoch,
			Open:      openPrice,
			Close:     closePrice,
			High:      highPrice,
			Low:       lowPrice,
		})
	}

	return observations, nil
}

func firstValue(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
