package pages

import "strings"

// BBox is the top-left anchor of a block in page coordinates. Y grows
// downward, so smaller values are higher on the page.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Block is one extracted text run.
type Block struct {
	Text     string  `json:"text"`
	BBox     BBox    `json:"bbox"`
	FontSize float64 `json:"fontSize"`
}

// OCRAttachment is OCR output the upload layer attached to a page.
type OCRAttachment struct {
	OK     bool    `json:"ok"`
	Blocks []Block `json:"blocks"`
}

// RawPage is a page as supplied by the extraction collaborator.
type RawPage struct {
	Number int            `json:"number"`
	Blocks []Block        `json:"blocks"`
	OCR    *OCRAttachment `json:"ocr,omitempty"`
}

// Page is a normalized page.
type Page struct {
	Number  int     `json:"number"`
	Blocks  []Block `json:"blocks"`
	Density int     `json:"density"`
	// Recovered is true when the blocks came from OCR recovery.
	Recovered bool `json:"recovered,omitempty"`
}

// Text joins the page's block texts in detection order.
func (p Page) Text() string {
	texts := make([]string, 0, len(p.Blocks))
	for _, block := range p.Blocks {
		texts = append(texts, block.Text)
	}
	return strings.Join(texts, "\n")
}

// Fallback event reasons and statuses.
const (
	ReasonLowTextDensity = "low_text_density"

	StatusRecovered = "recovered"
	StatusFailed    = "failed"
)

// Event records one OCR recovery invocation.
type Event struct {
	Page    int    `json:"page"`
	Reason  string `json:"reason"`
	Density int    `json:"density"`
	Status  string `json:"status"`
}

// Result is the output of Normalize.
type Result struct {
	Pages  []Page  `json:"pages"`
	Events []Event `json:"events"`
}
